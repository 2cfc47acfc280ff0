package cli

import (
	"encoding/json"
	"testing"

	"github.com/3grands/habitflow/internal/cache"
	"github.com/3grands/habitflow/internal/constants"
)

func TestHabitCommandsQueueWhileOffline(t *testing.T) {
	ctx := setupTestContext(t, unreachableURL())

	if err := (&HabitAddCmd{Name: "Water", Category: "health", Frequency: "daily", Goal: 8, Unit: "glasses"}).Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}
	if err := (&HabitProgressCmd{ID: -1, Delta: 3}).Run(ctx); err != nil {
		t.Fatalf("habit progress failed: %v", err)
	}

	entry := cache.NewFileStore(ctx.Config.Client.CachePath).Load()
	if len(entry.PendingActions) != 2 {
		t.Fatalf("expected 2 pending actions, got %d", len(entry.PendingActions))
	}
	if entry.PendingActions[0].Type != constants.ActionCreateHabit || entry.PendingActions[1].Type != constants.ActionProgressHabit {
		t.Errorf("unexpected queue order: %s, %s", entry.PendingActions[0].Type, entry.PendingActions[1].Type)
	}
	if len(entry.Habits) != 1 || entry.Habits[0].TodayProgress != 3 {
		t.Errorf("expected optimistic progress 3, got %+v", entry.Habits)
	}

	if err := (&HabitToggleCmd{ID: 42}).Run(ctx); err == nil {
		t.Error("expected error toggling an unknown habit")
	}
}

func TestHabitCommandsSyncWhenOnline(t *testing.T) {
	ctx := setupTestContext(t, startTestServer(t))

	if err := (&HabitAddCmd{Name: "Read", Category: "learning", Frequency: "daily", Goal: 1, Unit: "times"}).Run(ctx); err != nil {
		t.Fatalf("habit add failed: %v", err)
	}

	entry := cache.NewFileStore(ctx.Config.Client.CachePath).Load()
	if len(entry.PendingActions) != 0 {
		t.Fatalf("expected queue drained after add, got %d pending", len(entry.PendingActions))
	}
	if len(entry.Habits) != 1 || entry.Habits[0].ID <= 0 {
		t.Fatalf("expected the server id after sync, got %+v", entry.Habits)
	}
	id := entry.Habits[0].ID

	if err := (&HabitCompleteCmd{ID: id}).Run(ctx); err != nil {
		t.Fatalf("habit complete failed: %v", err)
	}
	entry = cache.NewFileStore(ctx.Config.Client.CachePath).Load()
	if !entry.Habits[0].IsCompletedToday || entry.Habits[0].Streak != 1 {
		t.Errorf("expected completed habit with streak 1, got %+v", entry.Habits[0])
	}
	if entry.LastSync == 0 {
		t.Error("expected lastSync to be set after a sync")
	}

	if err := (&SyncCmd{}).Run(ctx); err != nil {
		t.Errorf("sync failed: %v", err)
	}
	if err := (&StatusCmd{Verbose: true}).Run(ctx); err != nil {
		t.Errorf("status failed: %v", err)
	}
}

func TestHabitEditFields(t *testing.T) {
	cmd := &HabitEditCmd{ID: 1, Name: "Walk", Goal: 3, ClearReminder: true}
	fields, err := cmd.fields()
	if err != nil {
		t.Fatalf("fields failed: %v", err)
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %v", fields)
	}

	var name string
	if err := json.Unmarshal(fields["name"], &name); err != nil || name != "Walk" {
		t.Errorf("unexpected name field %s", fields["name"])
	}
	if string(fields["reminderTime"]) != `""` {
		t.Errorf("expected reminder cleared, got %s", fields["reminderTime"])
	}

	empty, _ := (&HabitEditCmd{ID: 1}).fields()
	if len(empty) != 0 {
		t.Errorf("expected no fields without flags, got %v", empty)
	}

	ctx := setupTestContext(t, unreachableURL())
	if err := (&HabitEditCmd{ID: 1}).Run(ctx); err == nil {
		t.Error("expected an empty edit to fail")
	}
}
