// Package sync drains the offline cache's pending-action queue against the server and
// decides when a drain runs.
package sync

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/3grands/habitflow/internal/cache"
	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/metrics"
	"github.com/3grands/habitflow/internal/models"
)

// Trigger names why a sync ran. It only affects logging and metrics.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerInterval  Trigger = "interval"
	TriggerReconnect Trigger = "reconnect"
)

// Remote is the part of the API client the drainer needs. Day transitions carry the
// calendar date the action was recorded on.
type Remote interface {
	CreateHabit(ctx context.Context, in models.NewHabit) (models.Habit, error)
	UpdateHabit(ctx context.Context, id int64, fields json.RawMessage) (models.Habit, error)
	DeleteHabit(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, date string) (models.Transition, error)
	Undo(ctx context.Context, id int64, date string) (models.Transition, error)
	RecordProgress(ctx context.Context, id int64, delta int, date string) (models.Transition, error)
}

// Report is the outcome of one Sync call.
type Report struct {
	Trigger Trigger
	// Skipped is set when another drain was already running
	Skipped bool
	Applied int
	Dropped int
	// Remaining is the queue length after the drain
	Remaining int
	Refreshed bool
	// Err is the transient failure that stopped the drain, if any
	Err      error
	Duration time.Duration
}

// Outcome is the metrics label of the report.
func (r Report) Outcome() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.Err != nil:
		return "interrupted"
	default:
		return "completed"
	}
}

// Engine drains the queue one action at a time. Only one drain runs at once no matter
// how many triggers fire.
type Engine struct {
	cache   *cache.Cache
	remote  Remote
	running atomic.Bool
}

func NewEngine(c *cache.Cache, remote Remote) *Engine {
	return &Engine{cache: c, remote: remote}
}

// Running reports whether a drain is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Sync drains the queue in FIFO order and refreshes the snapshot afterwards, also when
// the drain stopped early. A caller arriving while a drain runs gets a skipped report
// immediately.
func (e *Engine) Sync(ctx context.Context, trigger Trigger) Report {
	if !e.running.CompareAndSwap(false, true) {
		metrics.RecordSyncRun(string(trigger), "skipped", 0)
		logger.Debug("sync skipped, drain already running", "trigger", trigger)
		return Report{Trigger: trigger, Skipped: true}
	}
	defer e.running.Store(false)

	e.cache.SetSyncing(true)
	defer e.cache.SetSyncing(false)

	start := time.Now()
	report := Report{Trigger: trigger}
	if err := e.cache.Reload(); err != nil {
		report.Err = err
		report.Duration = time.Since(start)
		metrics.RecordSyncRun(string(trigger), report.Outcome(), report.Duration)
		logger.Warn("sync aborted, cache unavailable", "trigger", trigger, "error", err)
		return report
	}
	e.drain(ctx, &report)

	if ctx.Err() == nil && e.cache.Online() {
		if err := e.cache.Refresh(ctx); err != nil {
			logger.Warn("failed to refresh after sync", "trigger", trigger, "error", err)
		} else {
			report.Refreshed = true
		}
	}

	report.Remaining = len(e.cache.Pending())
	report.Duration = time.Since(start)
	metrics.RecordSyncRun(string(trigger), report.Outcome(), report.Duration)
	metrics.SetPending(report.Remaining)

	if report.Err != nil {
		logger.Warn("sync stopped early", "trigger", trigger, "applied", report.Applied,
			"remaining", report.Remaining, "error", report.Err)
	} else {
		logger.Info("sync finished", "trigger", trigger, "applied", report.Applied,
			"dropped", report.Dropped, "remaining", report.Remaining)
	}
	return report
}

func (e *Engine) drain(ctx context.Context, report *Report) {
	for {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return
		}

		pending := e.cache.Pending()
		if len(pending) == 0 {
			return
		}
		action := pending[0]

		err := e.apply(ctx, action)
		switch {
		case err == nil:
			metrics.RecordAction(string(action.Type), "applied")
			report.Applied++
		case apperrors.IsPermanent(err):
			metrics.RecordAction(string(action.Type), "dropped")
			logger.Warn("dropping rejected action", "id", action.ID, "type", action.Type, "error", err)
			report.Dropped++
		default:
			metrics.RecordAction(string(action.Type), "retry")
			report.Err = err
			return
		}

		if err := e.cache.Remove(action.ID); err != nil {
			report.Err = err
			return
		}
	}
}

func (e *Engine) apply(ctx context.Context, a models.PendingAction) error {
	if a.HabitID == nil {
		return apperrors.Validation("action %s has no habit id", a.ID)
	}
	id := *a.HabitID

	if a.Type == constants.ActionCreateHabit {
		var in models.NewHabit
		if err := a.DecodePayload(&in); err != nil {
			return apperrors.Validation("%v", err)
		}
		h, err := e.remote.CreateHabit(ctx, in)
		if err != nil {
			return err
		}
		if id < 0 {
			return e.cache.RemapID(id, h.ID)
		}
		return nil
	}

	// a temporary id left here means its create was rejected
	if id < 0 {
		return apperrors.NotFound("habit %d was never created on the server", id)
	}

	date := e.cache.ActionDate(a)

	var err error
	switch a.Type {
	case constants.ActionCompleteHabit:
		_, err = e.remote.Complete(ctx, id, date)
	case constants.ActionUndoHabit:
		_, err = e.remote.Undo(ctx, id, date)
	case constants.ActionProgressHabit:
		var p models.ProgressPayload
		if err := a.DecodePayload(&p); err != nil {
			return apperrors.Validation("%v", err)
		}
		_, err = e.remote.RecordProgress(ctx, id, p.Delta, date)
	case constants.ActionUpdateHabit:
		_, err = e.remote.UpdateHabit(ctx, id, a.Payload)
	case constants.ActionDeleteHabit:
		err = e.remote.DeleteHabit(ctx, id)
	default:
		err = apperrors.Validation("unknown action type %q", a.Type)
	}
	return err
}
