package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"
)

type flakyProbe struct {
	mu gosync.Mutex
	up bool
}

func (p *flakyProbe) set(up bool) {
	p.mu.Lock()
	p.up = up
	p.mu.Unlock()
}

func (p *flakyProbe) probe(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.up {
		return errors.New("connection refused")
	}
	return nil
}

func TestMonitorCheckTransitions(t *testing.T) {
	p := &flakyProbe{}
	m := NewMonitor(p.probe, time.Second)

	if m.Check(context.Background()) {
		t.Error("offline probe should not report a reconnect")
	}
	if m.Online() {
		t.Error("monitor should be offline")
	}

	p.set(true)
	if !m.Check(context.Background()) {
		t.Error("expected a reconnect edge")
	}
	if m.Check(context.Background()) {
		t.Error("staying online is not a reconnect")
	}

	p.set(false)
	m.Check(context.Background())
	p.set(true)
	if !m.Check(context.Background()) {
		t.Error("expected a second reconnect edge")
	}
}

func TestOrchestratorSyncsOnReconnect(t *testing.T) {
	c := setupTestCache(t)
	createOffline(t, c, "Water")

	p := &flakyProbe{}
	remote := &fakeRemote{}
	orch := NewOrchestrator(NewEngine(c, remote), NewMonitor(p.probe, 10*time.Millisecond), time.Hour)

	reports := make(chan Report, 4)
	orch.OnReport = func(r Report) { reports <- r }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- orch.Run(ctx) }()

	select {
	case r := <-reports:
		t.Fatalf("no sync should run while offline, got %+v", r)
	case <-time.After(50 * time.Millisecond):
	}

	p.set(true)
	select {
	case r := <-reports:
		if r.Trigger != TriggerReconnect || r.Applied != 1 {
			t.Errorf("unexpected report: %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect did not trigger a sync")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("orchestrator did not stop")
	}
}

func TestOrchestratorIntervalTrigger(t *testing.T) {
	c := setupTestCache(t)

	p := &flakyProbe{up: true}
	orch := NewOrchestrator(NewEngine(c, &fakeRemote{}), NewMonitor(p.probe, time.Hour), 20*time.Millisecond)

	reports := make(chan Report, 16)
	orch.OnReport = func(r Report) {
		select {
		case reports <- r:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orch.Run(ctx)

	seen := map[Trigger]bool{}
	deadline := time.After(2 * time.Second)
	for !seen[TriggerInterval] {
		select {
		case r := <-reports:
			seen[r.Trigger] = true
		case <-deadline:
			t.Fatalf("no interval sync, saw %v", seen)
		}
	}
	if !seen[TriggerReconnect] {
		t.Error("the first successful probe should count as a reconnect")
	}
}
