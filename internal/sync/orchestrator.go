package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"time"

	"github.com/3grands/habitflow/internal/constants"
	"github.com/3grands/habitflow/internal/logger"
)

// Monitor probes the server periodically and tracks whether it is reachable. It starts
// out offline, so the first successful probe counts as a reconnect.
type Monitor struct {
	probe    func(ctx context.Context) error
	interval time.Duration
	online   atomic.Bool
}

func NewMonitor(probe func(ctx context.Context) error, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = constants.DefaultProbeInterval
	}
	return &Monitor{probe: probe, interval: interval}
}

// Online reports the result of the last probe.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Check probes once and reports whether the server just came back.
func (m *Monitor) Check(ctx context.Context) bool {
	err := m.probe(ctx)
	now := err == nil
	was := m.online.Swap(now)
	if was != now {
		if now {
			logger.Info("server reachable")
		} else {
			logger.Warn("server unreachable", "error", err)
		}
	}
	return now && !was
}

// Run probes until ctx is done and calls onReconnect on every offline to online edge.
func (m *Monitor) Run(ctx context.Context, onReconnect func()) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		if m.Check(ctx) {
			onReconnect()
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Orchestrator feeds interval and reconnect triggers into a single consumer that runs
// the engine. Triggers arriving while one is queued are coalesced.
type Orchestrator struct {
	engine   *Engine
	monitor  *Monitor
	interval time.Duration
	// OnReport, when set, receives every report the consumer produces
	OnReport func(Report)
}

func NewOrchestrator(engine *Engine, monitor *Monitor, interval time.Duration) *Orchestrator {
	if interval <= 0 {
		interval = constants.DefaultSyncInterval
	}
	return &Orchestrator{engine: engine, monitor: monitor, interval: interval}
}

// Run blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	triggers := make(chan Trigger, 1)
	push := func(t Trigger) {
		select {
		case triggers <- t:
		default:
			logger.Debug("sync trigger coalesced", "trigger", t)
		}
	}

	var wg gosync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		o.monitor.Run(ctx, func() { push(TriggerReconnect) })
	}()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if o.monitor.Online() {
					push(TriggerInterval)
				}
			}
		}
	}()

	logger.Info("sync orchestrator started", "interval", o.interval, "probe", o.monitor.interval)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			logger.Info("sync orchestrator stopped")
			return nil
		case t := <-triggers:
			report := o.engine.Sync(ctx, t)
			if o.OnReport != nil {
				o.OnReport(report)
			}
		}
	}
}
