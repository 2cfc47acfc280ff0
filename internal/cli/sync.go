package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/3grands/habitflow/internal/logger"
	hsync "github.com/3grands/habitflow/internal/sync"
)

type SyncCmd struct{}

func (c *SyncCmd) Run(ctx *Context) error {
	return withSession(ctx, func(cc context.Context, s *Session) error {
		if !s.Monitor.Online() {
			fmt.Printf("Server unreachable: %d action(s) stay queued.\n", len(s.Cache.Pending()))
			return nil
		}
		report, err := s.Sync(cc, hsync.TriggerManual)
		if err != nil {
			return err
		}
		fmt.Printf("Sync %s: %s\n", report.Outcome(), summarize(report))
		return nil
	})
}

// WatchCmd keeps the cache in sync until interrupted.
type WatchCmd struct{}

func (c *WatchCmd) Run(ctx *Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := ctx.OpenSession(runCtx)
	if err != nil {
		return err
	}
	defer s.Close()

	lock, err := hsync.AcquireLock(s.LockPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release sync lock", "error", err)
		}
	}()

	orch := hsync.NewOrchestrator(s.Engine, s.Monitor, ctx.Config.Client.SyncInterval)
	orch.OnReport = func(r hsync.Report) {
		if !r.Skipped {
			fmt.Printf("[%s] %s\n", r.Trigger, summarize(r))
		}
	}
	fmt.Printf("Watching %s (Ctrl+C to stop)\n", s.Client.BaseURL())
	return orch.Run(runCtx)
}
