package cli

import (
	"context"

	"github.com/3grands/habitflow/internal/logger"
	hsync "github.com/3grands/habitflow/internal/sync"
	"github.com/3grands/habitflow/internal/tui"
)

type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := ctx.OpenSession(runCtx)
	if err != nil {
		return err
	}
	defer s.Close()

	// keep the offline badge current while the UI is up
	go s.Monitor.Run(runCtx, func() {
		logger.Info("server reachable again")
	})

	syncFn := func(c context.Context) (string, error) {
		if !s.Monitor.Check(c) && !s.Monitor.Online() {
			return "server unreachable, changes stay queued", nil
		}
		report, err := s.Sync(c, hsync.TriggerManual)
		if err != nil {
			return "", err
		}
		return summarize(report), nil
	}
	return tui.Run(s.Cache, syncFn)
}
