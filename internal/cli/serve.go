package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/3grands/habitflow/internal/api"
	"github.com/3grands/habitflow/internal/coach"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/service"
	"github.com/3grands/habitflow/internal/utils"
)

type ServeCmd struct {
	Listen string `help:"Address to listen on." env:"HABITFLOW_LISTEN"`
}

func (c *ServeCmd) Run(ctx *Context) error {
	cfg := ctx.Config.Server
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}

	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		return err
	}

	store, err := ctx.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()
	PerformAutomaticBackup(store)

	var tips coach.Coach = coach.RuleCoach{}
	if cfg.CoachURL != "" {
		tips = coach.NewRemoteCoach(cfg.CoachURL, ctx.Config.Client.RequestTimeout)
		logger.Info("using remote coaching service", "url", cfg.CoachURL)
	}

	svc := service.NewHabitService(store, utils.SystemClock(loc), loc)
	server := api.NewServer(cfg.Listen, api.NewHandler(svc, tips))

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(runCtx)
}
