package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/3grands/habitflow/internal/backup"
	"github.com/3grands/habitflow/internal/cache"
	"github.com/3grands/habitflow/internal/client"
	"github.com/3grands/habitflow/internal/storage"
	"github.com/3grands/habitflow/internal/storage/sqlite"
	"github.com/3grands/habitflow/internal/utils"
)

type DoctorCmd struct{}

type check struct {
	name string
	// warnOnly checks print a warning instead of failing the run
	warnOnly bool
	run      func() error
}

func (cmd *DoctorCmd) Run(ctx *Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	var store storage.Provider
	defer func() {
		if store != nil {
			store.Close()
		}
	}()

	checks := []check{
		{name: "Database reachable", run: func() error {
			s, err := ctx.OpenStore()
			if err != nil {
				return err
			}
			store = s
			return checkDBReachable(s)
		}},
		{name: "Migrations complete", run: func() error {
			if store == nil {
				return errSkipped
			}
			return checkMigrationsComplete(store)
		}},
		{name: "Backups present", warnOnly: true, run: func() error {
			if store == nil {
				return errSkipped
			}
			return checkBackupsPresent(store)
		}},
		{name: "Clock/timezone", run: func() error {
			return checkClockTimezone(ctx)
		}},
		{name: "Offline cache", warnOnly: true, run: func() error {
			return checkCache(ctx)
		}},
		{name: "Server reachable", warnOnly: true, run: func() error {
			return checkServer(ctx)
		}},
	}

	hasError := false
	for _, c := range checks {
		err := c.run()
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case errors.Is(err, errSkipped):
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
		case c.warnOnly:
			fmt.Printf("⚠ %s: WARNING\n", c.name)
			fmt.Printf("   %v\n", err)
		default:
			fmt.Printf("❌ %s: FAIL\n", c.name)
			fmt.Printf("   Error: %v\n", err)
			hasError = true
		}
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}

	fmt.Println("All diagnostics passed!")
	return nil
}

var errSkipped = errors.New("skipped")

func checkDBReachable(store storage.Provider) error {
	db := store.GetDB()
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkMigrationsComplete(store storage.Provider) error {
	runner, err := runnerFor(store)
	if err != nil {
		return err
	}
	if err := runner.ValidateVersion(); err != nil {
		return err
	}
	pending, err := runner.Pending()
	if err != nil {
		return err
	}
	if pending > 0 {
		return fmt.Errorf("%d pending migration(s), run 'habitflow migrate'", pending)
	}
	return nil
}

func checkBackupsPresent(store storage.Provider) error {
	if _, ok := store.(*sqlite.Store); !ok {
		// PostgreSQL backups are the server operator's job
		return nil
	}
	mgr := backup.NewManager(store.GetConfigPath())
	latest, ok, err := mgr.Latest()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no backups found in %s", mgr.Dir())
	}
	if age := time.Since(latest.Timestamp); age > 7*24*time.Hour {
		return fmt.Errorf("latest backup is %d days old", int(age.Hours()/24))
	}
	return nil
}

func checkClockTimezone(ctx *Context) error {
	for _, tz := range []string{ctx.Config.Server.Timezone, ctx.Config.Client.Timezone} {
		if _, err := utils.LoadLocation(tz); err != nil {
			return err
		}
	}
	if now := time.Now(); now.Year() < 2020 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkCache(ctx *Context) error {
	path := ctx.Config.Client.CachePath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("no cache yet at %s", path)
	}
	entry := cache.NewFileStore(path).Load()
	if n := len(entry.PendingActions); n > 0 {
		return fmt.Errorf("%d action(s) waiting to sync", n)
	}
	return nil
}

func checkServer(ctx *Context) error {
	cfg := ctx.Config.Client
	reqCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := client.New(cfg.ServerURL, cfg.RequestTimeout).Health(reqCtx); err != nil {
		return fmt.Errorf("%s: %w", cfg.ServerURL, err)
	}
	return nil
}
