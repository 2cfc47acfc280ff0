package cli

import (
	"os"
	"testing"

	"github.com/3grands/habitflow/internal/config"
)

func TestInitCmd(t *testing.T) {
	ctx := setupTestContext(t, unreachableURL())

	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if _, err := os.Stat(ctx.Config.Server.Database); err != nil {
		t.Errorf("database file was not created: %v", err)
	}

	cfg, err := config.Load(ctx.ConfigPath)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Client.CachePath != ctx.Config.Client.CachePath {
		t.Errorf("expected cache path %q in config, got %q", ctx.Config.Client.CachePath, cfg.Client.CachePath)
	}

	// second run is idempotent and keeps the config file
	if err := (&InitCmd{}).Run(ctx); err != nil {
		t.Errorf("second init failed: %v", err)
	}
	if err := (&MigrateCmd{}).Run(ctx); err != nil {
		t.Errorf("migrate after init failed: %v", err)
	}
	if err := (&BackupCreateCmd{}).Run(ctx); err != nil {
		t.Errorf("backup create failed: %v", err)
	}
	if err := (&BackupListCmd{}).Run(ctx); err != nil {
		t.Errorf("backup list failed: %v", err)
	}
}

func TestMigrateWithoutInitFails(t *testing.T) {
	ctx := setupTestContext(t, unreachableURL())
	if err := (&MigrateCmd{}).Run(ctx); err == nil {
		t.Error("expected migrate to fail on a missing database")
	}
}
