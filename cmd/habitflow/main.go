package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/3grands/habitflow/internal/cli"
	"github.com/3grands/habitflow/internal/config"
	"github.com/3grands/habitflow/internal/constants"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/utils"
)

var CLI struct {
	Version    kong.VersionFlag
	Debug      bool   `help:"Enable debug logging." env:"HABITFLOW_DEBUG"`
	ConfigFile string `help:"Config file path." default:"${config_file}" env:"HABITFLOW_CONFIG"`
	Database   string `help:"Server database: SQLite path, PostgreSQL connection string without credentials, or 'keyring'." env:"HABITFLOW_DATABASE"`
	Server     string `help:"Server URL used by client commands." env:"HABITFLOW_SERVER_URL"`
	Cache      string `help:"Offline cache file." env:"HABITFLOW_CACHE"`
	Timezone   string `help:"IANA timezone for both server and client." env:"HABITFLOW_TIMEZONE"`

	Serve   cli.ServeCmd   `cmd:"" help:"Run the HTTP API server."`
	Init    cli.InitCmd    `cmd:"" help:"Initialize habitflow storage."`
	Migrate cli.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  cli.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Backup  struct {
		Create  cli.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    cli.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore cli.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Keyring struct {
		Set    cli.KeyringSetCmd    `cmd:"" help:"Store the database connection string."`
		Get    cli.KeyringGetCmd    `cmd:"" help:"Show the stored connection string."`
		Delete cli.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status cli.KeyringStatusCmd `cmd:"" help:"Check keyring availability." default:"1"`
	} `cmd:"" help:"Manage credentials in the OS keyring."`

	Habit  cli.HabitCmd  `cmd:"" help:"Manage habits and today's progress."`
	Stats  cli.StatsCmd  `cmd:"" help:"Show today's and this week's completion."`
	Status cli.StatusCmd `cmd:"" help:"Show offline cache and sync state."`
	Sync   cli.SyncCmd   `cmd:"" help:"Push queued changes to the server now."`
	Watch  cli.WatchCmd  `cmd:"" help:"Sync in the background until interrupted."`
	Mood   cli.MoodCmd   `cmd:"" help:"Record and review mood."`
	Coach  cli.CoachCmd  `cmd:"" help:"Show a coaching tip."`
	Tui    cli.TuiCmd    `cmd:"" help:"Launch the interactive TUI." default:"1"`
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(CLI.ConfigFile)
	if err != nil {
		return cfg, err
	}
	if CLI.Debug {
		cfg.Debug = true
	}
	if CLI.Database != "" {
		cfg.Server.Database = utils.ExpandHome(CLI.Database)
	}
	if CLI.Server != "" {
		cfg.Client.ServerURL = CLI.Server
	}
	if CLI.Cache != "" {
		cfg.Client.CachePath = utils.ExpandHome(CLI.Cache)
	}
	if CLI.Timezone != "" {
		cfg.Server.Timezone = CLI.Timezone
		cfg.Client.Timezone = CLI.Timezone
	}
	return cfg, cfg.Validate()
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracker with an offline-first client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version":     constants.Version,
			"config_file": config.DefaultPath,
		},
	)

	cfg, err := loadConfig()
	if err != nil {
		apperrors.Fatal(fmt.Errorf("invalid configuration: %w", err))
	}

	command := ctx.Command()
	logCfg := logger.Config{
		Debug:      cfg.Debug,
		ConfigDir:  filepath.Dir(utils.ExpandHome(CLI.ConfigFile)),
		Level:      cfg.Logging.Level,
		JSON:       cfg.Logging.Format == "json",
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		// long-running commands log to stderr too
		Stderr: strings.HasPrefix(command, "serve") || strings.HasPrefix(command, "watch"),
	}
	if strings.HasPrefix(command, "serve") {
		logCfg.FileName = "server.log"
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{
		Config:     cfg,
		ConfigPath: CLI.ConfigFile,
	}

	if err := ctx.Run(appCtx); err != nil {
		apperrors.Fatal(err)
	}
}
