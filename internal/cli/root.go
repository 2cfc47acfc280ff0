package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/3grands/habitflow/internal/backup"
	"github.com/3grands/habitflow/internal/cache"
	"github.com/3grands/habitflow/internal/client"
	"github.com/3grands/habitflow/internal/config"
	apperrors "github.com/3grands/habitflow/internal/errors"
	"github.com/3grands/habitflow/internal/keyring"
	"github.com/3grands/habitflow/internal/logger"
	"github.com/3grands/habitflow/internal/storage"
	"github.com/3grands/habitflow/internal/storage/postgres"
	"github.com/3grands/habitflow/internal/storage/sqlite"
	hsync "github.com/3grands/habitflow/internal/sync"
	"github.com/3grands/habitflow/internal/utils"
)

const (
	// KeyringDatabase as the database setting reads the connection string from the OS keyring
	KeyringDatabase = "keyring"
	// ConnectionEnv may carry a full PostgreSQL connection string, password included
	ConnectionEnv = "HABITFLOW_DB_CONNECTION"
)

type Context struct {
	Config     config.Config
	ConfigPath string
}

// isPostgresTarget accepts both URL and key=value connection strings.
func isPostgresTarget(target string) bool {
	return storage.IsPostgresConnString(target) || strings.Contains(target, "host=")
}

// DatabaseTarget resolves where the server database lives. Passwords are only accepted
// from the environment or the keyring, never from flags or the config file.
func (c *Context) DatabaseTarget() (string, error) {
	if conn := os.Getenv(ConnectionEnv); conn != "" {
		return conn, nil
	}

	target := c.Config.Server.Database
	if target == KeyringDatabase {
		conn, err := keyring.ConnectionString.Get()
		if err != nil {
			if apperrors.Is(err, keyring.ErrNotFound) {
				return "", fmt.Errorf("no connection string in keyring, use 'habitflow keyring set' to store one")
			}
			return "", fmt.Errorf("failed to read connection string from keyring: %w", err)
		}
		return conn, nil
	}

	if isPostgresTarget(target) && storage.HasEmbeddedCredentials(target) {
		return "", fmt.Errorf("%w: PostgreSQL connection strings with embedded credentials are not allowed; "+
			"use the OS keyring ('habitflow keyring set'), %s, or a .pgpass file", postgres.ErrEmbeddedCredentials, ConnectionEnv)
	}
	return target, nil
}

// NewStore returns an unopened store for target.
func NewStore(target string) storage.Provider {
	if isPostgresTarget(target) {
		return postgres.New(target)
	}
	return sqlite.NewStore(utils.ExpandHome(target))
}

// OpenStore resolves the database and loads it.
func (c *Context) OpenStore() (storage.Provider, error) {
	target, err := c.DatabaseTarget()
	if err != nil {
		return nil, err
	}
	store := NewStore(target)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// PerformAutomaticBackup backs up a SQLite store and only logs failures.
func PerformAutomaticBackup(store storage.Provider) {
	if _, ok := store.(*sqlite.Store); !ok {
		return
	}
	mgr := backup.NewManager(store.GetConfigPath())
	if _, err := mgr.CreateBackup(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Session is the client side of one command: the offline cache, the API client behind
// it and the sync machinery.
type Session struct {
	Cache    *cache.Cache
	Client   *client.Client
	Monitor  *hsync.Monitor
	Engine   *hsync.Engine
	LockPath string
}

// OpenSession opens the cache and probes the server once so reads know whether to go
// to the network.
func (c *Context) OpenSession(ctx context.Context) (*Session, error) {
	cfg := c.Config.Client
	loc, err := utils.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := client.New(cfg.ServerURL, cfg.RequestTimeout)
	monitor := hsync.NewMonitor(cl.Health, cfg.ProbeInterval)
	ca := cache.New(cache.Options{
		Path:     cfg.CachePath,
		Source:   cl,
		Online:   monitor.Online,
		Location: loc,
	})
	if err := ca.Open(); err != nil {
		return nil, err
	}
	monitor.Check(ctx)

	return &Session{
		Cache:    ca,
		Client:   cl,
		Monitor:  monitor,
		Engine:   hsync.NewEngine(ca, cl),
		LockPath: hsync.LockPath(cfg.CachePath),
	}, nil
}

func (s *Session) Close() error {
	return s.Cache.Close()
}

// Sync drains the queue while holding the cross-process sync lock.
func (s *Session) Sync(ctx context.Context, trigger hsync.Trigger) (hsync.Report, error) {
	lock, err := hsync.AcquireLock(s.LockPath)
	if err != nil {
		return hsync.Report{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release sync lock", "error", err)
		}
	}()
	return s.Engine.Sync(ctx, trigger), nil
}

// pushPending tries to send queued changes right after a mutation. Failing to reach
// the server is not an error; the change stays queued.
func (s *Session) pushPending(ctx context.Context) {
	if !s.Monitor.Online() {
		fmt.Printf("Offline: change queued (%d pending)\n", len(s.Cache.Pending()))
		return
	}
	report, err := s.Sync(ctx, hsync.TriggerManual)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrSyncInProgress) {
			fmt.Println("Change queued; the running sync will push it.")
			return
		}
		logger.Warn("failed to push change", "error", err)
		return
	}
	if report.Err != nil {
		fmt.Printf("Change queued, server did not accept it yet (%d pending)\n", report.Remaining)
	}
}

func summarize(r hsync.Report) string {
	if r.Skipped {
		return "sync already running"
	}
	s := fmt.Sprintf("applied %d, dropped %d, %d pending", r.Applied, r.Dropped, r.Remaining)
	if r.Err != nil {
		s += fmt.Sprintf(" (stopped: %v)", r.Err)
	}
	return s
}
