package cli

import (
	"fmt"

	"github.com/3grands/habitflow/internal/migration"
	"github.com/3grands/habitflow/internal/storage"
)

// migrator is implemented by both the SQLite and PostgreSQL stores.
type migrator interface {
	Migrator() (*migration.Runner, error)
}

func runnerFor(store storage.Provider) (*migration.Runner, error) {
	m, ok := store.(migrator)
	if !ok {
		return nil, fmt.Errorf("store does not support migrations")
	}
	return m.Migrator()
}

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *Context) error {
	store, err := ctx.OpenStore()
	if err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	defer store.Close()

	runner, err := runnerFor(store)
	if err != nil {
		return err
	}

	count, err := runner.ApplyMigrations(func(msg string) {
		fmt.Println(msg)
	})
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	if count == 0 {
		fmt.Println("No migrations to apply. Database is up to date.")
	} else {
		fmt.Printf("\nSuccessfully applied %d migration(s).\n", count)
	}
	return nil
}
