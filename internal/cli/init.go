package cli

import (
	"fmt"
	"os"

	"github.com/3grands/habitflow/internal/config"
	"github.com/3grands/habitflow/internal/utils"
)

type InitCmd struct {
	WriteConfig bool `help:"Write the effective configuration to the config file, replacing it."`
}

func (c *InitCmd) Run(ctx *Context) error {
	target, err := ctx.DatabaseTarget()
	if err != nil {
		return err
	}

	store := NewStore(target)
	if err := store.Init(); err != nil {
		return err
	}
	defer store.Close()
	fmt.Printf("Initialized habitflow storage at: %s\n", maskPassword(store.GetConfigPath()))

	path := utils.ExpandHome(ctx.ConfigPath)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil && !c.WriteConfig {
		return nil
	} else if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to access config file: %w", err)
	}

	if err := config.Save(path, ctx.Config); err != nil {
		return err
	}
	fmt.Printf("Wrote config to: %s\n", path)
	return nil
}
