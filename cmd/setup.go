package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
//
// A missing config file is created from the embedded template first.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.logger.Info("config file created", "path", configPath)
			r.config = nil
			if err := r.loadConfig(configPath); err != nil {
				return err
			}
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}

	state, err := shared.Migrations(db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v (%d migrations applied)", r.config.Database.Path, len(state.Applied))
	return nil
}

// MigrationStatus prints the applied and pending migrations.
func (r *Runner) MigrationStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabaseWithTimeout(r.config.Database.Path, r.config.Database.BusyTimeoutMS)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	r.closers = append(r.closers, db.Close)

	state, err := shared.Migrations(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	for _, v := range state.Applied {
		r.writePlain("  ✓ %04d applied\n", v)
	}
	for _, v := range state.Pending {
		r.writePlain("  · %04d pending\n", v)
	}
	return r.writePlainln("%d applied, %d pending", len(state.Applied), len(state.Pending))
}
