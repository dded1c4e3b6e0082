package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plmirror/internal/shared"
	"github.com/desertthunder/plmirror/internal/tasks"
	"github.com/desertthunder/plmirror/internal/ui"
)

// TUI launches the interactive library browser.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/plmirror-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	level, _ := shared.ParseLogLevel(r.config.Log.Level)
	shared.SetLogLevel(fileLogger, level)
	r.logger = fileLogger

	if err := r.open(ctx); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.engine, cmd.Int64("user"), tasks.BulkExportOpts{
		Format:    cmd.String("export-format"),
		OutputDir: cmd.String("export-dir"),
	})
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
