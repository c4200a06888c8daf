package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/chartwatch/internal/repositories"
	"github.com/desertthunder/chartwatch/internal/shared"
	"github.com/desertthunder/chartwatch/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive browser over recorded hits.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, owned, err := r.database()
	if err != nil {
		return err
	}
	if owned {
		defer db.Close()
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/chartwatch-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	repo := repositories.NewCheckRepository(db)
	model := ui.NewModel(ctx, repo)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
