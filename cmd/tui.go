package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/duskview/aidj/internal/mix"
	"github.com/duskview/aidj/internal/session"
	"github.com/duskview/aidj/internal/shared"
	"github.com/duskview/aidj/internal/ui"
)

// followTUI renders the running session in the interactive progress view.
// Returns the result when the session completed, nil when it was
// cancelled from the view.
func (r *Runner) followTUI(ctx context.Context, prompt string) (*mix.MixResult, error) {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/aidj-tui.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	stderrLogger := r.logger
	r.SetLogger(fileLogger)
	defer r.SetLogger(stderrLogger)

	model := ui.NewModel(r.orch, prompt)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	switch r.orch.State() {
	case session.StateComplete:
		return r.orch.Result(), nil
	case session.StateCancelled:
		return nil, nil
	default:
		return nil, r.orch.Err()
	}
}
