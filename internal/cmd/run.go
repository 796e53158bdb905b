package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ui"
)

// RunCmd starts the TUI application
type RunCmd struct {
	Dev             bool   `help:"Enable development mode (shows version info in dialogs)"`
	ErrorClearDelay int    `help:"Seconds before error messages auto-clear" default:"10"`
	Tool            string `help:"Default tool preselected in the create form" default:"claude"`
}

// Run executes the TUI
func (r *RunCmd) Run(cli *CLI) error {
	// Apply RunCmd-specific settings with proper precedence
	// Only apply if flag is at default value and env var is not set

	if cli.settings != nil {
		if r.Tool == "claude" {
			if _, hasEnv := os.LookupEnv("FAROL_TOOL"); !hasEnv {
				if cli.settings.DefaultTool != "" {
					r.Tool = cli.settings.DefaultTool
				}
			}
		}
	}

	logging.Logger.Info("Starting farol TUI")

	// One engine per registry database; a second instance would respawn
	// sessions already owned by the first.
	unlock, err := acquireInstanceLock()
	if err != nil {
		return err
	}
	defer unlock()

	ctx := context.Background()
	if err := cli.Container.Manager.RestoreSessions(ctx); err != nil {
		logging.Logger.Warn("Failed to restore sessions", "error", err)
	}

	logging.Logger.Debug("Initializing Bubble Tea program")
	p := tea.NewProgram(
		ui.NewModel(ui.ModelConfig{
			DefaultTool:     r.Tool,
			DevMode:         r.Dev,
			ErrorClearDelay: time.Duration(r.ErrorClearDelay) * time.Second,
			Manager:         cli.Container.Manager,
			Tools:           cli.Container.Tools(),
		}),
		tea.WithAltScreen(),       // Use alternate screen buffer
		tea.WithMouseCellMotion(), // Enable mouse support
	)

	logging.Logger.Info("Starting TUI program")
	if _, err := p.Run(); err != nil {
		logging.Logger.Error("TUI program error", "error", err)
		return fmt.Errorf("error running program: %w", err)
	}

	logging.Logger.Info("TUI program exited normally")
	return nil
}
