package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/renato0307/farol/internal/config"
	"github.com/renato0307/farol/internal/engine"
	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/theme"
)

// sessionCreatedMsg is sent when session creation completes
type sessionCreatedMsg struct {
	err error
}

// CreateFormResult contains the outcome of the create session form
type CreateFormResult struct {
	Cancelled bool
	Error     error
	WorkDir   string
}

// CreateSessionForm collects the working directory, tool and command
// for a new session and spawns it when submitted.
type CreateSessionForm struct {
	Completed bool // Exported so Model can check completion

	args     string
	cols     int
	command  string
	creating bool
	form     *huh.Form
	manager  *engine.Manager
	result   CreateFormResult
	rows     int
	spinner  spinner.Model
	tool     string
}

// NewCreateSessionForm creates the session creation form. cols/rows are
// the geometry the new session's PTY starts with.
func NewCreateSessionForm(manager *engine.Manager, tools []string, defaultTool string, cols, rows int) *CreateSessionForm {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = theme.SpinnerStyle

	sf := &CreateSessionForm{
		cols:    cols,
		manager: manager,
		rows:    rows,
		tool:    defaultTool,
	}
	if cwd, err := os.Getwd(); err == nil {
		sf.result.WorkDir = cwd
	}
	sf.spinner = s

	sf.form = huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Working directory").
			Description("One session per directory. Must exist.").
			Value(&sf.result.WorkDir).
			Validate(func(v string) error {
				if v == "" {
					return fmt.Errorf("working directory required")
				}
				if !filepath.IsAbs(v) && !strings.HasPrefix(v, "~") {
					return fmt.Errorf("path must be absolute or start with ~")
				}
				return nil
			}),
		huh.NewSelect[string]().
			Title("Tool").
			Description("Decides how screens are read for state detection.").
			Options(huh.NewOptions(tools...)...).
			Value(&sf.tool),
		huh.NewInput().
			Title("Command (optional)").
			Description("Leave empty to run the tool name itself.").
			Placeholder(defaultTool).
			Value(&sf.command),
		huh.NewInput().
			Title("Arguments (optional)").
			Description("Space-separated arguments for the command.").
			Value(&sf.args),
	))

	return sf
}

func (sf *CreateSessionForm) Init() tea.Cmd {
	return sf.form.Init()
}

func (sf *CreateSessionForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(sessionCreatedMsg); ok {
		sf.creating = false
		sf.Completed = true
		if msg.err != nil {
			logging.Logger.Error("Failed to create session", "error", msg.err)
			sf.result.Error = msg.err
		}
		return sf, nil
	}

	if sf.creating {
		var cmd tea.Cmd
		sf.spinner, cmd = sf.spinner.Update(msg)
		return sf, cmd
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" || keyMsg.String() == "ctrl+c" {
			sf.Completed = true
			sf.result.Cancelled = true
			return sf, nil
		}
	}

	form, cmd := sf.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		sf.form = f
	}

	if sf.form.State == huh.StateCompleted && !sf.creating {
		sf.creating = true
		return sf, tea.Batch(sf.createSessionCmd(), sf.spinner.Tick)
	}

	return sf, cmd
}

func (sf *CreateSessionForm) View() string {
	if sf.creating {
		return fmt.Sprintf("\n%s Creating session...\n", sf.spinner.View())
	}
	if sf.form != nil {
		return sf.form.View()
	}
	return ""
}

// Result returns the form result
func (sf *CreateSessionForm) Result() CreateFormResult {
	return sf.result
}

// createSessionCmd spawns the session asynchronously
func (sf *CreateSessionForm) createSessionCmd() tea.Cmd {
	return func() tea.Msg {
		workDir := config.ExpandPath(sf.result.WorkDir)
		sf.result.WorkDir = workDir

		opts := engine.CreateOptions{
			WorkDir: workDir,
			Tool:    sf.tool,
			Command: sf.command,
			Args:    strings.Fields(sf.args),
			Cols:    sf.cols,
			Rows:    sf.rows,
		}
		_, err := sf.manager.CreateSession(context.Background(), opts)
		if err == nil {
			logging.Logger.Info("Session created via form",
				"workdir", workDir,
				"tool", sf.tool)
		}
		return sessionCreatedMsg{err: err}
	}
}
