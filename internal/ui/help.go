package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/farol/internal/theme"
)

// HelpScreen displays keyboard shortcuts organized by category
type HelpScreen struct {
	Completed bool

	content     string
	height      int
	initialized bool
	keys        *KeyMap
	viewport    viewport.Model
	width       int
}

// renderShortcut renders a single shortcut line with key and description
func renderShortcut(key, description string) string {
	return theme.HelpKeyStyle.Render(key) + theme.HelpDescStyle.Render(description) + "\n"
}

// renderBinding renders a shortcut line from a key binding
func renderBinding(binding key.Binding) string {
	help := binding.Help()
	return renderShortcut(help.Key, help.Desc)
}

// buildHelpContent builds the complete help text from the key bindings
func buildHelpContent(keys *KeyMap) string {
	var content string

	content += theme.HelpGroupStyle.Render("Navigation") + "\n"
	content += renderBinding(keys.Navigation.Up)
	content += renderBinding(keys.Navigation.Down)
	content += renderBinding(keys.Navigation.Filter)
	content += renderBinding(keys.Navigation.ClearFilter)

	content += "\n" + theme.HelpGroupStyle.Render("Sessions") + "\n"
	content += renderBinding(keys.Session.Open)
	content += renderBinding(keys.Session.QuickOpen)
	content += renderBinding(keys.Session.New)
	content += renderBinding(keys.Session.Destroy)

	content += "\n" + theme.HelpGroupStyle.Render("While Attached") + "\n"
	content += renderBinding(keys.Attach.Detach)
	content += renderShortcut("any other key", "forwarded to the session")

	content += "\n" + theme.HelpGroupStyle.Render("Application") + "\n"
	content += renderBinding(keys.Application.Help)
	content += renderBinding(keys.Application.Quit)
	content += renderBinding(keys.Application.ForceQuit)

	content += "\n" + theme.HelpGroupStyle.Render("State Indicators (read-only)") + "\n"
	content += renderShortcut("●", "session is busy")
	content += renderShortcut("○", "session is idle")
	content += renderShortcut("◐", "session is waiting for input")
	content += renderShortcut("◔", "auto-approval in flight")
	content += renderShortcut("■", "session has exited")
	content += renderShortcut("⚠", "auto-approval failed, input needed")

	return content
}

// NewHelpScreen creates the help screen component
func NewHelpScreen(keys *KeyMap) *HelpScreen {
	return &HelpScreen{
		content:  buildHelpContent(keys),
		keys:     keys,
		viewport: viewport.New(0, 0),
	}
}

// Init implements tea.Model
func (h *HelpScreen) Init() tea.Cmd {
	h.viewport.KeyMap.Up.SetKeys("up", "k")
	h.viewport.KeyMap.Down.SetKeys("down", "j")
	return nil
}

// Update implements tea.Model
func (h *HelpScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h.width = msg.Width
		h.height = msg.Height

		// Dialog header: 4 lines, footer: 2 lines
		viewportHeight := msg.Height - 6
		if viewportHeight < 5 {
			viewportHeight = 5
		}
		h.viewport.Width = msg.Width
		h.viewport.Height = viewportHeight
		h.viewport.SetContent(h.content)
		h.initialized = true
		return h, nil

	case tea.KeyMsg:
		if msg.String() == "esc" || key.Matches(msg, h.keys.Application.Quit, h.keys.Application.Help) {
			h.Completed = true
			return h, nil
		}
	}

	var cmd tea.Cmd
	h.viewport, cmd = h.viewport.Update(msg)
	return h, cmd
}

// View implements tea.Model
func (h *HelpScreen) View() string {
	if !h.initialized {
		return "Loading help..."
	}
	footer := theme.HelpStyle.Render("Press esc, q, h, or ? to close • ↑↓/jk to scroll")
	return h.viewport.View() + "\n\n" + footer
}
