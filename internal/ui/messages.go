package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/farol/internal/domain"
)

// Action messages emitted by the session list and handled by Model.
// Each message type represents one action the user asked for.

// AttachSessionMsg requests attaching to a session's live screen
type AttachSessionMsg struct {
	WorkDir string
}

// DestroySessionMsg requests the destroy confirmation for a session
type DestroySessionMsg struct {
	WorkDir string
}

// NewSessionMsg requests showing the create session dialog
type NewSessionMsg struct{}

// QuitMsg requests quitting the application
type QuitMsg struct{}

// ShowHelpMsg requests showing the help screen
type ShowHelpMsg struct{}

// engineEventMsg wraps one engine notification for the tea loop. The
// pump command re-arms itself after every delivery.
type engineEventMsg struct {
	event domain.Notification
}

// waitForEvent blocks on the engine's event channel and converts the
// next notification into a tea.Msg. Returns nil once the channel is
// drained and the engine closed.
func waitForEvent(events <-chan domain.Notification) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return engineEventMsg{event: ev}
	}
}
