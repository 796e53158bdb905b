package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap contains all keyboard shortcuts organized by context
type KeyMap struct {
	Application ApplicationKeys
	Attach      AttachKeys
	Navigation  NavigationKeys
	Session     SessionKeys
}

// ApplicationKeys defines key bindings for application-level actions
type ApplicationKeys struct {
	ForceQuit key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// AttachKeys defines key bindings active while attached to a session.
// Everything else is forwarded to the session's terminal verbatim.
type AttachKeys struct {
	Detach key.Binding
}

// NavigationKeys defines key bindings for navigating the session list
type NavigationKeys struct {
	ClearFilter key.Binding
	Down        key.Binding
	Filter      key.Binding
	Up          key.Binding
}

// SessionKeys defines key bindings for session lifecycle actions
type SessionKeys struct {
	Destroy   key.Binding
	New       key.Binding
	Open      key.Binding
	QuickOpen key.Binding
}

// NewKeyMap creates a KeyMap with all bindings initialized
func NewKeyMap() KeyMap {
	return KeyMap{
		Application: ApplicationKeys{
			ForceQuit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "force quit"),
			),
			Help: key.NewBinding(
				key.WithKeys("h", "?"),
				key.WithHelp("h/?", "show keyboard shortcuts"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q"),
				key.WithHelp("q", "exit application"),
			),
		},
		Attach: AttachKeys{
			Detach: key.NewBinding(
				key.WithKeys("ctrl+q"),
				key.WithHelp("ctrl+q", "detach (return to list)"),
			),
		},
		Navigation: NavigationKeys{
			ClearFilter: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "clear filter"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "select next session"),
			),
			Filter: key.NewBinding(
				key.WithKeys("/"),
				key.WithHelp("/", "filter session list"),
			),
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "select previous session"),
			),
		},
		Session: SessionKeys{
			Destroy: key.NewBinding(
				key.WithKeys("x"),
				key.WithHelp("x", "destroy session"),
			),
			New: key.NewBinding(
				key.WithKeys("n"),
				key.WithHelp("n", "create new session"),
			),
			Open: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "attach to session"),
			),
			QuickOpen: key.NewBinding(
				key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
				key.WithHelp("1-9", "attach by number"),
			),
		},
	}
}

// ShortHelp returns the curated bindings for the bottom bar.
// ctrl+q is excluded since it only applies while attached.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Session.Open,
		k.Session.New,
		k.Session.Destroy,
		k.Navigation.Filter,
		k.Application.Help,
		k.Application.Quit,
	}
}
