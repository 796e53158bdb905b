package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/engine"
	"github.com/renato0307/farol/internal/theme"
)

const escTimeout = 500 * time.Millisecond

// checkStateMsg triggers the periodic list refresh. State changes also
// arrive as engine events; the poll keeps the age column moving and
// covers anything missed while a dialog was open.
type checkStateMsg struct{}

// stateAge remembers when a session was last seen entering its state,
// so the list can show how long it has been there.
type stateAge struct {
	state domain.SessionState
	since time.Time
}

// SessionList is the Bubble Tea component showing all live sessions
type SessionList struct {
	ages    map[string]stateAge
	keys    KeyMap
	list    list.Model
	manager *engine.Manager

	// Escape handling for filter clearing
	escPressCount int
	escPressTime  time.Time

	// Window dimensions
	height     int
	listHeight int
	width      int
}

// NewSessionList creates the session list component
func NewSessionList(manager *engine.Manager, keys KeyMap) *SessionList {
	l := list.New(nil, SessionDelegate{}, 80, 28)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	sl := &SessionList{
		ages:    make(map[string]stateAge),
		keys:    keys,
		list:    l,
		manager: manager,
	}
	sl.RefreshFromManager()
	return sl
}

// Init starts the refresh poll loop
func (sl *SessionList) Init() tea.Cmd {
	return pollStateCmd()
}

// Update handles messages for the session list component
func (sl *SessionList) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case checkStateMsg:
		// Skip the rebuild while the user is typing a filter, but keep
		// the loop alive: exactly one new poll per tick.
		if sl.list.FilterState() == list.Filtering {
			return sl, pollStateCmd()
		}
		cmd := sl.RefreshFromManager()
		return sl, tea.Batch(cmd, pollStateCmd())

	case tea.KeyMsg:
		// When actively filtering, keys belong to the filter input.
		if sl.list.FilterState() == list.Filtering {
			if msg.String() == "esc" {
				now := time.Now()
				if now.Sub(sl.escPressTime) < escTimeout && sl.escPressCount >= 1 {
					sl.list.ResetFilter()
					sl.escPressCount = 0
					return sl, nil
				}
				sl.escPressCount = 1
				sl.escPressTime = now
			}
			var cmd tea.Cmd
			sl.list, cmd = sl.list.Update(msg)
			return sl, cmd
		}

		switch {
		case key.Matches(msg, sl.keys.Application.Quit, sl.keys.Application.ForceQuit):
			return sl, actionCmd(QuitMsg{})

		case key.Matches(msg, sl.keys.Application.Help):
			return sl, actionCmd(ShowHelpMsg{})

		case key.Matches(msg, sl.keys.Session.New):
			return sl, actionCmd(NewSessionMsg{})

		case key.Matches(msg, sl.keys.Session.Open):
			if item, ok := sl.list.SelectedItem().(SessionItem); ok {
				return sl, actionCmd(AttachSessionMsg{WorkDir: item.WorkDir})
			}

		case key.Matches(msg, sl.keys.Session.Destroy):
			if item, ok := sl.list.SelectedItem().(SessionItem); ok {
				return sl, actionCmd(DestroySessionMsg{WorkDir: item.WorkDir})
			}

		case key.Matches(msg, sl.keys.Session.QuickOpen):
			index := int(msg.String()[0]-'0') - 1
			items := sl.list.VisibleItems()
			if index >= 0 && index < len(items) {
				if item, ok := items[index].(SessionItem); ok {
					sl.list.Select(index)
					return sl, actionCmd(AttachSessionMsg{WorkDir: item.WorkDir})
				}
			}

		case key.Matches(msg, sl.keys.Navigation.ClearFilter):
			if sl.list.FilterState() != list.Unfiltered {
				now := time.Now()
				if now.Sub(sl.escPressTime) < escTimeout && sl.escPressCount >= 1 {
					sl.list.ResetFilter()
					sl.escPressCount = 0
					return sl, nil
				}
				sl.escPressCount = 1
				sl.escPressTime = now
			}
			return sl, nil
		}

	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp:
			sl.list.CursorUp()
			return sl, nil
		case tea.MouseWheelDown:
			sl.list.CursorDown()
			return sl, nil
		}

	case tea.WindowSizeMsg:
		// Store dimensions - actual sizing is done by Model via SetSize()
		sl.width = msg.Width
		sl.height = msg.Height
	}

	var cmd tea.Cmd
	sl.list, cmd = sl.list.Update(msg)
	return sl, cmd
}

// View renders the session list component
func (sl *SessionList) View() string {
	var s string

	s += renderHeader(false, "")

	helpText := sl.renderStateLegend() + "  " +
		theme.HelpShortcutStyle.Render("?") + theme.HelpLabelStyle.Render(" shortcuts")
	s += theme.HelpStyle.Render(helpText) + "\n"

	if len(sl.list.Items()) == 0 {
		s += theme.HelpLabelStyle.Render("No sessions. Press ") +
			theme.HelpShortcutStyle.Render("n") +
			theme.HelpLabelStyle.Render(" to create a session.") + "\n"
	} else {
		s += sl.list.View()
	}

	// Pad to a stable height so the footer never jumps.
	expectedHeight := 5 + sl.listHeight
	actualHeight := lipgloss.Height(s)
	if actualHeight < expectedHeight {
		s += strings.Repeat("\n", expectedHeight-actualHeight)
	}

	return s
}

// SetSize sets the available size for the session list.
// width/height are the full terminal dimensions, listHeight the rows
// left for the list itself.
func (sl *SessionList) SetSize(width, height, listHeight int) {
	sl.width = width
	sl.height = height
	sl.listHeight = listHeight
	sl.list.SetSize(width, listHeight)
}

// Selected returns the currently selected session's workdir, or "".
func (sl *SessionList) Selected() string {
	if item, ok := sl.list.SelectedItem().(SessionItem); ok {
		return item.WorkDir
	}
	return ""
}

// Select moves the selection to the session with the given workdir.
func (sl *SessionList) Select(workDir string) {
	for i, it := range sl.list.Items() {
		if item, ok := it.(SessionItem); ok && item.WorkDir == workDir {
			sl.list.Select(i)
			return
		}
	}
}

// RefreshFromManager rebuilds the items from the engine's live sessions
func (sl *SessionList) RefreshFromManager() tea.Cmd {
	sessions := sl.manager.ListSessions()
	now := time.Now()

	items := make([]list.Item, 0, len(sessions))
	seen := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		data := s.State()
		workDir := s.WorkDir()
		seen[workDir] = true

		age, ok := sl.ages[workDir]
		if !ok || age.state != data.State {
			age = stateAge{state: data.State, since: now}
			sl.ages[workDir] = age
		}

		items = append(items, SessionItem{
			ApprovalFailed: data.AutoApprovalFailed,
			State:          data.State,
			StateSince:     age.since,
			Tool:           s.Tool(),
			WorkDir:        workDir,
		})
	}
	for workDir := range sl.ages {
		if !seen[workDir] {
			delete(sl.ages, workDir)
		}
	}

	return sl.list.SetItems(items)
}

// renderStateLegend summarizes how many sessions are in each state
func (sl *SessionList) renderStateLegend() string {
	counts := make(map[domain.SessionState]int)
	for _, it := range sl.list.Items() {
		if item, ok := it.(SessionItem); ok {
			counts[item.State]++
		}
	}

	legend := theme.BusyIconStyle.Render(domain.SymbolBusy) + fmt.Sprintf(" %d busy • ", counts[domain.StateBusy])
	legend += theme.IdleIconStyle.Render(domain.SymbolIdle) + fmt.Sprintf(" %d idle • ", counts[domain.StateIdle])
	legend += theme.WaitingIconStyle.Render(domain.SymbolWaitingInput) + fmt.Sprintf(" %d waiting • ", counts[domain.StateWaitingInput]+counts[domain.StatePendingApproval])
	legend += theme.ExitedIconStyle.Render(domain.SymbolExited) + fmt.Sprintf(" %d exited", counts[domain.StateExited])
	return legend
}

// actionCmd wraps an action message so it flows back through Model.
func actionCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// pollStateCmd waits 2 seconds then sends checkStateMsg
func pollStateCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return checkStateMsg{}
	})
}
