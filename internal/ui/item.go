package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/theme"
)

// SessionItem implements list.Item and list.DefaultItem
type SessionItem struct {
	ApprovalFailed bool
	State          domain.SessionState
	StateSince     time.Time
	Tool           string
	WorkDir        string
}

// FilterValue implements list.Item
func (i SessionItem) FilterValue() string {
	return i.WorkDir + " " + i.Tool
}

// Title implements list.DefaultItem
func (i SessionItem) Title() string {
	return i.WorkDir
}

// Description implements list.DefaultItem
func (i SessionItem) Description() string {
	return i.Tool
}

// SessionDelegate renders session items: state symbol, workdir, tool and
// how long the session has been in its current state.
type SessionDelegate struct{}

// Height implements list.ItemDelegate
func (d SessionDelegate) Height() int {
	return 2 // workdir line + tool/state line
}

// Spacing implements list.ItemDelegate
func (d SessionDelegate) Spacing() int {
	return 0
}

// Update implements list.ItemDelegate
func (d SessionDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd {
	return nil
}

// Render implements list.ItemDelegate
func (d SessionDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(SessionItem)
	if !ok {
		return
	}

	cursor := " "
	if index == m.Index() {
		cursor = ">"
	}

	line1 := renderItemLine1(cursor, index, item, time.Now())
	line2 := renderItemLine2(item)
	fmt.Fprint(w, line1+"\n"+line2)
}

// renderItemLine1 builds the first item line: cursor, number, state
// symbol, workdir, approval failure marker and state age.
func renderItemLine1(cursor string, index int, item SessionItem, now time.Time) string {
	symbol := theme.StateIconStyle(item.State).Render(item.State.Symbol())
	line := fmt.Sprintf("%s %02d. %s %s", cursor, index+1, symbol, abbreviateHome(item.WorkDir))
	line = theme.NormalStyle.Render(line)

	if item.ApprovalFailed {
		line += " " + theme.WarnFlagStyle.Render("⚠")
	}
	if age := formatStateAge(item.StateSince, now); age != "" {
		line += " " + theme.SubtleStyle.Render("["+age+"]")
	}
	return line
}

// renderItemLine2 builds the second item line: tool and state label,
// indented to align with the workdir above.
func renderItemLine2(item SessionItem) string {
	indent := "        " // aligns with workdir after "> 01. ● "
	return theme.SubtleStyle.Render(indent + item.Tool + " | " + stateLabel(item.State))
}

// stateLabel returns the human-readable label for a session state.
func stateLabel(state domain.SessionState) string {
	switch state {
	case domain.StateBusy:
		return "busy"
	case domain.StateIdle:
		return "idle"
	case domain.StateWaitingInput:
		return "waiting for input"
	case domain.StatePendingApproval:
		return "approving"
	case domain.StateExited:
		return "exited"
	default:
		return string(state)
	}
}

// formatStateAge converts the state entry time to a compact relative
// age. Sub-minute ages render as "now" so the list stays calm.
func formatStateAge(since, now time.Time) string {
	if since.IsZero() {
		return ""
	}
	elapsed := now.Sub(since)
	switch {
	case elapsed < time.Minute:
		return "now"
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd", int(elapsed.Hours()/24))
	}
}

// abbreviateHome replaces the home directory prefix with ~.
func abbreviateHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if strings.HasPrefix(path, home+string(os.PathSeparator)) {
		return "~" + path[len(home):]
	}
	return path
}
