package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/renato0307/farol/internal/engine"
	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/theme"
)

// Bracketed paste markers, so pasted text reaches the tool the same way
// a real terminal would deliver it.
var (
	pasteStart = []byte("\x1b[200~")
	pasteEnd   = []byte("\x1b[201~")
)

// specialKeySeq maps bubbletea's non-byte keys to the escape sequences
// an xterm-style terminal would send.
var specialKeySeq = map[tea.KeyType][]byte{
	tea.KeyUp:       []byte("\x1b[A"),
	tea.KeyDown:     []byte("\x1b[B"),
	tea.KeyRight:    []byte("\x1b[C"),
	tea.KeyLeft:     []byte("\x1b[D"),
	tea.KeyHome:     []byte("\x1b[H"),
	tea.KeyEnd:      []byte("\x1b[F"),
	tea.KeyShiftTab: []byte("\x1b[Z"),
	tea.KeyPgUp:     []byte("\x1b[5~"),
	tea.KeyPgDown:   []byte("\x1b[6~"),
	tea.KeyDelete:   []byte("\x1b[3~"),
	tea.KeyInsert:   []byte("\x1b[2~"),
	tea.KeyF1:       []byte("\x1bOP"),
	tea.KeyF2:       []byte("\x1bOQ"),
	tea.KeyF3:       []byte("\x1bOR"),
	tea.KeyF4:       []byte("\x1bOS"),
	tea.KeyF5:       []byte("\x1b[15~"),
	tea.KeyF6:       []byte("\x1b[17~"),
	tea.KeyF7:       []byte("\x1b[18~"),
	tea.KeyF8:       []byte("\x1b[19~"),
	tea.KeyF9:       []byte("\x1b[20~"),
	tea.KeyF10:      []byte("\x1b[21~"),
	tea.KeyF11:      []byte("\x1b[23~"),
	tea.KeyF12:      []byte("\x1b[24~"),
}

// keyMsgBytes converts a key press into the raw bytes to feed the
// session's PTY. Returns nil for keys with no terminal encoding.
func keyMsgBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		b := []byte(string(msg.Runes))
		if msg.Paste {
			wrapped := make([]byte, 0, len(pasteStart)+len(b)+len(pasteEnd))
			wrapped = append(wrapped, pasteStart...)
			wrapped = append(wrapped, b...)
			wrapped = append(wrapped, pasteEnd...)
			return wrapped
		}
		if msg.Alt {
			return append([]byte{0x1b}, b...)
		}
		return b
	case tea.KeySpace:
		if msg.Alt {
			return []byte{0x1b, ' '}
		}
		return []byte{' '}
	}

	// Positive key types are the control byte itself: enter, tab, esc,
	// backspace and the ctrl+letter range.
	if msg.Type >= 0 && msg.Type < 256 {
		if msg.Alt {
			return []byte{0x1b, byte(msg.Type)}
		}
		return []byte{byte(msg.Type)}
	}

	seq, ok := specialKeySeq[msg.Type]
	if !ok {
		return nil
	}
	if msg.Alt {
		return append([]byte{0x1b}, seq...)
	}
	return seq
}

// AttachView renders one session's live screen full-size with a status
// bar at the bottom. Every key except detach is forwarded to the
// session as raw terminal input.
type AttachView struct {
	Detached bool // Set when the user pressed the detach key

	height  int
	keys    KeyMap
	session *engine.Session
	width   int
}

// NewAttachView creates an attach view for the session.
func NewAttachView(session *engine.Session, keys KeyMap) *AttachView {
	return &AttachView{
		keys:    keys,
		session: session,
	}
}

// WorkDir returns the attached session's workdir.
func (a *AttachView) WorkDir() string {
	return a.session.WorkDir()
}

func (a *AttachView) Init() tea.Cmd {
	return nil
}

func (a *AttachView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Bottom row is the status bar; the session gets the rest.
		if rows := msg.Height - 1; rows > 0 && msg.Width > 0 {
			if err := a.session.Resize(msg.Width, rows); err != nil {
				logging.Logger.Debug("attach resize failed",
					"workdir", a.session.WorkDir(), "error", err)
			}
		}
		return a, nil

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Attach.Detach) {
			a.Detached = true
			return a, nil
		}
		if b := keyMsgBytes(msg); len(b) > 0 {
			if err := a.session.WriteInput(b); err != nil {
				logging.Logger.Warn("input write failed",
					"workdir", a.session.WorkDir(), "error", err)
			}
		}
		return a, nil
	}
	return a, nil
}

func (a *AttachView) View() string {
	rows := a.height - 1
	if rows < 1 {
		rows = 1
	}

	lines := a.session.VisibleLines(rows)
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	for len(lines) < rows {
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n") + "\n" + a.statusBar()
}

// statusBar renders the bottom line: state, workdir and the detach hint.
func (a *AttachView) statusBar() string {
	data := a.session.State()

	left := " " + theme.StateIconStyle(data.State).Render(data.State.Symbol()) +
		" " + abbreviateHome(a.session.WorkDir()) +
		" | " + stateLabel(data.State)
	if data.AutoApprovalFailed {
		left += " | " + theme.WarnFlagStyle.Render("⚠ approval failed")
	}
	right := theme.StatusKeyStyle.Render("ctrl+q") + " detach "

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return theme.StatusBarStyle.Render(left + strings.Repeat(" ", gap) + right)
}
