package term

import (
	"strings"

	"github.com/tuzig/vt10x"

	"github.com/renato0307/farol/internal/ports"
)

// Screen is a headless VT100 emulator fed with raw session output. It
// tracks cursor movement, erase sequences and scrolling, so the text it
// reports matches what a real terminal would show, not the byte stream
// that produced it.
type Screen struct {
	term vt10x.Terminal
}

// Verify interface compliance at compile time
var _ ports.ScreenBuffer = (*Screen)(nil)

// NewScreen creates a Screen with the given dimensions.
func NewScreen(cols, rows int) *Screen {
	return &Screen{term: vt10x.New(vt10x.WithSize(cols, rows))}
}

// Feed parses a frame of terminal output into the emulator. The
// terminal serializes writers internally.
func (s *Screen) Feed(frame []byte) {
	_, _ = s.term.Write(frame)
}

// VisibleLines returns the last n rendered rows as plain text, styling
// stripped and trailing blanks trimmed. n <= 0 returns the full screen.
func (s *Screen) VisibleLines(n int) []string {
	rendered := s.term.String()

	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// Resize changes the emulator dimensions, reflowing its contents.
func (s *Screen) Resize(cols, rows int) {
	s.term.Resize(cols, rows)
}
