package term

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func visible(s *Screen) string {
	return strings.Join(s.VisibleLines(0), "\n")
}

func TestScreenRendersPlainText(t *testing.T) {
	s := NewScreen(20, 4)

	s.Feed([]byte("hello\r\nworld"))

	lines := s.VisibleLines(0)
	assert.Len(t, lines, 4)
	assert.Equal(t, "hello", lines[0])
	assert.Equal(t, "world", lines[1])
	assert.Equal(t, "", lines[2])
}

func TestScreenStripsStyling(t *testing.T) {
	s := NewScreen(20, 2)

	s.Feed([]byte("\x1b[1;32mgreen\x1b[0m text"))

	assert.Equal(t, "green text", s.VisibleLines(0)[0])
}

func TestScreenHonorsCursorMovement(t *testing.T) {
	s := NewScreen(20, 2)

	// Overwrite the start of the line after a carriage return.
	s.Feed([]byte("progress 10%\rprogress 99%"))

	assert.Equal(t, "progress 99%", s.VisibleLines(0)[0])
}

func TestScreenHonorsErase(t *testing.T) {
	s := NewScreen(20, 3)

	s.Feed([]byte("old contents\r\nmore"))
	// Home the cursor and erase the display.
	s.Feed([]byte("\x1b[H\x1b[2Jfresh"))

	assert.Equal(t, "fresh", s.VisibleLines(0)[0])
	assert.NotContains(t, visible(s), "old contents")
}

func TestScreenLastNLines(t *testing.T) {
	s := NewScreen(20, 4)

	s.Feed([]byte("one\r\ntwo\r\nthree\r\nfour"))

	lines := s.VisibleLines(2)
	assert.Equal(t, []string{"three", "four"}, lines)
}

func TestScreenScrollsHistoryOffTop(t *testing.T) {
	s := NewScreen(20, 2)

	s.Feed([]byte("first\r\nsecond\r\nthird"))

	text := visible(s)
	assert.Contains(t, text, "third")
	assert.NotContains(t, text, "first")
}

func TestScreenResize(t *testing.T) {
	s := NewScreen(20, 2)
	s.Feed([]byte("hi"))

	s.Resize(40, 6)

	assert.Len(t, s.VisibleLines(0), 6)
	assert.Contains(t, visible(s), "hi")
}
