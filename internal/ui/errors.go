package ui

import (
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	maxErrorLines  = 2
	errorPrefix    = "Error: "
	truncationMark = "..."
)

// clearErrorMsg is sent after the error clear delay to trigger clearing.
type clearErrorMsg struct{}

// ErrorManager handles error display and auto-clearing for the footer.
type ErrorManager struct {
	currentError    error
	errorClearDelay time.Duration
}

// NewErrorManager creates an ErrorManager with the given auto-clear delay.
func NewErrorManager(errorClearDelay time.Duration) *ErrorManager {
	return &ErrorManager{errorClearDelay: errorClearDelay}
}

// SetError sets the current error to be displayed.
func (em *ErrorManager) SetError(err error) {
	em.currentError = err
}

// ClearError clears the current error.
func (em *ErrorManager) ClearError() {
	em.currentError = nil
}

// GetError returns the current error.
func (em *ErrorManager) GetError() error {
	return em.currentError
}

// HasError returns true if there is a current error.
func (em *ErrorManager) HasError() bool {
	return em.currentError != nil
}

// ClearAfterDelay returns a command that sends clearErrorMsg after the
// configured delay.
func (em *ErrorManager) ClearAfterDelay() tea.Cmd {
	return tea.Tick(em.errorClearDelay, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

// formatErrorForDisplay renders an error for the footer: word-wrapped to
// maxWidth, at most maxErrorLines lines, truncated with "..." when the
// message does not fit. The "Error: " prefix counts against the first
// line's width.
func formatErrorForDisplay(err error, maxWidth int) string {
	if err == nil {
		return ""
	}
	message := err.Error()
	if message == "" {
		return errorPrefix + "unknown error"
	}

	firstWidth := maxWidth - utf8.RuneCountInString(errorPrefix)
	if firstWidth < 10 {
		firstWidth = 10
	}
	otherWidth := maxWidth
	if otherWidth < 10 {
		otherWidth = 10
	}

	words := strings.Fields(message)
	if len(words) == 0 {
		return errorPrefix + message
	}

	var lines []string
	var current strings.Builder
	lineWidth := firstWidth
	truncated := false

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		currentLen := utf8.RuneCountInString(current.String())

		if currentLen > 0 && currentLen+1+wordLen > lineWidth {
			lines = append(lines, current.String())
			current.Reset()
			if len(lines) >= maxErrorLines {
				truncated = true
				break
			}
			lineWidth = otherWidth
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 && len(lines) < maxErrorLines {
		lines = append(lines, current.String())
	}

	if truncated {
		last := lines[maxErrorLines-1]
		if utf8.RuneCountInString(last)+len(truncationMark) > otherWidth {
			runes := []rune(last)
			keep := otherWidth - len(truncationMark)
			if keep > 0 && len(runes) > keep {
				last = string(runes[:keep])
			}
		}
		lines[maxErrorLines-1] = last + truncationMark
	}

	if len(lines) == 0 {
		return errorPrefix
	}
	result := errorPrefix + lines[0]
	if len(lines) > 1 {
		result += "\n" + strings.Join(lines[1:], "\n")
	}
	return result
}
