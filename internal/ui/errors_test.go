package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatErrorForDisplayNil(t *testing.T) {
	assert.Equal(t, "", formatErrorForDisplay(nil, 80))
}

func TestFormatErrorForDisplayShort(t *testing.T) {
	got := formatErrorForDisplay(errors.New("boom"), 80)

	assert.Equal(t, "Error: boom", got)
}

func TestFormatErrorForDisplayWrapsToSecondLine(t *testing.T) {
	err := errors.New("something went wrong while creating the session")

	got := formatErrorForDisplay(err, 30)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Error: "))
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 30)
	}
	// Nothing was dropped, so no truncation mark.
	assert.NotContains(t, got, "...")
}

func TestFormatErrorForDisplayTruncates(t *testing.T) {
	var words []string
	for i := 0; i < 40; i++ {
		words = append(words, fmt.Sprintf("word%d", i))
	}
	err := errors.New(strings.Join(words, " "))

	got := formatErrorForDisplay(err, 30)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], "..."))
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 30)
	}
}

func TestErrorManagerLifecycle(t *testing.T) {
	em := NewErrorManager(5 * time.Second)

	assert.False(t, em.HasError())
	assert.NoError(t, em.GetError())

	err := errors.New("boom")
	em.SetError(err)
	assert.True(t, em.HasError())
	assert.Equal(t, err, em.GetError())

	em.ClearError()
	assert.False(t, em.HasError())
}

func TestErrorManagerClearAfterDelay(t *testing.T) {
	em := NewErrorManager(time.Millisecond)

	cmd := em.ClearAfterDelay()
	require.NotNil(t, cmd)

	msg := cmd()
	assert.IsType(t, clearErrorMsg{}, msg)
}
