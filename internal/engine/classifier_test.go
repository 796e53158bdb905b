package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/renato0307/farol/internal/domain"
)

func TestClaudeClassifier(t *testing.T) {
	classifier, _ := NewRegistry().Resolve("claude")

	tests := []struct {
		name   string
		screen string
		prev   domain.SessionState
		want   domain.SessionState
	}{
		{
			name:   "spinner marks busy",
			screen: "✽ Reticulating…\npress esc to interrupt",
			prev:   domain.StateIdle,
			want:   domain.StateBusy,
		},
		{
			name:   "confirmation prompt marks waiting",
			screen: "Do you want to run this command?\n❯ 1. Yes\n  2. No",
			prev:   domain.StateBusy,
			want:   domain.StateWaitingInput,
		},
		{
			name:   "prompt outranks activity on the same screen",
			screen: "esc to interrupt\nDo you want to proceed?",
			prev:   domain.StateBusy,
			want:   domain.StateWaitingInput,
		},
		{
			name:   "shortcut footer marks idle",
			screen: "│ >                       │\n? for shortcuts",
			prev:   domain.StateBusy,
			want:   domain.StateIdle,
		},
		{
			name:   "blank screen keeps previous state",
			screen: "\n\n   \n",
			prev:   domain.StateBusy,
			want:   domain.StateBusy,
		},
		{
			name:   "unrecognized redraw keeps previous state",
			screen: "half drawn fra",
			prev:   domain.StateWaitingInput,
			want:   domain.StateWaitingInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.screen, tt.prev))
		})
	}
}

func TestGenericClassifier(t *testing.T) {
	classifier, _ := NewRegistry().Resolve("generic")

	tests := []struct {
		name   string
		screen string
		prev   domain.SessionState
		want   domain.SessionState
	}{
		{
			name:   "shell prompt marks idle",
			screen: "make: done\nuser@host:~/project$",
			prev:   domain.StateBusy,
			want:   domain.StateIdle,
		},
		{
			name:   "prompt with trailing spaces still idle",
			screen: "❯   ",
			prev:   domain.StateBusy,
			want:   domain.StateIdle,
		},
		{
			name:   "yes no question marks waiting",
			screen: "Overwrite existing file? (y/n)",
			prev:   domain.StateBusy,
			want:   domain.StateWaitingInput,
		},
		{
			name:   "password prompt marks waiting",
			screen: "Password:",
			prev:   domain.StateIdle,
			want:   domain.StateWaitingInput,
		},
		{
			name:   "running output keeps previous state",
			screen: "compiling module 3 of 17...",
			prev:   domain.StateBusy,
			want:   domain.StateBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifier.Classify(tt.screen, tt.prev))
		})
	}
}

func TestRegistryResolveFallsBackToGeneric(t *testing.T) {
	r := NewRegistry()

	classifier, keys := r.Resolve("no-such-tool")
	assert.NotNil(t, classifier)
	assert.Equal(t, []byte("y\n"), keys)
}

func TestRegistryResolveApproveKeys(t *testing.T) {
	r := NewRegistry()

	_, keys := r.Resolve("claude")
	assert.Equal(t, []byte("1"), keys)
}

func TestRegistryProfileOverride(t *testing.T) {
	r := NewRegistry()
	r.RegisterProfile(PatternProfile{
		Name:            "claude",
		WaitingPatterns: []string{"CUSTOM PROMPT"},
		ApproveKeys:     "2",
	})

	classifier, keys := r.Resolve("claude")
	assert.Equal(t, []byte("2"), keys)
	assert.Equal(t, domain.StateWaitingInput,
		classifier.Classify("CUSTOM PROMPT", domain.StateIdle))
	assert.Equal(t, domain.StateBusy,
		classifier.Classify("esc to interrupt", domain.StateBusy),
		"overridden profile drops the builtin patterns")
}
