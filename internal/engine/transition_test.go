package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/renato0307/farol/internal/domain"
)

func TestApplyCandidate(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }
	persist := 200 * time.Millisecond

	tests := []struct {
		name          string
		data          domain.SessionStateData
		candidate     domain.SessionState
		now           time.Time
		wantData      domain.SessionStateData
		wantConfirmed bool
	}{
		{
			name:          "same candidate clears a building pending",
			data:          domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(0)},
			candidate:     domain.StateBusy,
			now:           at(100),
			wantData:      domain.SessionStateData{State: domain.StateBusy},
			wantConfirmed: false,
		},
		{
			name:          "new candidate starts a window",
			data:          domain.SessionStateData{State: domain.StateBusy},
			candidate:     domain.StateWaitingInput,
			now:           at(100),
			wantData:      domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(100)},
			wantConfirmed: false,
		},
		{
			name:          "different candidate restarts the window",
			data:          domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(0)},
			candidate:     domain.StateIdle,
			now:           at(150),
			wantData:      domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateIdle, PendingStateStart: at(150)},
			wantConfirmed: false,
		},
		{
			name:          "persisting candidate below the window does not confirm",
			data:          domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(100)},
			candidate:     domain.StateWaitingInput,
			now:           at(200),
			wantData:      domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(100)},
			wantConfirmed: false,
		},
		{
			name:          "candidate persisting the full window confirms",
			data:          domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(100)},
			candidate:     domain.StateWaitingInput,
			now:           at(300),
			wantData:      domain.SessionStateData{State: domain.StateWaitingInput},
			wantConfirmed: true,
		},
		{
			name:          "confirming busy resets the failed flag",
			data:          domain.SessionStateData{State: domain.StateWaitingInput, PendingState: domain.StateBusy, PendingStateStart: at(0), AutoApprovalFailed: true},
			candidate:     domain.StateBusy,
			now:           at(250),
			wantData:      domain.SessionStateData{State: domain.StateBusy},
			wantConfirmed: true,
		},
		{
			name:          "confirming waiting keeps the failed flag",
			data:          domain.SessionStateData{State: domain.StateBusy, PendingState: domain.StateWaitingInput, PendingStateStart: at(0), AutoApprovalFailed: true},
			candidate:     domain.StateWaitingInput,
			now:           at(250),
			wantData:      domain.SessionStateData{State: domain.StateWaitingInput, AutoApprovalFailed: true},
			wantConfirmed: true,
		},
		{
			name:          "ticks are ignored while auto approval is pending",
			data:          domain.SessionStateData{State: domain.StatePendingApproval, ApprovalID: "tok"},
			candidate:     domain.StateWaitingInput,
			now:           at(500),
			wantData:      domain.SessionStateData{State: domain.StatePendingApproval, ApprovalID: "tok"},
			wantConfirmed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, confirmed := applyCandidate(tt.data, tt.candidate, tt.now, persist)
			assert.Equal(t, tt.wantData, got)
			assert.Equal(t, tt.wantConfirmed, confirmed)
		})
	}
}

// The concrete timing walk from the debounce rule: with a 100ms tick
// and a 200ms window, a prompt appearing right after t=0 goes pending
// at t=100 and confirms at t=300 (the first tick where the window has
// fully elapsed).
func TestApplyCandidateConfirmationWalk(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	persist := 200 * time.Millisecond

	d := domain.SessionStateData{State: domain.StateBusy}

	d, confirmed := applyCandidate(d, domain.StateWaitingInput, base.Add(100*time.Millisecond), persist)
	assert.False(t, confirmed)
	assert.Equal(t, domain.StateWaitingInput, d.PendingState)

	d, confirmed = applyCandidate(d, domain.StateWaitingInput, base.Add(200*time.Millisecond), persist)
	assert.False(t, confirmed, "only 100ms elapsed since the window opened")
	assert.Equal(t, domain.StateBusy, d.State)

	d, confirmed = applyCandidate(d, domain.StateWaitingInput, base.Add(300*time.Millisecond), persist)
	assert.True(t, confirmed)
	assert.Equal(t, domain.StateWaitingInput, d.State)
	assert.False(t, d.HasPending())
}

func TestApplyCandidateFlapSuppressed(t *testing.T) {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	persist := 200 * time.Millisecond

	d := domain.SessionStateData{State: domain.StateBusy}

	d, confirmed := applyCandidate(d, domain.StateWaitingInput, base.Add(100*time.Millisecond), persist)
	assert.False(t, confirmed)

	// The candidate reverts before the window elapses; nothing surfaces.
	d, confirmed = applyCandidate(d, domain.StateBusy, base.Add(200*time.Millisecond), persist)
	assert.False(t, confirmed)
	assert.Equal(t, domain.StateBusy, d.State)
	assert.False(t, d.HasPending())

	d, confirmed = applyCandidate(d, domain.StateBusy, base.Add(300*time.Millisecond), persist)
	assert.False(t, confirmed)
	assert.Equal(t, domain.SessionStateData{State: domain.StateBusy}, d)
}
