package engine

import (
	"time"

	"github.com/renato0307/farol/internal/domain"
)

// applyCandidate folds a freshly classified candidate into the session
// state, debouncing transitions so single-tick noise from partial
// redraws never surfaces. It returns the next state record and whether
// a transition was confirmed (in which case observers must be notified
// exactly once by the caller).
//
// The rule, evaluated against the confirmed state on each tick:
//   - candidate equals the confirmed state: a building candidate has
//     reverted; clear it, no event.
//   - candidate differs and no candidate is building (or a different
//     one is): start a fresh persistence window.
//   - the same candidate has persisted for at least persist: confirm.
//
// While an automatic approval is pending the classifier keeps seeing
// the same prompt; ticks are ignored so the approval workflow alone
// decides the next state.
func applyCandidate(d domain.SessionStateData, candidate domain.SessionState, now time.Time, persist time.Duration) (domain.SessionStateData, bool) {
	if d.State == domain.StatePendingApproval {
		return d, false
	}

	if candidate == d.State {
		d.PendingState = ""
		d.PendingStateStart = time.Time{}
		return d, false
	}

	if d.PendingState == "" || candidate != d.PendingState {
		d.PendingState = candidate
		d.PendingStateStart = now
		return d, false
	}

	if now.Sub(d.PendingStateStart) < persist {
		return d, false
	}

	d.State = candidate
	d.PendingState = ""
	d.PendingStateStart = time.Time{}
	if candidate == domain.StateBusy {
		// A fresh prompt gets a fresh auto-approval chance.
		d.AutoApprovalFailed = false
	}
	return d, true
}
