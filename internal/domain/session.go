package domain

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// SessionState represents the confirmed semantic state of a session
type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateBusy            SessionState = "busy"
	StateWaitingInput    SessionState = "waiting_input"
	StatePendingApproval SessionState = "pending_auto_approval"

	// StateExited is not an engine state; it marks registry records whose
	// process is gone, for listing and restore offers.
	StateExited SessionState = "exited"
)

// Status symbols (Unicode)
const (
	SymbolBusy            = "●" // Green - agent actively working
	SymbolIdle            = "○" // Yellow - finished/idle
	SymbolWaitingInput    = "◐" // Red - waiting for user input
	SymbolPendingApproval = "◔" // Magenta - auto-approval in flight
	SymbolExited          = "■" // Gray - process has exited
)

// Symbol returns the list symbol for a state.
func (s SessionState) Symbol() string {
	switch s {
	case StateBusy:
		return SymbolBusy
	case StateIdle:
		return SymbolIdle
	case StateWaitingInput:
		return SymbolWaitingInput
	case StatePendingApproval:
		return SymbolPendingApproval
	default:
		return SymbolExited
	}
}

// Session represents a working-directory session (domain entity). This is
// the registry view used by storage and the UI; the live aggregate owning
// the process lives in the engine.
type Session struct {
	Args        []string
	Command     string
	CreatedAt   time.Time
	ExecutionID string
	// LastOutput is the raw terminal output tail captured at the last
	// persisted state change, ANSI sequences included.
	LastOutput  string
	LastUpdated time.Time
	State       SessionState
	Tool        string
	WorkDir     string
}

// SessionStateData is the record protected by the serialized-state
// container. Values are treated as immutable; transitions copy.
type SessionStateData struct {
	// State is the confirmed state.
	State SessionState

	// PendingState is the candidate awaiting confirmation. Zero value
	// means no candidate. If present it always differs from State.
	PendingState SessionState

	// PendingStateStart is when the current candidate first appeared.
	// Set iff PendingState is set.
	PendingStateStart time.Time

	// AutoApprovalFailed is true once an approval attempt was abandoned
	// for the current waiting_input episode. Cleared exactly when State
	// returns to busy.
	AutoApprovalFailed bool

	// AutoApprovalReason carries the verifier's diagnostic, if any.
	AutoApprovalReason string

	// AutoApprovalCancel aborts the in-flight verification. Set iff
	// State == StatePendingApproval.
	AutoApprovalCancel context.CancelFunc

	// ApprovalID identifies the in-flight verification so a late result
	// can be discarded. Set iff State == StatePendingApproval.
	ApprovalID string
}

// HasPending reports whether a candidate state is building.
func (d SessionStateData) HasPending() bool {
	return d.PendingState != ""
}

// CleanWorkDir normalizes a working-directory path for use as a session
// key: absolute paths are cleaned, trailing separators dropped.
func CleanWorkDir(path string) string {
	cleaned := filepath.Clean(strings.TrimSpace(path))
	return cleaned
}
