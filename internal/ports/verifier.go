package ports

import "context"

// VerifyResult is the outcome of checking a pending tool action
type VerifyResult struct {
	// NeedsPermission means the action must wait for the user
	NeedsPermission bool `json:"needs_permission"`
	// Reason is a short human-readable explanation
	Reason string `json:"reason,omitempty"`
}

// Verifier decides whether a prompt on screen can be answered
// automatically. Callers treat any error or cancellation as
// needs-permission.
type Verifier interface {
	Verify(ctx context.Context, screenText string) (VerifyResult, error)
}
