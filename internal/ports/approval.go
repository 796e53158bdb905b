package ports

import "time"

// ApprovalConfig exposes the auto-approval settings the engine reads
// at transition time, so changes apply without restarting sessions
type ApprovalConfig interface {
	AutoApprovalEnabled() bool
	AutoApprovalTimeout() time.Duration
}
