package config

import (
	"sync"
	"time"
)

// DefaultAutoApproveTimeout bounds a single permission review.
const DefaultAutoApproveTimeout = 15 * time.Second

// ApprovalStore holds the live auto-approval switches. Sessions read it
// every time a waiting state is confirmed, so toggling it takes effect
// on the next prompt without restarting anything.
type ApprovalStore struct {
	mu      sync.RWMutex
	enabled bool
	timeout time.Duration
}

// NewApprovalStore creates an ApprovalStore. A zero timeout falls back
// to DefaultAutoApproveTimeout.
func NewApprovalStore(enabled bool, timeout time.Duration) *ApprovalStore {
	if timeout <= 0 {
		timeout = DefaultAutoApproveTimeout
	}
	return &ApprovalStore{enabled: enabled, timeout: timeout}
}

// AutoApprovalEnabled reports whether prompts may be answered
// automatically.
func (s *ApprovalStore) AutoApprovalEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// AutoApprovalTimeout returns the per-review deadline.
func (s *ApprovalStore) AutoApprovalTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeout
}

// SetEnabled toggles auto-approval.
func (s *ApprovalStore) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// SetTimeout replaces the per-review deadline. Non-positive values are
// ignored.
func (s *ApprovalStore) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}
