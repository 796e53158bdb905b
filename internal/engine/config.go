package engine

import "time"

// Config carries the engine timings and limits shared by all sessions.
// Zero values fall back to the defaults.
type Config struct {
	// CheckInterval is how often each session classifies its screen.
	CheckInterval time.Duration
	// PersistWindow is how long a candidate state must keep being
	// classified before it is confirmed. Must be a small multiple of
	// CheckInterval so at least two consecutive identical ticks are
	// required.
	PersistWindow time.Duration
	// CoalesceDelay and SyncTimeout tune the output framer.
	CoalesceDelay time.Duration
	SyncTimeout   time.Duration
	// ApprovalTimeout bounds one auto-approval verification call.
	ApprovalTimeout time.Duration
	// HistoryLimit caps the retained replay history per session, in
	// bytes. Old frames are dropped whole.
	HistoryLimit int
	// VisibleLines is how many lines from the bottom of the screen are
	// classified; 0 means the full visible screen.
	VisibleLines int
	// EventBuffer is the capacity of the manager's notification channel.
	EventBuffer int
	// DefaultCols and DefaultRows size new PTYs.
	DefaultCols int
	DefaultRows int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:   100 * time.Millisecond,
		PersistWindow:   200 * time.Millisecond,
		CoalesceDelay:   DefaultCoalesceDelay,
		SyncTimeout:     DefaultSyncTimeout,
		ApprovalTimeout: 15 * time.Second,
		HistoryLimit:    512 * 1024,
		EventBuffer:     1024,
		DefaultCols:     120,
		DefaultRows:     40,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.PersistWindow <= 0 {
		c.PersistWindow = d.PersistWindow
	}
	if c.CoalesceDelay <= 0 {
		c.CoalesceDelay = d.CoalesceDelay
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = d.SyncTimeout
	}
	if c.ApprovalTimeout <= 0 {
		c.ApprovalTimeout = d.ApprovalTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = d.EventBuffer
	}
	if c.DefaultCols <= 0 {
		c.DefaultCols = d.DefaultCols
	}
	if c.DefaultRows <= 0 {
		c.DefaultRows = d.DefaultRows
	}
	return c
}
