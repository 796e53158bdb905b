package domain

import "time"

// EventType identifies a lifecycle notification from the engine
type EventType string

const (
	EventCreated      EventType = "created"
	EventDestroyed    EventType = "destroyed"
	EventStateChanged EventType = "state-changed"
	EventData         EventType = "data"
	EventExit         EventType = "exit"
	EventRestore      EventType = "restore"
)

// Notification is one lifecycle event emitted to the UI layer. Every
// state-changed notification corresponds to exactly one confirmed or
// forced transition, never to a pending candidate.
type Notification struct {
	Type    EventType
	WorkDir string

	// State is set for state-changed notifications.
	State SessionState

	// Frame is set for data notifications: one framed output chunk.
	Frame string

	// History is set for restore notifications: the full replay.
	History string

	// Err is set for exit notifications when the process ended abnormally.
	Err error

	Time time.Time
}
