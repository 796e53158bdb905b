package ports

import (
	"context"

	"github.com/renato0307/farol/internal/domain"
)

// SessionReader reads registry entries
type SessionReader interface {
	Get(ctx context.Context, workDir string) (*domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)
}

// SessionWriter creates and deletes registry entries
type SessionWriter interface {
	Add(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, workDir string) error
}

// SessionStateUpdater records confirmed state transitions
type SessionStateUpdater interface {
	UpdateState(ctx context.Context, workDir string, state domain.SessionState, executionID string) error
}

// SessionOutputUpdater stores the latest raw output tail so other
// processes can inspect a session's screen without a live engine
type SessionOutputUpdater interface {
	UpdateOutput(ctx context.Context, workDir string, output string) error
}

// SessionRepository is the composite interface
type SessionRepository interface {
	SessionReader
	SessionWriter
	SessionStateUpdater
	SessionOutputUpdater
	Close() error
}
