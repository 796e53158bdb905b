package cmd

import (
	"fmt"
	"time"

	adapterpty "github.com/renato0307/farol/internal/adapters/pty"
	adapterstorage "github.com/renato0307/farol/internal/adapters/storage"
	adapterterm "github.com/renato0307/farol/internal/adapters/term"
	adapterverifier "github.com/renato0307/farol/internal/adapters/verifier"
	"github.com/renato0307/farol/internal/config"
	"github.com/renato0307/farol/internal/engine"
	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ports"
)

// Container holds all dependencies for the application
type Container struct {
	Approval *config.ApprovalStore
	Manager  *engine.Manager
	Registry *engine.Registry

	// Internal - for cleanup only
	sessionRepo ports.SessionRepository
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(settings *config.Settings) (*Container, error) {
	if settings == nil {
		settings = &config.Settings{}
	}

	if _, err := config.EnsureFarolHome(); err != nil {
		return nil, fmt.Errorf("failed to create farol home: %w", err)
	}

	dbPath := settings.DBPath
	if dbPath == "" {
		dbPath = config.GetDBPath()
	}
	sessionRepo, err := adapterstorage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, err
	}

	registry, err := config.BuildRegistry()
	if err != nil {
		_ = sessionRepo.Close()
		return nil, err
	}

	approval := newApprovalStore(settings)
	verifier, err := newVerifier(settings)
	if err != nil {
		_ = sessionRepo.Close()
		return nil, err
	}

	manager := engine.NewManager(engine.ManagerParams{
		Config:  engineConfig(settings),
		Spawner: adapterpty.NewSpawner(),
		Screens: func(cols, rows int) ports.ScreenBuffer {
			return adapterterm.NewScreen(cols, rows)
		},
		Verifier: verifier,
		Approval: approval,
		Registry: registry,
		Repo:     sessionRepo,
	})

	return &Container{
		Approval:    approval,
		Manager:     manager,
		Registry:    registry,
		sessionRepo: sessionRepo,
	}, nil
}

// Close closes all resources held by the container. The manager owns
// the repository and closes it after the last session is down.
func (c *Container) Close() error {
	if c.Manager != nil {
		return c.Manager.Close()
	}
	return nil
}

// Tools returns the selectable tool profile names.
func (c *Container) Tools() []string {
	return c.Registry.Names()
}

func newApprovalStore(settings *config.Settings) *config.ApprovalStore {
	enabled := false
	if settings.AutoApprove != nil {
		enabled = *settings.AutoApprove
	}
	var timeout time.Duration
	if settings.AutoApproveTimeoutSeconds != nil {
		timeout = time.Duration(*settings.AutoApproveTimeoutSeconds) * time.Second
	}
	return config.NewApprovalStore(enabled, timeout)
}

// newVerifier builds the review command runner, or the null verifier
// that treats every prompt as needing permission when none is
// configured.
func newVerifier(settings *config.Settings) (ports.Verifier, error) {
	if len(settings.ReviewCommand) == 0 {
		logging.Logger.Debug("No review command configured, auto-approval stays manual")
		return adapterverifier.NullVerifier{}, nil
	}
	return adapterverifier.NewExecVerifier(settings.ReviewCommand)
}

// engineConfig maps settings overrides onto the engine defaults.
func engineConfig(settings *config.Settings) engine.Config {
	cfg := engine.DefaultConfig()
	if settings.CheckIntervalMs != nil {
		cfg.CheckInterval = time.Duration(*settings.CheckIntervalMs) * time.Millisecond
	}
	if settings.PersistWindowMs != nil {
		cfg.PersistWindow = time.Duration(*settings.PersistWindowMs) * time.Millisecond
	}
	if settings.CoalesceDelayMs != nil {
		cfg.CoalesceDelay = time.Duration(*settings.CoalesceDelayMs) * time.Millisecond
	}
	if settings.SyncTimeoutMs != nil {
		cfg.SyncTimeout = time.Duration(*settings.SyncTimeoutMs) * time.Millisecond
	}
	if settings.AutoApproveTimeoutSeconds != nil {
		cfg.ApprovalTimeout = time.Duration(*settings.AutoApproveTimeoutSeconds) * time.Second
	}
	if settings.HistoryLimit != nil {
		cfg.HistoryLimit = *settings.HistoryLimit
	}
	if settings.VisibleLines != nil {
		cfg.VisibleLines = *settings.VisibleLines
	}
	if settings.DefaultCols != nil {
		cfg.DefaultCols = *settings.DefaultCols
	}
	if settings.DefaultRows != nil {
		cfg.DefaultRows = *settings.DefaultRows
	}
	return cfg
}
