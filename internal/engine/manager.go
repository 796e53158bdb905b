package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/renato0307/farol/internal/clock"
	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ports"
)

// ScreenFactory builds a headless screen for a new session.
type ScreenFactory func(cols, rows int) ports.ScreenBuffer

// ManagerParams wires a Manager's collaborators.
type ManagerParams struct {
	Config   Config
	Clock    clock.Clock
	Spawner  ports.ProcessSpawner
	Screens  ScreenFactory
	Verifier ports.Verifier
	Approval ports.ApprovalConfig
	Registry *Registry
	Repo     ports.SessionRepository
}

// Manager owns every live session, keyed by cleaned working directory,
// and fans their notifications out on a single channel. All lifecycle
// operations go through it.
type Manager struct {
	cfg      Config
	clk      clock.Clock
	spawner  ports.ProcessSpawner
	screens  ScreenFactory
	verifier ports.Verifier
	approval ports.ApprovalConfig
	registry *Registry
	repo     ports.SessionRepository

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	events chan domain.Notification

	subMu   sync.Mutex
	subs    map[int]chan domain.Notification
	nextSub int
}

// NewManager creates a manager. Clock defaults to the real clock and
// Registry to the builtin profiles when nil.
func NewManager(p ManagerParams) *Manager {
	cfg := p.Config.withDefaults()
	clk := p.Clock
	if clk == nil {
		clk = clock.Real()
	}
	registry := p.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		cfg:      cfg,
		clk:      clk,
		spawner:  p.Spawner,
		screens:  p.Screens,
		verifier: p.Verifier,
		approval: p.Approval,
		registry: registry,
		repo:     p.Repo,
		sessions: make(map[string]*Session),
		events:   make(chan domain.Notification, cfg.EventBuffer),
		subs:     make(map[int]chan domain.Notification),
	}
}

// Events returns the primary notification channel. Delivery is
// best-effort: if the consumer falls behind, notifications are dropped
// rather than blocking the engine. The channel is never closed;
// consumers stop reading on their own shutdown.
func (m *Manager) Events() <-chan domain.Notification {
	return m.events
}

// Subscribe registers an additional notification consumer with its own
// buffered channel and the same best-effort delivery as Events. The
// returned cancel releases the subscription and closes the channel;
// after cancel no more sends happen, so readers see it drain and end.
func (m *Manager) Subscribe() (<-chan domain.Notification, func()) {
	ch := make(chan domain.Notification, m.cfg.EventBuffer)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
		m.subMu.Unlock()
	}
	return ch, cancel
}

// CreateOptions describes a session to create. Command defaults to the
// tool name and Tool to the generic profile.
type CreateOptions struct {
	WorkDir string
	Tool    string
	Command string
	Args    []string
	Cols    int
	Rows    int
}

// CreateSession spawns a session for the working directory. It fails
// with ErrSessionExists when one is already live there.
func (m *Manager) CreateSession(ctx context.Context, opts CreateOptions) (*Session, error) {
	s, created, err := m.acquire(ctx, opts, false, false)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionExists, s.WorkDir())
	}
	return s, nil
}

// GetOrCreateSession returns the live session for the working directory,
// creating it if needed. The boolean reports whether it was created.
func (m *Manager) GetOrCreateSession(ctx context.Context, opts CreateOptions) (*Session, bool, error) {
	return m.acquire(ctx, opts, true, false)
}

// acquire implements double-checked get-or-create: check under the
// lock, spawn outside it, then re-check before registering. The loser
// of a creation race kills its freshly spawned process.
func (m *Manager) acquire(ctx context.Context, opts CreateOptions, allowExisting, restored bool) (*Session, bool, error) {
	key := domain.CleanWorkDir(opts.WorkDir)
	if !filepath.IsAbs(key) {
		return nil, false, fmt.Errorf("workdir must be an absolute path: %q", opts.WorkDir)
	}
	tool := opts.Tool
	if tool == "" {
		tool = "generic"
	}
	command := opts.Command
	if command == "" {
		command = tool
	}
	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = m.cfg.DefaultCols
	}
	if rows <= 0 {
		rows = m.cfg.DefaultRows
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, false, domain.ErrEngineClosed
	}
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		if allowExisting {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s", domain.ErrSessionExists, key)
	}
	m.mu.Unlock()

	handle, err := m.spawner.Spawn(command, opts.Args, ports.SpawnOptions{
		Dir:  key,
		Cols: cols,
		Rows: rows,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to spawn %s in %s: %w", command, key, err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = handle.Kill()
		return nil, false, domain.ErrEngineClosed
	}
	if existing, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		_ = handle.Kill()
		if allowExisting {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("%w: %s", domain.ErrSessionExists, key)
	}

	classifier, approveKeys := m.registry.Resolve(tool)
	var session *Session
	session = newSession(m.cfg, m.clk, sessionParams{
		workDir:     key,
		tool:        tool,
		handle:      handle,
		screen:      m.screens(cols, rows),
		classifier:  classifier,
		approveKeys: approveKeys,
		verifier:    m.verifier,
		approval:    m.approval,
		notify:      func(n domain.Notification) { m.onSessionEvent(session, n) },
	})
	m.sessions[key] = session
	m.mu.Unlock()

	record := domain.Session{
		Args:        opts.Args,
		Command:     command,
		CreatedAt:   session.createdAt,
		ExecutionID: session.executionID,
		LastUpdated: session.createdAt,
		State:       domain.StateBusy,
		Tool:        tool,
		WorkDir:     key,
	}
	if restored {
		if err := m.repo.UpdateState(ctx, key, domain.StateBusy, session.executionID); err != nil {
			logging.Logger.Warn("failed to update restored session record",
				"workdir", key, "error", err)
		}
		m.publish(domain.Notification{
			Type:    domain.EventRestore,
			WorkDir: key,
			State:   domain.StateBusy,
			History: session.History(),
			Time:    m.clk.Now(),
		})
	} else {
		if err := m.repo.Add(ctx, record); err != nil {
			logging.Logger.Warn("failed to persist session record",
				"workdir", key, "error", err)
		}
		m.publish(domain.Notification{
			Type:    domain.EventCreated,
			WorkDir: key,
			State:   domain.StateBusy,
			Time:    m.clk.Now(),
		})
	}

	logging.Logger.Info("session created",
		"workdir", key,
		"tool", tool,
		"command", command,
		"execution_id", session.executionID,
		"restored", restored)
	session.start()
	return session, true, nil
}

// GetSession returns the live session for the working directory.
func (m *Manager) GetSession(workDir string) (*Session, error) {
	key := domain.CleanWorkDir(workDir)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
	}
	return s, nil
}

// ListSessions returns the live sessions ordered by working directory.
func (m *Manager) ListSessions() []*Session {
	m.mu.Lock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].workDir < out[j].workDir })
	return out
}

// WriteInput routes raw user input to the session for the working
// directory.
func (m *Manager) WriteInput(workDir string, p []byte) error {
	s, err := m.GetSession(workDir)
	if err != nil {
		return err
	}
	return s.WriteInput(p)
}

// ResizeSession resizes the session's screen and PTY.
func (m *Manager) ResizeSession(workDir string, cols, rows int) error {
	s, err := m.GetSession(workDir)
	if err != nil {
		return err
	}
	return s.Resize(cols, rows)
}

// DestroySession tears down the session and removes its record.
func (m *Manager) DestroySession(ctx context.Context, workDir string) error {
	key := domain.CleanWorkDir(workDir)

	m.mu.Lock()
	s, ok := m.sessions[key]
	if ok {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, key)
	}

	s.destroy()
	if err := m.repo.Delete(ctx, key); err != nil {
		logging.Logger.Warn("failed to delete session record",
			"workdir", key, "error", err)
	}
	m.publish(domain.Notification{
		Type:    domain.EventDestroyed,
		WorkDir: key,
		Time:    m.clk.Now(),
	})
	logging.Logger.Info("session destroyed", "workdir", key)
	return nil
}

// RestoreSessions respawns the sessions that were live when the engine
// last shut down, emitting a restore notification for each. Records
// whose respawn fails are marked exited instead of aborting the rest.
func (m *Manager) RestoreSessions(ctx context.Context) error {
	records, err := m.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list session records: %w", err)
	}

	for _, record := range records {
		if record.State == domain.StateExited {
			continue
		}
		_, created, err := m.acquire(ctx, CreateOptions{
			WorkDir: record.WorkDir,
			Tool:    record.Tool,
			Command: record.Command,
			Args:    record.Args,
		}, true, true)
		if err != nil {
			logging.Logger.Warn("failed to restore session",
				"workdir", record.WorkDir, "error", err)
			if uerr := m.repo.UpdateState(ctx, record.WorkDir, domain.StateExited, record.ExecutionID); uerr != nil {
				logging.Logger.Warn("failed to mark session exited",
					"workdir", record.WorkDir, "error", uerr)
			}
			continue
		}
		if !created {
			logging.Logger.Debug("session already live, skipping restore",
				"workdir", record.WorkDir)
		}
	}
	return nil
}

// Close destroys every session in parallel, persists their last states
// for the next restore, and closes the repository. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	g := new(errgroup.Group)
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			s.destroy()
			state := s.State().State
			if state == domain.StatePendingApproval {
				state = domain.StateWaitingInput
			}
			return m.repo.UpdateState(context.Background(), s.workDir, state, s.executionID)
		})
	}
	err := g.Wait()
	repoErr := m.repo.Close()

	logging.Logger.Info("engine closed", "sessions", len(sessions))
	if err != nil {
		return err
	}
	return repoErr
}

// onSessionEvent is each session's notification sink: persist what
// needs persisting, drop sessions whose process exited, and fan out.
func (m *Manager) onSessionEvent(s *Session, n domain.Notification) {
	switch n.Type {
	case domain.EventStateChanged:
		m.persistState(s, n.State)
		m.persistOutput(s)
	case domain.EventExit:
		m.mu.Lock()
		if m.sessions[s.workDir] == s {
			delete(m.sessions, s.workDir)
		}
		m.mu.Unlock()
		m.persistState(s, domain.StateExited)
		m.persistOutput(s)
	}
	m.publish(n)
}

func (m *Manager) persistState(s *Session, state domain.SessionState) {
	if err := m.repo.UpdateState(context.Background(), s.workDir, state, s.executionID); err != nil {
		logging.Logger.Warn("failed to persist session state",
			"workdir", s.workDir, "state", state, "error", err)
	}
}

// persistOutputLimit caps the raw output tail stored in the registry.
const persistOutputLimit = 32 * 1024

// persistOutput snapshots the raw output tail so `farol sessions view`
// can show a session's screen from another process.
func (m *Manager) persistOutput(s *Session) {
	output := s.History()
	if len(output) > persistOutputLimit {
		output = output[len(output)-persistOutputLimit:]
	}
	if err := m.repo.UpdateOutput(context.Background(), s.workDir, output); err != nil {
		logging.Logger.Warn("failed to persist session output",
			"workdir", s.workDir, "error", err)
	}
}

func (m *Manager) publish(n domain.Notification) {
	select {
	case m.events <- n:
	default:
		logging.Logger.Debug("notification dropped",
			"type", n.Type, "workdir", n.WorkDir)
	}

	// Sends happen only while holding subMu, so cancel can safely close
	// a removed channel.
	m.subMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- n:
		default:
		}
	}
	m.subMu.Unlock()
}
