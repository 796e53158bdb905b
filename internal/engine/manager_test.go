package engine

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renato0307/farol/internal/clock"
	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/ports"
)

type spawnRecord struct {
	command string
	args    []string
	opts    ports.SpawnOptions
	handle  *fakeHandle
}

type fakeSpawner struct {
	mu      sync.Mutex
	spawns  []spawnRecord
	err     error
	block   chan struct{}
	entered atomic.Int32
}

func (sp *fakeSpawner) Spawn(command string, args []string, opts ports.SpawnOptions) (ports.ProcessHandle, error) {
	sp.entered.Add(1)
	sp.mu.Lock()
	block := sp.block
	err := sp.err
	sp.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}

	h := newFakeHandle()
	sp.mu.Lock()
	sp.spawns = append(sp.spawns, spawnRecord{command: command, args: args, opts: opts, handle: h})
	sp.mu.Unlock()
	return h, nil
}

func (sp *fakeSpawner) Spawns() []spawnRecord {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	return append([]spawnRecord(nil), sp.spawns...)
}

type repoUpdate struct {
	workDir string
	state   domain.SessionState
	execID  string
}

type fakeRepo struct {
	mu      sync.Mutex
	records map[string]domain.Session
	updates []repoUpdate
	deletes []string
	closed  bool
	addErr  error
	listErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]domain.Session)}
}

func (r *fakeRepo) Get(ctx context.Context, workDir string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[workDir]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &rec, nil
}

func (r *fakeRepo) List(ctx context.Context) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]domain.Session, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDir < out[j].WorkDir })
	return out, nil
}

func (r *fakeRepo) Add(ctx context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return r.addErr
	}
	r.records[session.WorkDir] = session
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, workDir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, workDir)
	delete(r.records, workDir)
	return nil
}

func (r *fakeRepo) UpdateState(ctx context.Context, workDir string, state domain.SessionState, executionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, repoUpdate{workDir: workDir, state: state, execID: executionID})
	if rec, ok := r.records[workDir]; ok {
		rec.State = state
		rec.ExecutionID = executionID
		r.records[workDir] = rec
	}
	return nil
}

func (r *fakeRepo) UpdateOutput(ctx context.Context, workDir string, output string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[workDir]; ok {
		rec.LastOutput = output
		r.records[workDir] = rec
	}
	return nil
}

func (r *fakeRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeRepo) Updates() []repoUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]repoUpdate(nil), r.updates...)
}

func (r *fakeRepo) Record(workDir string) (domain.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[workDir]
	return rec, ok
}

func (r *fakeRepo) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type managerHarness struct {
	cfg      Config
	clk      *clock.FakeClock
	spawner  *fakeSpawner
	repo     *fakeRepo
	verifier *fakeVerifier
	approval *fakeApprovalConfig
	mgr      *Manager

	mu        sync.Mutex
	screens   []*fakeScreen
	collected []domain.Notification
}

func newManagerHarness(t *testing.T) *managerHarness {
	t.Helper()

	h := &managerHarness{
		cfg:      testConfig(),
		clk:      clock.Fake(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)),
		spawner:  &fakeSpawner{},
		repo:     newFakeRepo(),
		verifier: &fakeVerifier{},
		approval: &fakeApprovalConfig{},
	}
	h.mgr = NewManager(ManagerParams{
		Config:  h.cfg,
		Clock:   h.clk,
		Spawner: h.spawner,
		Screens: func(cols, rows int) ports.ScreenBuffer {
			s := &fakeScreen{text: busyScreen, cols: cols, rows: rows}
			h.mu.Lock()
			h.screens = append(h.screens, s)
			h.mu.Unlock()
			return s
		},
		Verifier: h.verifier,
		Approval: h.approval,
		Repo:     h.repo,
	})
	t.Cleanup(func() { _ = h.mgr.Close() })
	return h
}

// eventsOfType drains pending notifications and returns the collected
// ones of the given type, in arrival order.
func (h *managerHarness) eventsOfType(tp domain.EventType) []domain.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		select {
		case n := <-h.mgr.Events():
			h.collected = append(h.collected, n)
		default:
			var out []domain.Notification
			for _, n := range h.collected {
				if n.Type == tp {
					out = append(out, n)
				}
			}
			return out
		}
	}
}

func (h *managerHarness) screen(i int) *fakeScreen {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screens[i]
}

func TestManagerCreateSession(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	s, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha", Tool: "claude"})
	require.NoError(t, err)
	assert.Equal(t, "/w/alpha", s.WorkDir())
	assert.Equal(t, "claude", s.Tool())
	assert.NotEmpty(t, s.ExecutionID())

	spawns := h.spawner.Spawns()
	require.Len(t, spawns, 1)
	assert.Equal(t, "claude", spawns[0].command, "command defaults to the tool name")
	assert.Equal(t, "/w/alpha", spawns[0].opts.Dir)
	assert.Equal(t, h.cfg.DefaultCols, spawns[0].opts.Cols)
	assert.Equal(t, h.cfg.DefaultRows, spawns[0].opts.Rows)

	rec, ok := h.repo.Record("/w/alpha")
	require.True(t, ok)
	assert.Equal(t, domain.StateBusy, rec.State)
	assert.Equal(t, s.ExecutionID(), rec.ExecutionID)
	assert.Equal(t, "claude", rec.Tool)

	require.Eventually(t, func() bool {
		return len(h.eventsOfType(domain.EventCreated)) == 1
	}, time.Second, time.Millisecond)
	created := h.eventsOfType(domain.EventCreated)
	assert.Equal(t, "/w/alpha", created[0].WorkDir)

	got, err := h.mgr.GetSession("/w/alpha")
	require.NoError(t, err)
	assert.Same(t, s, got)
	assert.Len(t, h.mgr.ListSessions(), 1)
}

func TestManagerCreateSessionDuplicateFails(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	_, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)

	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	assert.ErrorIs(t, err, domain.ErrSessionExists)
	assert.Len(t, h.spawner.Spawns(), 1, "the duplicate is rejected before spawning")
}

func TestManagerWorkDirIsNormalized(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	s, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha/"})
	require.NoError(t, err)
	assert.Equal(t, "/w/alpha", s.WorkDir())

	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha/inner/.."})
	assert.ErrorIs(t, err, domain.ErrSessionExists)

	got, err := h.mgr.GetSession("/w/./alpha")
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestManagerRejectsRelativeWorkDir(t *testing.T) {
	h := newManagerHarness(t)

	_, err := h.mgr.CreateSession(context.Background(), CreateOptions{WorkDir: "relative/path"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absolute")
	assert.Empty(t, h.spawner.Spawns())
}

func TestManagerCreateSessionSpawnError(t *testing.T) {
	h := newManagerHarness(t)
	h.spawner.err = errors.New("command not found")

	_, err := h.mgr.CreateSession(context.Background(), CreateOptions{WorkDir: "/w/alpha"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")

	assert.Empty(t, h.mgr.ListSessions())
	_, ok := h.repo.Record("/w/alpha")
	assert.False(t, ok, "a failed spawn leaves no record")
}

func TestManagerGetOrCreateSessionReturnsExisting(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	first, created, err := h.mgr.GetOrCreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := h.mgr.GetOrCreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Len(t, h.spawner.Spawns(), 1)
}

func TestManagerGetOrCreateSessionConcurrentRace(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	release := make(chan struct{})
	h.spawner.mu.Lock()
	h.spawner.block = release
	h.spawner.mu.Unlock()

	type result struct {
		s       *Session
		created bool
	}
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			s, created, err := h.mgr.GetOrCreateSession(ctx, CreateOptions{WorkDir: "/w/race"})
			require.NoError(t, err)
			results <- result{s: s, created: created}
		}()
	}

	// Both racers must be inside Spawn before either may finish.
	require.Eventually(t, func() bool {
		return h.spawner.entered.Load() == 2
	}, time.Second, time.Millisecond)
	close(release)

	a := <-results
	b := <-results
	assert.Same(t, a.s, b.s, "both racers get the same session")
	assert.NotEqual(t, a.created, b.created, "exactly one racer creates")
	assert.Len(t, h.mgr.ListSessions(), 1)

	// The loser's freshly spawned process was killed.
	spawns := h.spawner.Spawns()
	require.Len(t, spawns, 2)
	killed := 0
	for _, sp := range spawns {
		select {
		case <-sp.handle.Done():
			killed++
		default:
		}
	}
	assert.Equal(t, 1, killed)
}

func TestManagerRoutesInputAndResize(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	_, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)
	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/beta"})
	require.NoError(t, err)

	require.NoError(t, h.mgr.WriteInput("/w/beta", []byte("echo hi\n")))

	spawns := h.spawner.Spawns()
	assert.Empty(t, spawns[0].handle.Writes())
	assert.Equal(t, []string{"echo hi\n"}, spawns[1].handle.Writes())

	require.NoError(t, h.mgr.ResizeSession("/w/alpha", 132, 43))
	assert.Equal(t, [][2]int{{132, 43}}, spawns[0].handle.Resizes())

	err = h.mgr.WriteInput("/w/missing", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	err = h.mgr.ResizeSession("/w/missing", 80, 24)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestManagerDestroySession(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	_, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)

	require.NoError(t, h.mgr.DestroySession(ctx, "/w/alpha"))

	handle := h.spawner.Spawns()[0].handle
	select {
	case <-handle.Done():
	case <-time.After(time.Second):
		t.Fatal("process not killed on destroy")
	}

	_, err = h.mgr.GetSession("/w/alpha")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Contains(t, h.repo.deletes, "/w/alpha")

	require.Eventually(t, func() bool {
		return len(h.eventsOfType(domain.EventDestroyed)) == 1
	}, time.Second, time.Millisecond)

	// Destroying again reports the session gone.
	err = h.mgr.DestroySession(ctx, "/w/alpha")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// An explicit destroy is not an unexpected exit.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, h.eventsOfType(domain.EventExit))
}

func TestManagerSessionExitRemovesAndPersists(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	s, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)
	execID := s.ExecutionID()

	h.spawner.Spawns()[0].handle.ExitWith(errors.New("exit status 2"))

	require.Eventually(t, func() bool {
		_, err := h.mgr.GetSession("/w/alpha")
		return errors.Is(err, domain.ErrSessionNotFound)
	}, time.Second, time.Millisecond)

	require.Eventually(t, func() bool {
		exits := h.eventsOfType(domain.EventExit)
		return len(exits) == 1 && exits[0].Err != nil
	}, time.Second, time.Millisecond)

	assert.Contains(t, h.repo.Updates(), repoUpdate{
		workDir: "/w/alpha",
		state:   domain.StateExited,
		execID:  execID,
	})

	// The directory is free again.
	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)
}

func TestManagerStateChangesPersist(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	s, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha", Tool: "claude"})
	require.NoError(t, err)

	// A closed sync block flushes through the framer without timers.
	h.spawner.Spawns()[0].handle.Emit("\x1b[?2026hDo you want to run this command?\x1b[?2026l")
	require.Eventually(t, func() bool {
		return strings.Contains(s.History(), "Do you want to run this command?")
	}, time.Second, time.Millisecond)

	h.screen(0).SetText(waitingScreen)
	require.Eventually(t, func() bool {
		if s.State().State == domain.StateWaitingInput {
			return true
		}
		h.clk.Advance(h.cfg.CheckInterval)
		return false
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		changes := h.eventsOfType(domain.EventStateChanged)
		return len(changes) == 1 && changes[0].State == domain.StateWaitingInput
	}, time.Second, time.Millisecond)

	assert.Contains(t, h.repo.Updates(), repoUpdate{
		workDir: "/w/alpha",
		state:   domain.StateWaitingInput,
		execID:  s.ExecutionID(),
	})

	// The raw output tail is snapshotted with the state.
	rec, ok := h.repo.Record("/w/alpha")
	require.True(t, ok)
	assert.Contains(t, rec.LastOutput, "Do you want to run this command?")
}

func TestManagerRestoreSessions(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	seed := func(workDir string, state domain.SessionState) {
		h.repo.records[workDir] = domain.Session{
			WorkDir:     workDir,
			Tool:        "claude",
			Command:     "claude",
			State:       state,
			ExecutionID: "old-" + workDir,
		}
	}
	seed("/w/alpha", domain.StateBusy)
	seed("/w/beta", domain.StateWaitingInput)
	seed("/w/gone", domain.StateExited)

	require.NoError(t, h.mgr.RestoreSessions(ctx))

	sessions := h.mgr.ListSessions()
	require.Len(t, sessions, 2, "exited records are not respawned")
	assert.Equal(t, "/w/alpha", sessions[0].WorkDir())
	assert.Equal(t, "/w/beta", sessions[1].WorkDir())

	restores := h.eventsOfType(domain.EventRestore)
	require.Len(t, restores, 2)

	// Each restored record now carries its fresh execution id.
	for _, s := range sessions {
		rec, ok := h.repo.Record(s.WorkDir())
		require.True(t, ok)
		assert.Equal(t, s.ExecutionID(), rec.ExecutionID)
		assert.NotContains(t, rec.ExecutionID, "old-")
	}
}

func TestManagerCloseDestroysEverything(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	_, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)
	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/beta"})
	require.NoError(t, err)

	require.NoError(t, h.mgr.Close())

	for _, sp := range h.spawner.Spawns() {
		select {
		case <-sp.handle.Done():
		case <-time.After(time.Second):
			t.Fatal("process still running after close")
		}
	}
	assert.True(t, h.repo.Closed())

	// Last states are persisted so the next start can restore them.
	updates := h.repo.Updates()
	seen := map[string]bool{}
	for _, u := range updates {
		if u.state == domain.StateBusy {
			seen[u.workDir] = true
		}
	}
	assert.True(t, seen["/w/alpha"])
	assert.True(t, seen["/w/beta"])

	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/gamma"})
	assert.ErrorIs(t, err, domain.ErrEngineClosed)

	require.NoError(t, h.mgr.Close(), "close is idempotent")
}

func TestManagerSubscribe(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	sub, cancel := h.mgr.Subscribe()

	_, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)

	// The subscriber sees the same notifications as the primary channel.
	select {
	case n := <-sub:
		assert.Equal(t, domain.EventCreated, n.Type)
		assert.Equal(t, "/w/alpha", n.WorkDir)
	case <-time.After(time.Second):
		t.Fatal("subscriber received no notification")
	}
	require.Eventually(t, func() bool {
		return len(h.eventsOfType(domain.EventCreated)) == 1
	}, time.Second, time.Millisecond)

	// Cancel closes the channel so consumers drain and stop.
	cancel()
	for {
		if _, ok := <-sub; !ok {
			break
		}
	}

	// Publishing after cancel must not panic or block.
	_, err = h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/beta"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return len(h.eventsOfType(domain.EventCreated)) == 2
	}, time.Second, time.Millisecond)

	cancel()
}

func TestManagerSubscribeIndependentConsumers(t *testing.T) {
	h := newManagerHarness(t)
	ctx := context.Background()

	subA, cancelA := h.mgr.Subscribe()
	subB, cancelB := h.mgr.Subscribe()
	defer cancelA()
	defer cancelB()

	_, err := h.mgr.CreateSession(ctx, CreateOptions{WorkDir: "/w/alpha"})
	require.NoError(t, err)

	for name, sub := range map[string]<-chan domain.Notification{"a": subA, "b": subB} {
		select {
		case n := <-sub:
			assert.Equal(t, domain.EventCreated, n.Type)
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s received no notification", name)
		}
	}
}
