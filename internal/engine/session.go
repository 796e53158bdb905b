package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renato0307/farol/internal/clock"
	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ports"
)

// Session drives one interactive tool in one working directory. It owns
// the process handle, the headless screen, the retained output history,
// and the serialized state record; all state mutation flows through the
// serialized container so the periodic tick, approval callbacks, user
// input, and destruction can never race each other.
type Session struct {
	workDir     string
	tool        string
	executionID string
	createdAt   time.Time

	cfg    Config
	clk    clock.Clock
	handle ports.ProcessHandle
	screen ports.ScreenBuffer

	classifier  Classifier
	approveKeys []byte
	verifier    ports.Verifier
	approval    ports.ApprovalConfig
	notify      func(domain.Notification)

	framer *Framer
	state  *SerializedState[domain.SessionStateData]
	ticker *clock.Ticker

	historyMu    sync.Mutex
	history      []string
	historyBytes int

	readDone    chan struct{}
	destroyed   chan struct{}
	destroyOnce sync.Once
}

type sessionParams struct {
	workDir     string
	tool        string
	handle      ports.ProcessHandle
	screen      ports.ScreenBuffer
	classifier  Classifier
	approveKeys []byte
	verifier    ports.Verifier
	approval    ports.ApprovalConfig
	notify      func(domain.Notification)
}

func newSession(cfg Config, clk clock.Clock, p sessionParams) *Session {
	s := &Session{
		workDir:     p.workDir,
		tool:        p.tool,
		executionID: uuid.NewString(),
		createdAt:   clk.Now(),
		cfg:         cfg,
		clk:         clk,
		handle:      p.handle,
		screen:      p.screen,
		classifier:  p.classifier,
		approveKeys: p.approveKeys,
		verifier:    p.verifier,
		approval:    p.approval,
		notify:      p.notify,
		readDone:    make(chan struct{}),
		destroyed:   make(chan struct{}),
	}
	s.framer = NewFramer(clk, cfg.CoalesceDelay, cfg.SyncTimeout, s.onFrame)
	s.state = NewSerializedState(domain.SessionStateData{State: domain.StateBusy})
	s.ticker = clk.NewTicker(cfg.CheckInterval)
	return s
}

func (s *Session) start() {
	go s.readLoop()
	go s.tickLoop()
	go s.watchExit()
}

// WorkDir returns the session key.
func (s *Session) WorkDir() string { return s.workDir }

// Tool returns the tool profile name the session was created with.
func (s *Session) Tool() string { return s.tool }

// ExecutionID identifies this spawn of the session's process.
func (s *Session) ExecutionID() string { return s.executionID }

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// State returns the current state record without blocking.
func (s *Session) State() domain.SessionStateData {
	return s.state.Snapshot()
}

// History returns the retained output for re-attachment replay.
func (s *Session) History() string {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()
	return strings.Join(s.history, "")
}

// VisibleLines returns the bottom n rendered screen lines, or the whole
// screen when n <= 0.
func (s *Session) VisibleLines(n int) []string {
	return s.screen.VisibleLines(n)
}

// Done is closed once the session has been fully torn down or its
// teardown has begun.
func (s *Session) Done() <-chan struct{} { return s.destroyed }

// WriteInput forwards raw user input to the process. Input always wins
// a race with the automatic verifier: an in-flight approval is
// cancelled before the bytes are delivered.
func (s *Session) WriteInput(p []byte) error {
	s.cancelPendingApproval()
	_, err := s.handle.Write(p)
	return err
}

// Resize adjusts the screen and the PTY. The screen resizes first so
// the redraw triggered by the PTY change lands on the new geometry.
func (s *Session) Resize(cols, rows int) error {
	s.screen.Resize(cols, rows)
	return s.handle.Resize(cols, rows)
}

// Destroy tears the session down: stops the periodic timer, cancels any
// in-flight approval, kills the process, flushes remaining output, and
// closes the state container. Idempotent; concurrent callers block
// until teardown completes.
func (s *Session) Destroy() {
	s.destroy()
}

func (s *Session) destroy() {
	s.destroyOnce.Do(func() {
		close(s.destroyed)
		s.ticker.Stop()

		var cancel context.CancelFunc
		<-s.state.Update(func(d domain.SessionStateData) domain.SessionStateData {
			if d.State == domain.StatePendingApproval {
				cancel = d.AutoApprovalCancel
				d.AutoApprovalCancel = nil
				d.ApprovalID = ""
			}
			return d
		})
		if cancel != nil {
			cancel()
		}

		if err := s.handle.Kill(); err != nil {
			logging.Logger.Debug("session kill", "workdir", s.workDir, "error", err)
		}
		<-s.readDone
		s.framer.Close()
		s.state.Close()
	})
}

// readLoop pumps process output into the framer until EOF.
func (s *Session) readLoop() {
	defer close(s.readDone)

	out := s.handle.Output()
	buf := make([]byte, 32*1024)
	for {
		n, err := out.Read(buf)
		if n > 0 {
			s.framer.Feed(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// watchExit turns an unexpected process exit into teardown plus exactly
// one exit notification, after all remaining output has been flushed.
func (s *Session) watchExit() {
	<-s.readDone

	userDestroy := false
	select {
	case <-s.destroyed:
		userDestroy = true
	default:
	}

	s.destroy()
	if userDestroy {
		return
	}

	<-s.handle.Done()
	err := s.handle.ExitErr()
	logging.Logger.Info("session process exited",
		"workdir", s.workDir,
		"execution_id", s.executionID,
		"error", err)
	s.notify(domain.Notification{
		Type:    domain.EventExit,
		WorkDir: s.workDir,
		State:   domain.StateExited,
		Err:     err,
		Time:    s.clk.Now(),
	})
}

// onFrame receives each framed output chunk: apply to the screen,
// retain for replay, fan out to observers.
func (s *Session) onFrame(frame []byte) {
	s.screen.Feed(frame)
	text := string(frame)
	s.appendHistory(text)
	s.notify(domain.Notification{
		Type:    domain.EventData,
		WorkDir: s.workDir,
		Frame:   text,
		Time:    s.clk.Now(),
	})
}

func (s *Session) appendHistory(frame string) {
	s.historyMu.Lock()
	defer s.historyMu.Unlock()

	s.history = append(s.history, frame)
	s.historyBytes += len(frame)
	for s.historyBytes > s.cfg.HistoryLimit && len(s.history) > 1 {
		s.historyBytes -= len(s.history[0])
		s.history = s.history[1:]
	}
}

func (s *Session) tickLoop() {
	for {
		select {
		case <-s.destroyed:
			return
		case <-s.ticker.C:
			s.check()
		}
	}
}

// check is one periodic classification tick: read the screen, classify
// against the last confirmed state, debounce, and on a confirmed
// transition notify once and possibly kick off auto-approval.
func (s *Session) check() {
	snap := s.state.Snapshot()
	if snap.State == domain.StatePendingApproval {
		// The approval workflow owns the state until it resolves.
		return
	}

	screenText := strings.Join(s.screen.VisibleLines(s.cfg.VisibleLines), "\n")
	candidate := s.classifier.Classify(screenText, snap.State)
	now := s.clk.Now()

	confirmed := false
	next := <-s.state.Update(func(d domain.SessionStateData) domain.SessionStateData {
		updated, ok := applyCandidate(d, candidate, now, s.cfg.PersistWindow)
		confirmed = ok
		return updated
	})
	if !confirmed {
		return
	}

	logging.Logger.Debug("session state confirmed",
		"workdir", s.workDir,
		"state", next.State)
	s.notifyStateChanged(next.State)

	if next.State == domain.StateWaitingInput {
		s.maybeStartApproval(next, screenText)
	}
}

// maybeStartApproval forces the state to pending_auto_approval and
// launches the asynchronous verification, provided auto-approval is
// enabled and this waiting episode has not already failed one.
func (s *Session) maybeStartApproval(snap domain.SessionStateData, screenText string) {
	if snap.AutoApprovalFailed || !s.approval.AutoApprovalEnabled() {
		return
	}

	approvalID := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	started := false
	<-s.state.Update(func(d domain.SessionStateData) domain.SessionStateData {
		if d.State != domain.StateWaitingInput || d.AutoApprovalFailed {
			return d
		}
		d.State = domain.StatePendingApproval
		d.PendingState = ""
		d.PendingStateStart = time.Time{}
		d.ApprovalID = approvalID
		d.AutoApprovalCancel = cancel
		d.AutoApprovalReason = ""
		started = true
		return d
	})
	if !started {
		cancel()
		return
	}

	s.notifyStateChanged(domain.StatePendingApproval)
	go s.runVerification(ctx, approvalID, screenText)
}

func (s *Session) runVerification(ctx context.Context, approvalID, screenText string) {
	timeout := s.approval.AutoApprovalTimeout()
	if timeout <= 0 {
		timeout = s.cfg.ApprovalTimeout
	}
	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := s.verifier.Verify(vctx, screenText)
	if err != nil {
		// Timeout, cancellation, or a broken verifier all fail safe.
		logging.Logger.Warn("auto-approval verification failed",
			"workdir", s.workDir,
			"error", err)
		s.finishApproval(approvalID, true, err.Error())
		return
	}
	s.finishApproval(approvalID, result.NeedsPermission, result.Reason)
}

// finishApproval applies the verification outcome, unless the approval
// was cancelled or superseded in the meantime, in which case the late
// result is discarded.
func (s *Session) finishApproval(approvalID string, needsPermission bool, reason string) {
	if !needsPermission {
		// Claim the live token first: only the claimant may write the
		// affirmative keystroke.
		claimed := false
		<-s.state.Update(func(d domain.SessionStateData) domain.SessionStateData {
			claimed = d.State == domain.StatePendingApproval && d.ApprovalID == approvalID
			return d
		})
		if !claimed {
			return
		}

		if _, err := s.handle.Write(s.approveKeys); err != nil {
			logging.Logger.Warn("auto-approval keystroke failed",
				"workdir", s.workDir,
				"error", err)
			needsPermission = true
			reason = "keystroke write failed"
		}
	}

	var finishedCancel context.CancelFunc
	forced := domain.SessionState("")
	next := <-s.state.Update(func(d domain.SessionStateData) domain.SessionStateData {
		if d.State != domain.StatePendingApproval || d.ApprovalID != approvalID {
			return d
		}
		finishedCancel = d.AutoApprovalCancel
		d.AutoApprovalCancel = nil
		d.ApprovalID = ""
		if needsPermission {
			d.State = domain.StateWaitingInput
			d.AutoApprovalFailed = true
			d.AutoApprovalReason = reason
		} else {
			// Forcing straight to busy prevents the still-unrendered
			// prompt from being re-classified as waiting_input and
			// looping the workflow.
			d.State = domain.StateBusy
			d.AutoApprovalFailed = false
			d.AutoApprovalReason = ""
		}
		forced = d.State
		return d
	})
	if finishedCancel != nil {
		finishedCancel()
	}
	if forced == "" {
		return
	}

	logging.Logger.Debug("auto-approval resolved",
		"workdir", s.workDir,
		"state", next.State,
		"reason", reason)
	s.notifyStateChanged(forced)
}

// cancelPendingApproval implements the user-wins rule: raw input during
// a pending approval cancels the verification, marks the episode
// failed, and forces waiting_input with a single notification.
func (s *Session) cancelPendingApproval() {
	var cancel context.CancelFunc
	forced := false
	<-s.state.Update(func(d domain.SessionStateData) domain.SessionStateData {
		if d.State != domain.StatePendingApproval {
			return d
		}
		cancel = d.AutoApprovalCancel
		d.AutoApprovalCancel = nil
		d.ApprovalID = ""
		d.State = domain.StateWaitingInput
		d.AutoApprovalFailed = true
		d.AutoApprovalReason = "cancelled by user input"
		forced = true
		return d
	})
	if cancel != nil {
		cancel()
	}
	if forced {
		logging.Logger.Debug("auto-approval cancelled by user", "workdir", s.workDir)
		s.notifyStateChanged(domain.StateWaitingInput)
	}
}

func (s *Session) notifyStateChanged(state domain.SessionState) {
	s.notify(domain.Notification{
		Type:    domain.EventStateChanged,
		WorkDir: s.workDir,
		State:   state,
		Time:    s.clk.Now(),
	})
}
