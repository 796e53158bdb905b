package engine

import (
	"bytes"
	"sync"
	"time"

	"github.com/renato0307/farol/internal/clock"
)

// Synchronized output markers (DEC private mode 2026). Well-behaved
// producers wrap full-screen redraws in these so consumers can apply
// the burst atomically instead of rendering a half-drawn screen.
var (
	syncStart = []byte("\x1b[?2026h")
	syncEnd   = []byte("\x1b[?2026l")
	// syncPrefix is the shared prefix of both markers; a buffer ending in
	// any prefix of it may be holding a marker split across fragments.
	syncPrefix = []byte("\x1b[?2026")
)

const (
	// DefaultCoalesceDelay merges output fragments that arrive within the
	// same burst without adding perceptible latency.
	DefaultCoalesceDelay = 5 * time.Millisecond
	// DefaultSyncTimeout bounds how long an unclosed synchronized block
	// can hold output back before it is flushed anyway.
	DefaultSyncTimeout = 1 * time.Second
)

// Framer turns an unframed stream of terminal output fragments into
// frames that downstream consumers can treat as atomic. Fragments may
// split escape sequences or multi-byte characters at any byte; the
// framer preserves exact byte order and never drops data. Content
// inside a synchronized block is emitted as one frame including both
// markers; everything else is coalesced per burst.
type Framer struct {
	clk           clock.Clock
	coalesceDelay time.Duration
	syncTimeout   time.Duration
	emit          func(frame []byte)

	mu            sync.Mutex
	buf           []byte
	inSync        bool
	closed        bool
	coalesce      *clock.Timer
	coalesceArmed bool
	syncTimer     *clock.Timer
	syncArmed     bool
}

// NewFramer creates a framer delivering frames to emit. Non-positive
// delays fall back to the defaults. emit is called with the framer's
// internals locked and must not call back into it; the frame slice is
// owned by the callee.
func NewFramer(clk clock.Clock, coalesceDelay, syncTimeout time.Duration, emit func(frame []byte)) *Framer {
	if coalesceDelay <= 0 {
		coalesceDelay = DefaultCoalesceDelay
	}
	if syncTimeout <= 0 {
		syncTimeout = DefaultSyncTimeout
	}
	return &Framer{
		clk:           clk,
		coalesceDelay: coalesceDelay,
		syncTimeout:   syncTimeout,
		emit:          emit,
	}
}

// Feed appends a fragment and emits any frames it completes. Calling
// Feed after Close is a no-op.
func (f *Framer) Feed(p []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || len(p) == 0 {
		return
	}
	f.buf = append(f.buf, p...)
	f.processLocked()
}

// Close cancels all timers and flushes whatever is still buffered,
// including any incomplete multi-byte tail, as one final frame.
// Idempotent; no frames are emitted after Close returns.
func (f *Framer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.stopCoalesceLocked()
	f.stopSyncTimerLocked()
	f.inSync = false
	if len(f.buf) > 0 {
		f.emitLocked(f.buf)
		f.buf = nil
	}
}

func (f *Framer) processLocked() {
	for {
		if f.inSync {
			end := bytes.Index(f.buf, syncEnd)
			if end < 0 {
				// Unclosed block: a crashed producer must not stall
				// output forever, so the timeout restarts with each
				// fragment and flushes when it fires.
				f.armSyncTimerLocked()
				return
			}
			frame := end + len(syncEnd)
			f.emitLocked(f.buf[:frame])
			f.buf = f.buf[frame:]
			f.inSync = false
			f.stopSyncTimerLocked()
			continue
		}

		if start := bytes.Index(f.buf, syncStart); start >= 0 {
			if start > 0 {
				f.emitLocked(f.buf[:start])
				f.buf = f.buf[start:]
			}
			f.inSync = true
			f.stopCoalesceLocked()
			continue
		}

		if len(f.buf) == 0 {
			f.stopCoalesceLocked()
			return
		}
		f.armCoalesceLocked()
		return
	}
}

// onCoalesce flushes the coalesced burst, keeping back any byte run
// that could still turn into a marker or complete a rune.
func (f *Framer) onCoalesce() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.coalesceArmed = false
	if f.closed || f.inSync {
		return
	}
	f.flushReadyLocked()
}

// onSyncTimeout abandons an unclosed synchronized block and flushes.
func (f *Framer) onSyncTimeout() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.syncArmed = false
	if f.closed || !f.inSync {
		return
	}
	f.inSync = false
	f.flushReadyLocked()
}

// flushReadyLocked emits everything buffered except trailing bytes that
// may be an incomplete marker or an incomplete UTF-8 sequence; those
// wait for the next fragment (or for Close).
func (f *Framer) flushReadyLocked() {
	hold := holdbackLen(f.buf)
	ready := len(f.buf) - hold
	if ready <= 0 {
		return
	}
	f.emitLocked(f.buf[:ready])
	f.buf = f.buf[ready:]
}

func (f *Framer) emitLocked(frame []byte) {
	if len(frame) == 0 {
		return
	}
	out := make([]byte, len(frame))
	copy(out, frame)
	f.emit(out)
}

func (f *Framer) armCoalesceLocked() {
	if f.coalesceArmed {
		return
	}
	f.coalesceArmed = true
	if f.coalesce == nil {
		f.coalesce = f.clk.AfterFunc(f.coalesceDelay, f.onCoalesce)
		return
	}
	f.coalesce.Reset(f.coalesceDelay)
}

func (f *Framer) stopCoalesceLocked() {
	if !f.coalesceArmed {
		return
	}
	f.coalesceArmed = false
	f.coalesce.Stop()
}

func (f *Framer) armSyncTimerLocked() {
	f.syncArmed = true
	if f.syncTimer == nil {
		f.syncTimer = f.clk.AfterFunc(f.syncTimeout, f.onSyncTimeout)
		return
	}
	f.syncTimer.Reset(f.syncTimeout)
}

func (f *Framer) stopSyncTimerLocked() {
	if !f.syncArmed {
		return
	}
	f.syncArmed = false
	f.syncTimer.Stop()
}

// holdbackLen returns how many trailing bytes to keep buffered: a run
// that is a prefix of a synchronized marker takes precedence, otherwise
// an incomplete UTF-8 sequence.
func holdbackLen(p []byte) int {
	if n := partialMarkerLen(p); n > 0 {
		return n
	}
	return incompleteRuneLen(p)
}

// partialMarkerLen returns the length of the longest suffix of p that is
// a non-empty prefix of a synchronized marker. Full markers never reach
// here; they are consumed during processing.
func partialMarkerLen(p []byte) int {
	max := len(syncPrefix)
	if len(p) < max {
		max = len(p)
	}
	for k := max; k > 0; k-- {
		if bytes.HasSuffix(p, syncPrefix[:k]) {
			return k
		}
	}
	return 0
}

// incompleteRuneLen returns the number of trailing bytes forming the
// start of a UTF-8 sequence whose remaining bytes have not arrived yet.
func incompleteRuneLen(p []byte) int {
	n := len(p)
	for back := 1; back <= 4 && back <= n; back++ {
		b := p[n-back]
		if b < 0x80 {
			return 0
		}
		if b < 0xC0 {
			continue // continuation byte, keep scanning
		}
		var size int
		switch {
		case b >= 0xF0:
			size = 4
		case b >= 0xE0:
			size = 3
		default:
			size = 2
		}
		if size > back {
			return back
		}
		return 0
	}
	return 0
}
