package pty

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ports"
)

// killGracePeriod is how long a process gets to exit after SIGTERM
// before it is killed outright.
const killGracePeriod = 5 * time.Second

// Spawner launches commands on a pseudo-terminal.
type Spawner struct{}

// Verify interface compliance at compile time
var _ ports.ProcessSpawner = (*Spawner)(nil)

// NewSpawner creates a new Spawner
func NewSpawner() *Spawner {
	return &Spawner{}
}

// Spawn implements ports.ProcessSpawner.Spawn
func (sp *Spawner) Spawn(command string, args []string, opts ports.SpawnOptions) (ports.ProcessHandle, error) {
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("command not found: %s", command)
	}

	if opts.Dir != "" {
		if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("working directory does not exist: %s", opts.Dir)
		}
	}

	cols, rows := opts.Cols, opts.Rows
	if cols <= 0 {
		cols = 80
	}
	if rows <= 0 {
		rows = 24
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pty: %w", err)
	}

	h := &handle{
		ptmx: ptmx,
		cmd:  cmd,
		done: make(chan struct{}),
	}
	go h.wait()

	logging.Logger.Info("process spawned",
		"command", command,
		"pid", cmd.Process.Pid,
		"dir", opts.Dir)
	return h, nil
}

// handle wraps one PTY-backed process.
type handle struct {
	ptmx *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	killed bool

	done    chan struct{}
	exitErr error
}

var _ ports.ProcessHandle = (*handle)(nil)

// Output returns the PTY master. Reads fail once the child exits.
func (h *handle) Output() io.Reader { return h.ptmx }

func (h *handle) Write(p []byte) (int, error) {
	return h.ptmx.Write(p)
}

func (h *handle) Resize(cols, rows int) error {
	return pty.Setsize(h.ptmx, &pty.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}

// Kill asks the process to exit with SIGTERM and escalates to SIGKILL
// after killGracePeriod. It returns without waiting for the exit.
func (h *handle) Kill() error {
	h.mu.Lock()
	if h.killed {
		h.mu.Unlock()
		return nil
	}
	h.killed = true
	h.mu.Unlock()

	select {
	case <-h.done:
		return nil
	default:
	}

	// SIGTERM to the process; closing the PTY also sends SIGHUP
	if h.cmd.Process != nil {
		_ = h.cmd.Process.Signal(syscall.SIGTERM)
	}

	go func() {
		select {
		case <-h.done:
		case <-time.After(killGracePeriod):
			if h.cmd.Process != nil {
				_ = h.cmd.Process.Kill()
			}
		}
	}()
	return nil
}

func (h *handle) Done() <-chan struct{} { return h.done }

// ExitErr returns the process exit error once Done is closed, nil
// before that.
func (h *handle) ExitErr() error {
	select {
	case <-h.done:
		return h.exitErr
	default:
		return nil
	}
}

func (h *handle) wait() {
	err := h.cmd.Wait()
	_ = h.ptmx.Close()
	h.exitErr = err
	close(h.done)

	logging.Logger.Debug("process exited",
		"pid", h.cmd.Process.Pid,
		"error", err)
}
