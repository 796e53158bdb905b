package ports

import "io"

// SpawnOptions configures the terminal a command is started in
type SpawnOptions struct {
	// Dir is the working directory the command runs in
	Dir string
	// Env is appended to the parent environment; nil means inherit as-is
	Env []string
	// Cols and Rows set the initial PTY size
	Cols int
	Rows int
}

// ProcessHandle represents a running interactive command attached to a PTY
type ProcessHandle interface {
	// Output streams everything the process writes to its terminal
	Output() io.Reader
	// Write sends bytes to the process as if typed by the user
	Write(p []byte) (int, error)
	// Resize changes the PTY dimensions
	Resize(cols, rows int) error
	// Kill terminates the process; safe to call after exit
	Kill() error
	// Done is closed once the process has exited
	Done() <-chan struct{}
	// ExitErr reports how the process ended; only valid after Done is closed
	ExitErr() error
}

// ProcessSpawner starts interactive commands on pseudo-terminals
type ProcessSpawner interface {
	Spawn(command string, args []string, opts SpawnOptions) (ProcessHandle, error)
}
