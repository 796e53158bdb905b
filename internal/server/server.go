package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"
	wishlogging "github.com/charmbracelet/wish/logging"

	"github.com/renato0307/farol/internal/config"
	"github.com/renato0307/farol/internal/engine"
	"github.com/renato0307/farol/internal/logging"
)

// Server exposes the farol TUI over SSH. Every connection gets its own
// Bubble Tea program backed by the one shared engine manager, so remote
// and local users see the same sessions.
type Server struct {
	addr           string
	authorizedKeys string
	defaultTool    string
	manager        *engine.Manager
	tools          []string
	wishServer     *ssh.Server
}

// Options configures the SSH server.
type Options struct {
	// Addr is the listen address, host:port.
	Addr string
	// AuthorizedKeys is the path checked on public key auth. Empty
	// means ~/.ssh/authorized_keys.
	AuthorizedKeys string
	// DefaultTool preselects the tool in the create form.
	DefaultTool string
	// Tools are the selectable tool profiles.
	Tools []string
}

// NewServer creates an SSH server serving the TUI for manager.
func NewServer(manager *engine.Manager, opts Options) (*Server, error) {
	authorizedKeys := opts.AuthorizedKeys
	if authorizedKeys == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		authorizedKeys = filepath.Join(homeDir, ".ssh", "authorized_keys")
	}

	s := &Server{
		addr:           opts.Addr,
		authorizedKeys: authorizedKeys,
		defaultTool:    opts.DefaultTool,
		manager:        manager,
		tools:          opts.Tools,
	}

	if _, err := config.EnsureFarolHome(); err != nil {
		return nil, fmt.Errorf("failed to create farol home: %w", err)
	}

	// Note: Middleware executes in reverse order (last to first)
	wishServer, err := wish.NewServer(
		wish.WithAddress(opts.Addr),
		wish.WithHostKeyPath(config.GetHostKeyPath()),
		wish.WithPublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
			fingerprint := getKeyFingerprint(key)
			user := ctx.User()

			authorized := isKeyAuthorized(key, s.authorizedKeys)
			if authorized {
				logging.Logger.Info("SSH key authenticated",
					"user", user,
					"fingerprint", fingerprint,
					"key_type", key.Type())
			} else {
				logging.Logger.Warn("Unauthorized SSH key",
					"user", user,
					"fingerprint", fingerprint,
					"key_type", key.Type())
			}
			return authorized
		}),
		wish.WithMiddleware(
			bubbletea.Middleware(s.teaHandler),
			activeterm.Middleware(), // Require PTY
			wishlogging.Middleware(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}

	s.wishServer = wishServer
	return s, nil
}

// Start starts the SSH server and blocks until shutdown
func (s *Server) Start() error {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	logging.Logger.Info("Starting SSH server", "address", s.addr)
	fmt.Printf("SSH server listening on %s\n", s.addr)

	go func() {
		if err := s.wishServer.ListenAndServe(); err != nil {
			logging.Logger.Error("SSH server error", "error", err)
		}
	}()

	<-done
	logging.Logger.Info("Shutting down SSH server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.wishServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown SSH server: %w", err)
	}

	logging.Logger.Info("SSH server stopped")
	return nil
}
