package cmd

import (
	"context"
	"os"

	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/server"
)

// ServeCmd serves the TUI over SSH
type ServeCmd struct {
	Listen string `help:"Listen address (host:port)" default:"localhost:2222"`
	Tool   string `help:"Default tool preselected in the create form" default:"claude"`
}

// Run starts the SSH server
func (s *ServeCmd) Run(cli *CLI) error {
	if cli.settings != nil {
		if s.Listen == "localhost:2222" {
			if _, hasEnv := os.LookupEnv("FAROL_LISTEN"); !hasEnv {
				if cli.settings.ListenAddress != "" {
					s.Listen = cli.settings.ListenAddress
				}
			}
		}
		if s.Tool == "claude" {
			if _, hasEnv := os.LookupEnv("FAROL_TOOL"); !hasEnv {
				if cli.settings.DefaultTool != "" {
					s.Tool = cli.settings.DefaultTool
				}
			}
		}
	}

	// The SSH server hosts the engine exactly like the local TUI does.
	unlock, err := acquireInstanceLock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := cli.Container.Manager.RestoreSessions(context.Background()); err != nil {
		logging.Logger.Warn("Failed to restore sessions", "error", err)
	}

	var authorizedKeys string
	if cli.settings != nil {
		authorizedKeys = cli.settings.AuthorizedKeys
	}

	srv, err := server.NewServer(cli.Container.Manager, server.Options{
		Addr:           s.Listen,
		AuthorizedKeys: authorizedKeys,
		DefaultTool:    s.Tool,
		Tools:          cli.Container.Tools(),
	})
	if err != nil {
		return err
	}

	return srv.Start()
}
