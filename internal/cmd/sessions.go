package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/charmbracelet/x/ansi"

	"github.com/renato0307/farol/internal/config"
	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/logging"
)

// SessionsCmd manages sessions
type SessionsCmd struct {
	Del  SessionsDelCmd  `cmd:"del" help:"Delete a session record"`
	List SessionsListCmd `cmd:"list" help:"List all sessions" default:"1"`
	View SessionsViewCmd `cmd:"view" help:"Show a session's last captured output"`
}

// SessionsListCmd lists all sessions
type SessionsListCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
}

// Run executes the list command
func (s *SessionsListCmd) Run(cli *CLI) error {
	sessions, err := cli.Container.sessionRepo.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if s.Format == "json" {
		data, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKDIR\tTOOL\tSTATE\tLAST UPDATED")
	for _, sess := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			sess.WorkDir,
			sess.Tool,
			sess.State,
			sess.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

// SessionsViewCmd shows the last captured output of a session
type SessionsViewCmd struct {
	Raw     bool   `help:"Print raw terminal output with ANSI sequences" short:"r"`
	WorkDir string `arg:"" help:"Working directory of the session"`
}

// Run executes the view command
func (s *SessionsViewCmd) Run(cli *CLI) error {
	workDir := domain.CleanWorkDir(config.ExpandPath(s.WorkDir))
	session, err := cli.Container.sessionRepo.Get(context.Background(), workDir)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	if session.LastOutput == "" {
		fmt.Printf("No captured output for %s yet\n", workDir)
		return nil
	}

	if s.Raw {
		fmt.Print(session.LastOutput)
		return nil
	}
	fmt.Println(ansi.Strip(session.LastOutput))
	return nil
}

// SessionsDelCmd deletes a session record
type SessionsDelCmd struct {
	Force   bool   `help:"Force deletion without confirmation" short:"f"`
	WorkDir string `arg:"" help:"Working directory of the session to delete"`
}

// Run executes the del command
func (s *SessionsDelCmd) Run(cli *CLI) error {
	workDir := domain.CleanWorkDir(config.ExpandPath(s.WorkDir))
	logging.Logger.Info("Executing sessions del command", "workdir", workDir, "force", s.Force)

	ctx := context.Background()
	if _, err := cli.Container.sessionRepo.Get(ctx, workDir); err != nil {
		return fmt.Errorf("session not found: %w", err)
	}

	if !s.Force {
		fmt.Printf("Delete session record for '%s'? (y/N): ", workDir)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Cancelled")
			return nil
		}
	}

	if err := cli.Container.sessionRepo.Delete(ctx, workDir); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	logging.Logger.Info("Session record deleted via CLI", "workdir", workDir)
	fmt.Printf("Session record for '%s' deleted\n", workDir)
	return nil
}
