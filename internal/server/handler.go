package server

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"

	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ui"
)

// sshModel wraps ui.Model to release per-connection resources
type sshModel struct {
	*ui.Model
	sessionID   string
	startTime   time.Time
	unsubscribe func()
}

func (s *sshModel) Init() tea.Cmd {
	return s.Model.Init()
}

func (s *sshModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Check for quit message to trigger cleanup
	if _, ok := msg.(tea.QuitMsg); ok {
		duration := time.Since(s.startTime)
		s.unsubscribe()
		logging.Logger.Info("SSH session ended",
			"session_id", s.sessionID,
			"duration", duration.String())
	}

	updatedModel, cmd := s.Model.Update(msg)
	if m, ok := updatedModel.(*ui.Model); ok {
		s.Model = m
	}
	return s, cmd
}

func (s *sshModel) View() string {
	return s.Model.View()
}

// teaHandler creates a Bubbletea model for each SSH session
func (s *Server) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, _ := sess.Pty()
	sessionID := fmt.Sprintf("%s@%s", sess.User(), sess.RemoteAddr().String())

	logging.Logger.Info("New SSH session",
		"session_id", sessionID,
		"user", sess.User(),
		"remote_addr", sess.RemoteAddr().String(),
		"term", pty.Term,
		"window", fmt.Sprintf("%dx%d", pty.Window.Width, pty.Window.Height))

	// Each connection consumes engine events through its own
	// subscription so concurrent viewers do not steal notifications
	// from each other.
	events, cancel := s.manager.Subscribe()

	// Connection drops do not always deliver a QuitMsg; release the
	// subscription when the SSH context ends.
	go func() {
		<-sess.Context().Done()
		cancel()
	}()

	model := ui.NewModel(ui.ModelConfig{
		DefaultTool: s.defaultTool,
		DevMode:     false, // SSH mode never uses dev mode
		Events:      events,
		Manager:     s.manager,
		Tools:       s.tools,
	})

	wrappedModel := &sshModel{
		Model:       model,
		sessionID:   sessionID,
		startTime:   time.Now(),
		unsubscribe: cancel,
	}

	return wrappedModel, []tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	}
}
