package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/renato0307/farol/internal/domain"
	"github.com/renato0307/farol/internal/engine"
	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/theme"
)

type uiState int

const (
	stateList uiState = iota
	stateAttached
	stateConfirmingDestroy
	stateCreatingSession
	stateHelp
)

// sessionDestroyedMsg reports the outcome of an async destroy
type sessionDestroyedMsg struct {
	workDir string
	err     error
}

// ModelConfig carries everything the TUI needs from the composition root
type ModelConfig struct {
	DefaultTool     string
	DevMode         bool
	ErrorClearDelay time.Duration

	// Events is the notification channel this model consumes. Defaults
	// to Manager.Events(); SSH sessions pass their own subscription.
	Events  <-chan domain.Notification
	Manager *engine.Manager

	// Tools are the selectable tool profiles for the create form.
	Tools []string
}

// Model is the root Bubble Tea model: a session list with attach,
// create, destroy and help states layered on top.
type Model struct {
	attach        *AttachView
	defaultTool   string
	destroyForm   *Dialog
	destroyTarget string
	devMode       bool
	errorManager  *ErrorManager
	events        <-chan domain.Notification
	formDestroy   *bool
	height        int
	helpScreen    *Dialog
	keys          KeyMap
	manager       *engine.Manager
	sessionForm   *Dialog
	sessionList   *SessionList
	state         uiState
	tools         []string
	width         int
}

// NewModel creates the root model
func NewModel(cfg ModelConfig) *Model {
	keys := NewKeyMap()

	events := cfg.Events
	if events == nil {
		events = cfg.Manager.Events()
	}
	delay := cfg.ErrorClearDelay
	if delay <= 0 {
		delay = 10 * time.Second
	}
	tools := cfg.Tools
	if len(tools) == 0 {
		tools = []string{"claude", "generic"}
	}
	defaultTool := cfg.DefaultTool
	if defaultTool == "" {
		defaultTool = tools[0]
	}

	return &Model{
		defaultTool:  defaultTool,
		devMode:      cfg.DevMode,
		errorManager: NewErrorManager(delay),
		events:       events,
		keys:         keys,
		manager:      cfg.Manager,
		sessionList:  NewSessionList(cfg.Manager, keys),
		state:        stateList,
		tools:        tools,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.sessionList.Init(), waitForEvent(m.events))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Engine events are handled in every state, and the pump re-arms
	// exactly once per delivery.
	if ev, ok := msg.(engineEventMsg); ok {
		cmd := m.handleEngineEvent(ev.event)
		return m, tea.Batch(cmd, waitForEvent(m.events))
	}

	switch m.state {
	case stateList:
		return m.updateList(msg)
	case stateAttached:
		return m.updateAttached(msg)
	case stateConfirmingDestroy:
		return m.updateConfirmingDestroy(msg)
	case stateCreatingSession:
		return m.updateCreatingSession(msg)
	case stateHelp:
		return m.updateHelp(msg)
	}
	return m, nil
}

// handleEngineEvent reacts to one engine notification. Data frames only
// matter while attached (the re-render that follows every Update shows
// them); everything else refreshes the list.
func (m *Model) handleEngineEvent(n domain.Notification) tea.Cmd {
	if m.state == stateAttached && m.attach != nil && n.WorkDir == m.attach.WorkDir() {
		switch n.Type {
		case domain.EventData:
			return nil
		case domain.EventDestroyed, domain.EventExit:
			m.leaveAttach()
			refreshCmd := m.sessionList.RefreshFromManager()
			if n.Err != nil {
				m.errorManager.SetError(fmt.Errorf("session %s exited: %w", n.WorkDir, n.Err))
				return tea.Batch(refreshCmd, m.sessionList.Init(), m.errorManager.ClearAfterDelay())
			}
			return tea.Batch(refreshCmd, m.sessionList.Init())
		}
		return nil
	}

	switch n.Type {
	case domain.EventData:
		return nil
	case domain.EventExit:
		refreshCmd := m.sessionList.RefreshFromManager()
		if n.Err != nil {
			m.errorManager.SetError(fmt.Errorf("session %s exited: %w", n.WorkDir, n.Err))
			return tea.Batch(refreshCmd, m.errorManager.ClearAfterDelay())
		}
		return refreshCmd
	default:
		return m.sessionList.RefreshFromManager()
	}
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case QuitMsg:
		return m, tea.Quit

	case ShowHelpMsg:
		m.helpScreen = NewDialog("Help", NewHelpScreen(&m.keys), m.devMode)
		m.state = stateHelp
		initCmd := m.helpScreen.Init()
		updatedDialog, sizeCmd := m.helpScreen.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
		m.helpScreen = updatedDialog.(*Dialog)
		return m, tea.Batch(initCmd, sizeCmd)

	case NewSessionMsg:
		form := NewCreateSessionForm(m.manager, m.tools, m.defaultTool, m.width, m.height-1)
		m.sessionForm = NewDialog("Create Session", form, m.devMode)
		m.state = stateCreatingSession
		return m, m.sessionForm.Init()

	case AttachSessionMsg:
		return m.enterAttach(msg.WorkDir)

	case DestroySessionMsg:
		m.destroyTarget = msg.WorkDir
		confirmed := false
		m.formDestroy = &confirmed
		m.destroyForm = m.createDestroyDialog(msg.WorkDir)
		m.state = stateConfirmingDestroy
		return m, m.destroyForm.Init()

	case sessionDestroyedMsg:
		if msg.err != nil {
			m.errorManager.SetError(fmt.Errorf("failed to destroy session: %w", msg.err))
			return m, tea.Batch(m.sessionList.RefreshFromManager(), m.errorManager.ClearAfterDelay())
		}
		logging.Logger.Info("Session destroyed via UI", "workdir", msg.workDir)
		return m, m.sessionList.RefreshFromManager()

	case clearErrorMsg:
		m.errorManager.ClearError()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalculateListHeight()
	}

	newList, cmd := m.sessionList.Update(msg)
	if sl, ok := newList.(*SessionList); ok {
		m.sessionList = sl
	}
	return m, cmd
}

func (m *Model) enterAttach(workDir string) (tea.Model, tea.Cmd) {
	session, err := m.manager.GetSession(workDir)
	if err != nil {
		m.errorManager.SetError(err)
		return m, m.errorManager.ClearAfterDelay()
	}

	m.attach = NewAttachView(session, m.keys)
	m.state = stateAttached
	updated, _ := m.attach.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	m.attach = updated.(*AttachView)
	return m, nil
}

func (m *Model) leaveAttach() {
	m.state = stateList
	m.attach = nil
}

func (m *Model) updateAttached(msg tea.Msg) (tea.Model, tea.Cmd) {
	if sizeMsg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = sizeMsg.Width
		m.height = sizeMsg.Height
		m.recalculateListHeight()
	}

	updated, cmd := m.attach.Update(msg)
	m.attach = updated.(*AttachView)

	if m.attach.Detached {
		m.leaveAttach()
		return m, tea.Batch(m.sessionList.RefreshFromManager(), m.sessionList.Init())
	}
	return m, cmd
}

func (m *Model) updateConfirmingDestroy(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if keyMsg.String() == "esc" || key.Matches(keyMsg, m.keys.Application.ForceQuit) {
			m.resetDestroy()
			return m, m.sessionList.Init()
		}
	}
	if m.destroyForm == nil {
		m.resetDestroy()
		return m, m.sessionList.Init()
	}

	updated, cmd := m.destroyForm.Update(msg)
	m.destroyForm = updated.(*Dialog)

	if form, ok := m.destroyForm.Content().(*huh.Form); ok && form.State == huh.StateCompleted {
		confirmed := *m.formDestroy
		workDir := m.destroyTarget
		m.resetDestroy()

		if !confirmed {
			return m, m.sessionList.Init()
		}
		destroyCmd := func() tea.Msg {
			err := m.manager.DestroySession(context.Background(), workDir)
			return sessionDestroyedMsg{workDir: workDir, err: err}
		}
		return m, tea.Batch(destroyCmd, m.sessionList.Init())
	}
	return m, cmd
}

func (m *Model) resetDestroy() {
	m.state = stateList
	m.destroyForm = nil
	m.destroyTarget = ""
	m.formDestroy = nil
}

// createDestroyDialog builds the destroy confirmation for a session
func (m *Model) createDestroyDialog(workDir string) *Dialog {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Destroy session in %s?", abbreviateHome(workDir))).
				Description("The running process is terminated and its state forgotten.").
				Value(m.formDestroy).
				Affirmative("Destroy").
				Negative("Keep"),
		),
	)
	return NewDialog("Destroy Session", form, m.devMode)
}

func (m *Model) updateCreatingSession(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.sessionForm.Update(msg)
	m.sessionForm = updated.(*Dialog)

	if content, ok := m.sessionForm.Content().(*CreateSessionForm); ok && content.Completed {
		result := content.Result()
		m.state = stateList
		m.sessionForm = nil

		if result.Error != nil {
			m.errorManager.SetError(fmt.Errorf("failed to create session: %w", result.Error))
			return m, tea.Batch(m.sessionList.Init(), m.errorManager.ClearAfterDelay())
		}
		if !result.Cancelled {
			refreshCmd := m.sessionList.RefreshFromManager()
			m.sessionList.Select(domain.CleanWorkDir(result.WorkDir))
			return m, tea.Batch(refreshCmd, m.sessionList.Init())
		}
		return m, m.sessionList.Init()
	}
	return m, cmd
}

func (m *Model) updateHelp(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.helpScreen.Update(msg)
	m.helpScreen = updated.(*Dialog)

	if content, ok := m.helpScreen.Content().(*HelpScreen); ok && content.Completed {
		m.state = stateList
		m.helpScreen = nil
		return m, m.sessionList.Init()
	}
	return m, cmd
}

// recalculateListHeight sizes the list from the current terminal
// geometry: header and legend above, separator and footer below.
func (m *Model) recalculateListHeight() {
	overhead := 8
	listHeight := m.height - overhead
	if listHeight < 1 {
		listHeight = 1
	}
	m.sessionList.SetSize(m.width, m.height, listHeight)
}

func (m *Model) View() string {
	switch m.state {
	case stateList:
		view := m.sessionList.View()

		// Bottom section - fixed 2 lines (error or shortcut help)
		view += "\n"
		if m.errorManager.HasError() {
			view += theme.ErrorStyle.Render(formatErrorForDisplay(m.errorManager.GetError(), m.width))
		} else {
			view += m.renderFooterHelp() + "\n "
		}
		return view

	case stateAttached:
		if m.attach != nil {
			return m.attach.View()
		}
	case stateConfirmingDestroy:
		if m.destroyForm != nil {
			return m.destroyForm.View()
		}
	case stateCreatingSession:
		if m.sessionForm != nil {
			return m.sessionForm.View()
		}
	case stateHelp:
		if m.helpScreen != nil {
			return m.helpScreen.View()
		}
	}
	return ""
}

// renderFooterHelp renders the curated shortcut list for the footer
func (m *Model) renderFooterHelp() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, theme.HelpShortcutStyle.Render(h.Key)+theme.HelpLabelStyle.Render(" "+h.Desc))
	}
	return strings.Join(parts, theme.HelpLabelStyle.Render(" • "))
}
