package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/renato0307/farol/internal/domain"
)

// Main UI styles
var (
	HelpLabelStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HelpShortcutStyle = lipgloss.NewStyle().
				Foreground(ColorHighlight).
				Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Padding(1, 0)

	NormalStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(1, 0)
)

// State icon styles
var (
	BusyIconStyle = lipgloss.NewStyle().
			Foreground(ColorBusy)

	ExitedIconStyle = lipgloss.NewStyle().
			Foreground(ColorExited)

	IdleIconStyle = lipgloss.NewStyle().
			Foreground(ColorIdle)

	PendingIconStyle = lipgloss.NewStyle().
				Foreground(ColorPending)

	WaitingIconStyle = lipgloss.NewStyle().
				Foreground(ColorWaiting)
)

// Dialog header styles
var (
	AppNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	SubtitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	VersionStyle = lipgloss.NewStyle().
			Foreground(ColorVersion)
)

// Help screen styles
var (
	HelpDescStyle = lipgloss.NewStyle().
			Foreground(ColorSubtle)

	HelpGroupStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHelpGroup).
			MarginTop(1)

	HelpKeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true).
			Width(25)
)

// Status bar styles
var (
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(ColorNormal).
			Background(Color("236"))

	StatusKeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Background(Color("236")).
			Bold(true)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().
	Foreground(ColorSpinner)

// Error style
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorError).
	Bold(true)

// Approval failure marker style
var WarnFlagStyle = lipgloss.NewStyle().
	Foreground(ColorWarnFlag).
	Bold(true)

// StateIconStyle returns the icon style for a session state.
func StateIconStyle(state domain.SessionState) lipgloss.Style {
	switch state {
	case domain.StateIdle:
		return IdleIconStyle
	case domain.StateWaitingInput:
		return WaitingIconStyle
	case domain.StatePendingApproval:
		return PendingIconStyle
	case domain.StateExited:
		return ExitedIconStyle
	default:
		return BusyIconStyle
	}
}
