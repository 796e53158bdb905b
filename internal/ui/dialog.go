package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/renato0307/farol/internal/theme"
)

// VersionInfo holds version information for display in UI headers.
// Populated by main.go from ldflags-injected values.
type VersionInfo struct {
	Commit  string
	Date    string
	Tagline string
	Version string
}

// DefaultVersionInfo provides default values when version info is not available
var DefaultVersionInfo = VersionInfo{
	Commit:  "unknown",
	Date:    "unknown",
	Tagline: "I'm Farol, and I watch over your terminal sessions",
	Version: "dev",
}

var versionInfo = DefaultVersionInfo

// SetVersionInfo sets the global version info (called from main.go)
func SetVersionInfo(info VersionInfo) {
	versionInfo = info
}

// renderHeader creates the consistent header used across the whole
// application: app name (with version info in dev mode), tagline, and
// an optional dialog subtitle.
func renderHeader(devMode bool, subtitle string) string {
	appNameLine := theme.AppNameStyle.Render("Farol")
	if devMode {
		commit := versionInfo.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		appNameLine += theme.VersionStyle.Render(fmt.Sprintf(" %s | %s | %s",
			versionInfo.Version, commit, versionInfo.Date))
	}

	result := appNameLine + "\n"
	result += theme.NormalStyle.Render(versionInfo.Tagline)
	if subtitle != "" {
		result += "\n\n" + theme.SubtitleStyle.Render(subtitle)
	}
	result += "\n"
	return result
}

// Dialog wraps any tea.Model content and automatically prepends a
// header with the dialog title, so every dialog looks the same without
// each form rendering its own header.
type Dialog struct {
	content tea.Model
	devMode bool
	title   string
}

// NewDialog creates a dialog wrapper around content.
func NewDialog(title string, content tea.Model, devMode bool) *Dialog {
	return &Dialog{
		content: content,
		devMode: devMode,
		title:   title,
	}
}

// Init delegates to the wrapped content.
func (d *Dialog) Init() tea.Cmd {
	return d.content.Init()
}

// Update delegates to the wrapped content; the returned model is the
// Dialog itself with updated content.
func (d *Dialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := d.content.Update(msg)
	d.content = updated
	return d, cmd
}

// View prepends the dialog header to the wrapped content's view.
func (d *Dialog) View() string {
	return renderHeader(d.devMode, d.title) + d.content.View()
}

// Content returns the wrapped content for type assertion after Update.
func (d *Dialog) Content() tea.Model {
	return d.content
}
