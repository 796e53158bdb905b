package theme

import "github.com/charmbracelet/lipgloss"

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

// Brand colors
const (
	ColorPrimary   Color = "99" // Purple - app name, titles
	ColorSecondary Color = "86" // Cyan - subtitles
)

// Session state colors
const (
	ColorBusy    Color = "2"   // Green - tool is working
	ColorExited  Color = "8"   // Gray - process gone
	ColorIdle    Color = "3"   // Yellow - nothing running
	ColorPending Color = "214" // Orange - auto-approval in flight
	ColorWaiting Color = "1"   // Red - waiting for user
)

// UI semantic colors
const (
	ColorError     Color = "196" // Bright red
	ColorHighlight Color = "255" // White - emphasis
	ColorMuted     Color = "241" // Gray - secondary text
	ColorNormal    Color = "250" // Default text
	ColorSubtle    Color = "245" // Light gray - labels
	ColorVersion   Color = "240" // Dark gray
)

// Accent colors
const (
	ColorHelpGroup Color = "141" // Purple
	ColorSpinner   Color = "205" // Pink
	ColorWarnFlag  Color = "208" // Orange - approval failure marker
)
