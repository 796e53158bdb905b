package ports

// ScreenBuffer is a headless terminal that tracks what a user would
// currently see. Feed applies output frames in order; VisibleLines
// returns plain text with styling stripped.
type ScreenBuffer interface {
	Feed(frame []byte)
	// VisibleLines returns up to n lines from the bottom of the screen,
	// oldest first. n <= 0 returns the full visible screen.
	VisibleLines(n int) []string
	Resize(cols, rows int)
}
