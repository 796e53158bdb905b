package engine

import (
	"sort"
	"strings"
	"sync"

	"github.com/renato0307/farol/internal/domain"
)

// Classifier maps the currently visible screen text of a session to a
// candidate state. Implementations must be pure: same screen and same
// previous confirmed state always yield the same candidate. prev is the
// last confirmed state, never a pending candidate, so a classifier can
// disambiguate screens that match nothing.
type Classifier interface {
	Classify(screen string, prev domain.SessionState) domain.SessionState
}

// PatternProfile describes how a tool's screens map to states. Patterns
// are literal substrings matched against the visible text. Waiting
// patterns outrank busy patterns: a confirmation prompt rendered below
// a still-spinning progress line means the tool is waiting for the
// user, not running.
type PatternProfile struct {
	Name            string   `yaml:"name"`
	WaitingPatterns []string `yaml:"waiting_patterns"`
	BusyPatterns    []string `yaml:"busy_patterns"`
	IdlePatterns    []string `yaml:"idle_patterns"`
	// PromptSuffixes mark idle when the last non-blank line ends with
	// one of them (shell-style prompts).
	PromptSuffixes []string `yaml:"prompt_suffixes"`
	// ApproveKeys is written to the tool to answer a prompt
	// affirmatively when auto-approval kicks in.
	ApproveKeys string `yaml:"approve_keys"`
}

type patternClassifier struct {
	profile PatternProfile
}

// NewPatternClassifier builds a Classifier from a profile.
func NewPatternClassifier(profile PatternProfile) Classifier {
	return &patternClassifier{profile: profile}
}

func (c *patternClassifier) Classify(screen string, prev domain.SessionState) domain.SessionState {
	for _, p := range c.profile.WaitingPatterns {
		if strings.Contains(screen, p) {
			return domain.StateWaitingInput
		}
	}
	for _, p := range c.profile.BusyPatterns {
		if strings.Contains(screen, p) {
			return domain.StateBusy
		}
	}
	for _, p := range c.profile.IdlePatterns {
		if strings.Contains(screen, p) {
			return domain.StateIdle
		}
	}

	if line := lastNonBlankLine(screen); line != "" {
		for _, suffix := range c.profile.PromptSuffixes {
			if strings.HasSuffix(line, suffix) {
				return domain.StateIdle
			}
		}
	}

	// Nothing recognizable, typically a partial redraw or a cleared
	// screen; stick with what we knew and let the debounce absorb it.
	return prev
}

func lastNonBlankLine(screen string) string {
	lines := strings.Split(screen, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimRight(lines[i], " \t"); line != "" {
			return line
		}
	}
	return ""
}

// Builtin profiles. External profiles loaded from configuration are
// registered on top of these and may override them by name.
var (
	claudeProfile = PatternProfile{
		Name: "claude",
		WaitingPatterns: []string{
			"Do you want",
			"Would you like",
			"❯ 1. Yes",
			"Press Enter to continue",
		},
		BusyPatterns: []string{
			"esc to interrupt",
			"ctrl+b to run in background",
		},
		IdlePatterns: []string{
			"? for shortcuts",
		},
		ApproveKeys: "1",
	}

	genericProfile = PatternProfile{
		Name: "generic",
		WaitingPatterns: []string{
			"(y/n)",
			"[y/N]",
			"[Y/n]",
			"yes/no",
			"Password:",
			"password:",
		},
		PromptSuffixes: []string{"$", "%", "#", ">", "❯"},
		ApproveKeys:    "y\n",
	}
)

type registryEntry struct {
	classifier  Classifier
	approveKeys []byte
}

// Registry resolves a tool name to its classifier and affirmative
// keystroke. Sessions resolve once at creation; the returned classifier
// is immutable for the session's lifetime, so later registrations only
// affect new sessions.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registryEntry
}

// NewRegistry returns a registry with the builtin profiles registered.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]registryEntry)}
	r.RegisterProfile(claudeProfile)
	r.RegisterProfile(genericProfile)
	return r
}

// Register adds or replaces a classifier under name.
func (r *Registry) Register(name string, c Classifier, approveKeys string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = registryEntry{classifier: c, approveKeys: []byte(approveKeys)}
}

// RegisterProfile adds or replaces a pattern-based classifier.
func (r *Registry) RegisterProfile(p PatternProfile) {
	r.Register(p.Name, NewPatternClassifier(p), p.ApproveKeys)
}

// Resolve returns the classifier and approve keystroke for name,
// falling back to the generic profile for unknown tools.
func (r *Registry) Resolve(name string) (Classifier, []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.entries[name]; ok {
		return e.classifier, e.approveKeys
	}
	e := r.entries["generic"]
	return e.classifier, e.approveKeys
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
