package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Settings represents the structure of ~/.farol/settings.json
type Settings struct {
	AuthorizedKeys            string      `json:"authorized_keys,omitempty"`
	AutoApprove               *bool       `json:"auto_approve,omitempty"`
	AutoApproveTimeoutSeconds *int        `json:"auto_approve_timeout_seconds,omitempty"`
	CheckIntervalMs           *int        `json:"check_interval_ms,omitempty"`
	CoalesceDelayMs           *int        `json:"coalesce_delay_ms,omitempty"`
	DBPath                    string      `json:"db_path,omitempty"`
	Debug                     *bool       `json:"debug,omitempty"`
	DefaultCols               *int        `json:"default_cols,omitempty"`
	DefaultRows               *int        `json:"default_rows,omitempty"`
	DefaultTool               string      `json:"default_tool,omitempty"`
	HistoryLimit              *int        `json:"history_limit,omitempty"`
	ListenAddress             string      `json:"listen_address,omitempty"`
	MaxLogFiles               *int        `json:"max_log_files,omitempty"`
	PersistWindowMs           *int        `json:"persist_window_ms,omitempty"`
	ReviewCommand             StringArray `json:"review_command,omitempty"`
	SyncTimeoutMs             *int        `json:"sync_timeout_ms,omitempty"`
	VisibleLines              *int        `json:"visible_lines,omitempty"`
}

// StringArray supports both JSON arrays and comma-separated strings
type StringArray []string

// UnmarshalJSON implements custom unmarshaling for StringArray
func (sa *StringArray) UnmarshalJSON(data []byte) error {
	// Try array format first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*sa = arr
		return nil
	}

	// Fall back to comma-separated string
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*sa = parseCommaSeparated(str)
	return nil
}

// parseCommaSeparated splits comma-separated string and trims whitespace
func parseCommaSeparated(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// LoadSettings loads settings from $FAROL_HOME/settings.json (or ~/.farol/settings.json if not set)
// Returns empty Settings if file doesn't exist (not an error)
func LoadSettings() (*Settings, error) {
	path := GetSettingsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil // Not an error, use defaults
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	// Expand paths that may start with ~
	if settings.DBPath != "" {
		settings.DBPath = ExpandPath(settings.DBPath)
	}
	if settings.AuthorizedKeys != "" {
		settings.AuthorizedKeys = ExpandPath(settings.AuthorizedKeys)
	}

	return &settings, nil
}

// SaveSettings saves settings to $FAROL_HOME/settings.json
func SaveSettings(settings *Settings) error {
	path := GetSettingsPath()
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
