package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	t.Setenv("FAROL_HOME", t.TempDir())

	settings, err := LoadSettings()

	require.NoError(t, err)
	assert.Equal(t, &Settings{}, settings)
}

func TestSaveAndLoadSettings(t *testing.T) {
	t.Setenv("FAROL_HOME", t.TempDir())

	autoApprove := true
	checkInterval := 250
	settings := &Settings{
		AutoApprove:     &autoApprove,
		CheckIntervalMs: &checkInterval,
		DefaultTool:     "claude",
		ListenAddress:   "localhost:2222",
		ReviewCommand:   StringArray{"farol", "verify"},
	}

	require.NoError(t, SaveSettings(settings))

	loaded, err := LoadSettings()
	require.NoError(t, err)
	require.NotNil(t, loaded.AutoApprove)
	assert.True(t, *loaded.AutoApprove)
	require.NotNil(t, loaded.CheckIntervalMs)
	assert.Equal(t, 250, *loaded.CheckIntervalMs)
	assert.Equal(t, "claude", loaded.DefaultTool)
	assert.Equal(t, "localhost:2222", loaded.ListenAddress)
	assert.Equal(t, StringArray{"farol", "verify"}, loaded.ReviewCommand)
	assert.Nil(t, loaded.PersistWindowMs, "unset fields stay nil")
}

func TestLoadSettingsExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FAROL_HOME", dir)

	content := `{"db_path": "~/custom/state.db", "authorized_keys": "~/.ssh/authorized_keys"}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(content), 0644))

	loaded, err := LoadSettings()
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "custom", "state.db"), loaded.DBPath)
	assert.Equal(t, filepath.Join(home, ".ssh", "authorized_keys"), loaded.AuthorizedKeys)
}

func TestLoadSettingsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FAROL_HOME", dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte("{not json"), 0644))

	_, err := LoadSettings()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings.json")
}

func TestStringArrayFormats(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected StringArray
	}{
		{
			name:     "array format",
			json:     `{"review_command": ["claude", "-p", "review"]}`,
			expected: StringArray{"claude", "-p", "review"},
		},
		{
			name:     "comma-separated string",
			json:     `{"review_command": "claude, -p, review"}`,
			expected: StringArray{"claude", "-p", "review"},
		},
		{
			name:     "single string",
			json:     `{"review_command": "claude"}`,
			expected: StringArray{"claude"},
		},
		{
			name:     "empty string",
			json:     `{"review_command": ""}`,
			expected: StringArray{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("FAROL_HOME", dir)
			require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.json"), []byte(tt.json), 0644))

			loaded, err := LoadSettings()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, loaded.ReviewCommand)
		})
	}
}

func TestGetSettingsExampleCoversAllFields(t *testing.T) {
	example := GetSettingsExample()

	expectedKeys := []string{
		"authorized_keys",
		"auto_approve",
		"auto_approve_timeout_seconds",
		"check_interval_ms",
		"coalesce_delay_ms",
		"db_path",
		"debug",
		"default_cols",
		"default_rows",
		"default_tool",
		"history_limit",
		"listen_address",
		"max_log_files",
		"persist_window_ms",
		"review_command",
		"sync_timeout_ms",
		"visible_lines",
	}
	require.Len(t, example, len(expectedKeys))
	for _, key := range expectedKeys {
		assert.Contains(t, example, key)
	}
}
