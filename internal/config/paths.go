package config

import (
	"os"
	"path/filepath"
)

// GetFarolHome returns FAROL_HOME or ~/.farol default
func GetFarolHome() string {
	farolHome := os.Getenv("FAROL_HOME")
	if farolHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".farol"
		}
		return filepath.Join(homeDir, ".farol")
	}
	return ExpandPath(farolHome)
}

// GetDBPath returns $FAROL_HOME/state.db
func GetDBPath() string {
	return filepath.Join(GetFarolHome(), "state.db")
}

// GetSettingsPath returns $FAROL_HOME/settings.json
func GetSettingsPath() string {
	return filepath.Join(GetFarolHome(), "settings.json")
}

// GetToolsPath returns $FAROL_HOME/tools.yaml
func GetToolsPath() string {
	return filepath.Join(GetFarolHome(), "tools.yaml")
}

// GetLockPath returns $FAROL_HOME/farol.lock
func GetLockPath() string {
	return filepath.Join(GetFarolHome(), "farol.lock")
}

// GetHostKeyPath returns $FAROL_HOME/ssh_host_key
func GetHostKeyPath() string {
	return filepath.Join(GetFarolHome(), "ssh_host_key")
}

// EnsureFarolHome creates the farol home directory if it is missing.
func EnsureFarolHome() (string, error) {
	home := GetFarolHome()
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", err
	}
	return home, nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
