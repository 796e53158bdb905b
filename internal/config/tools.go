package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/renato0307/farol/internal/engine"
)

// toolsFile is the structure of ~/.farol/tools.yaml
type toolsFile struct {
	Tools []engine.PatternProfile `yaml:"tools"`
}

// LoadToolProfiles loads tool pattern profiles from $FAROL_HOME/tools.yaml.
// Returns an empty list if the file doesn't exist (not an error).
// Profiles sharing a name with a builtin replace it.
func LoadToolProfiles() ([]engine.PatternProfile, error) {
	path := GetToolsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Not an error, builtins only
		}
		return nil, fmt.Errorf("failed to read tools file: %w", err)
	}

	var tf toolsFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("invalid tools.yaml: %w", err)
	}

	for i, profile := range tf.Tools {
		if profile.Name == "" {
			return nil, fmt.Errorf("tools.yaml: tool %d has no name", i)
		}
	}
	return tf.Tools, nil
}

// BuildRegistry returns a classifier registry with the builtin profiles
// plus the user's tools.yaml overlay.
func BuildRegistry() (*engine.Registry, error) {
	registry := engine.NewRegistry()
	profiles, err := LoadToolProfiles()
	if err != nil {
		return nil, err
	}
	for _, profile := range profiles {
		registry.RegisterProfile(profile)
	}
	return registry, nil
}
