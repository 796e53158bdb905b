package config

import (
	"reflect"
	"strings"
)

// GetSettingsExample uses reflection to generate example settings
// This automatically stays in sync when new fields are added to Settings
func GetSettingsExample() map[string]any {
	var s Settings
	t := reflect.TypeOf(s)
	example := make(map[string]any)

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		jsonTag := field.Tag.Get("json")
		if jsonTag == "" {
			continue
		}

		// Extract the JSON field name (before comma)
		jsonName := strings.Split(jsonTag, ",")[0]

		// Generate example value based on field type
		example[jsonName] = generateExampleValue(field.Type, jsonName)
	}

	return example
}

// generateExampleValue creates appropriate example values based on type and field name
func generateExampleValue(t reflect.Type, fieldName string) any {
	// Handle pointer types
	if t.Kind() == reflect.Ptr {
		elemType := t.Elem()

		switch elemType.Kind() {
		case reflect.Bool:
			// Return boolean value directly (not pointer)
			if fieldName == "auto_approve" || fieldName == "debug" {
				return true
			}
			return false
		case reflect.Int:
			// Return int value directly (not pointer)
			switch fieldName {
			case "auto_approve_timeout_seconds":
				return 15
			case "check_interval_ms":
				return 100
			case "coalesce_delay_ms":
				return 5
			case "default_cols":
				return 120
			case "default_rows":
				return 40
			case "history_limit":
				return 524288
			case "max_log_files":
				return 1000
			case "persist_window_ms":
				return 200
			case "sync_timeout_ms":
				return 1000
			case "visible_lines":
				return 0
			}
			return 10
		}
	}

	// Handle direct types
	switch t.Kind() {
	case reflect.String:
		// Generate contextual examples based on field name
		switch fieldName {
		case "authorized_keys":
			return "~/.ssh/authorized_keys"
		case "db_path":
			return "~/.farol/state.db"
		case "default_tool":
			return "claude"
		case "listen_address":
			return "localhost:2222"
		default:
			return "example"
		}
	case reflect.Slice:
		// Check if it's StringArray type
		if t.Name() == "StringArray" || (t.Elem().Kind() == reflect.String) {
			switch fieldName {
			case "review_command":
				return []string{"farol", "verify-stub"}
			default:
				return []string{"example1", "example2"}
			}
		}
	}

	return nil
}
