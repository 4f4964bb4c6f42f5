package loader

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads settings from environment variables.
type EnvLoader struct {
	mapping map[string]string // Env var -> settings path
}

// NewEnvLoader creates an environment loader with the default mapping.
func NewEnvLoader() *EnvLoader {
	return &EnvLoader{mapping: DefaultEnvMapping()}
}

// DefaultEnvMapping returns the default environment variable mappings.
func DefaultEnvMapping() map[string]string {
	return map[string]string{
		"TASKLAUNCH_URL":            "taskBrowser.url",
		"TASKLAUNCH_CRITERIA":       "taskBrowser.criteria",
		"TASKLAUNCH_MODE":           "taskBrowser.mode",
		"TASKLAUNCH_BEHAVIOR":       "taskBrowser.behavior",
		"TASKLAUNCH_DELAY":          "taskBrowser.delay",
		"TASKLAUNCH_WAIT_FOR_HOST":  "taskBrowser.waitForHost",
		"TASKLAUNCH_WAIT_TIMEOUT":   "taskBrowser.waitTimeout",
		"TASKLAUNCH_COLUMN":         "taskBrowser.column",
		"TASKLAUNCH_PRESERVE_FOCUS": "taskBrowser.preserveFocus",
	}
}

// Load reads the mapped environment variables into a settings map.
// Empty values are kept as empty strings, not treated as unset.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		if val, ok := os.LookupEnv(env); ok {
			setByPath(config, path, parseValue(val))
		}
	}

	return config, nil
}

// parseValue converts a variable's text into a bool, integer, float, JSON
// list or object, or leaves it as a string.
func parseValue(s string) any {
	if s == "" {
		return s
	}

	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}

	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}

	return s
}

func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if next, ok := current[part].(map[string]any); ok {
			current = next
		} else {
			next := make(map[string]any)
			current[part] = next
			current = next
		}
	}

	current[parts[len(parts)-1]] = value
}
