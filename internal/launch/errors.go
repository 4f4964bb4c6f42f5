package launch

import (
	"errors"
	"fmt"

	"github.com/dshills/tasklaunch/internal/config"
)

// ErrTargetUnavailable is returned when the target host did not accept a
// connection before the probe timeout.
var ErrTargetUnavailable = errors.New("target unavailable")

// ConfigurationError reports a missing or invalid target URL.
type ConfigurationError struct {
	// Key is the setting at fault.
	Key string
	// Value is the configured value.
	Value string
	// Reason describes what is wrong with it.
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Key, e.Value, e.Reason)
}

// Unwrap lets errors.Is match config.ErrInvalidValue.
func (e *ConfigurationError) Unwrap() error {
	return config.ErrInvalidValue
}
