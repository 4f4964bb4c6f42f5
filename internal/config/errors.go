package config

import (
	"errors"
	"fmt"
)

// Errors returned by settings operations.
var (
	// ErrInvalidValue indicates a setting holds a value of the wrong shape.
	ErrInvalidValue = errors.New("invalid setting value")

	// ErrUnknownFolder indicates a folder that was never added to the store.
	ErrUnknownFolder = errors.New("unknown folder")

	// ErrNotSettingsFile indicates a path no settings layer was loaded from.
	ErrNotSettingsFile = errors.New("not a settings file")
)

// ValueError reports a setting whose value could not be used. The default
// is used in its place.
type ValueError struct {
	Key   string
	Value any
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("setting %s: %v (got %v)", e.Key, e.Err, e.Value)
}

func (e *ValueError) Unwrap() error {
	return e.Err
}
