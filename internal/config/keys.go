package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Section is the settings section all keys live under.
const Section = "taskBrowser"

// Setting keys.
const (
	KeyURL           = Section + ".url"
	KeyCriteria      = Section + ".criteria"
	KeyMode          = Section + ".mode"
	KeyBehavior      = Section + ".behavior"
	KeyDelay         = Section + ".delay"
	KeyWaitForHost   = Section + ".waitForHost"
	KeyWaitTimeout   = Section + ".waitTimeout"
	KeyColumn        = Section + ".column"
	KeyPreserveFocus = Section + ".preserveFocus"
)

// Keys lists every setting in the order they are documented.
var Keys = []string{
	KeyURL,
	KeyCriteria,
	KeyMode,
	KeyBehavior,
	KeyDelay,
	KeyWaitForHost,
	KeyWaitTimeout,
	KeyColumn,
	KeyPreserveFocus,
}

// Default values.
const (
	DefaultMode          = ModeMatching
	DefaultBehavior      = BehaviorOneTime
	DefaultDelay         = 0
	DefaultWaitForHost   = false
	DefaultWaitTimeout   = 10 * time.Second
	DefaultColumn        = ColumnActive
	DefaultPreserveFocus = false
)

// Defaults returns the built-in settings layer.
func Defaults() map[string]any {
	return map[string]any{
		Section: map[string]any{
			"url":           "",
			"criteria":      []any{},
			"mode":          DefaultMode.String(),
			"behavior":      DefaultBehavior.String(),
			"delay":         int64(DefaultDelay),
			"waitForHost":   DefaultWaitForHost,
			"waitTimeout":   DefaultWaitTimeout.Milliseconds(),
			"column":        string(DefaultColumn),
			"preserveFocus": DefaultPreserveFocus,
		},
	}
}

// Mode selects which task starts count as matches.
type Mode int

const (
	// ModeMatching counts tasks that satisfy the criteria.
	ModeMatching Mode = iota
	// ModeAll counts every task start.
	ModeAll
)

// String returns the settings spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeMatching:
		return "matching"
	case ModeAll:
		return "all"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses a mode setting, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "matching":
		return ModeMatching, nil
	case "all":
		return ModeAll, nil
	default:
		return DefaultMode, fmt.Errorf("%w: mode %q", ErrInvalidValue, s)
	}
}

// Behavior decides when a match launches the browser.
type Behavior int

const (
	// BehaviorNone never launches.
	BehaviorNone Behavior = iota
	// BehaviorOneTime launches on the first match in a scope only.
	BehaviorOneTime
	// BehaviorEverytime launches on every match.
	BehaviorEverytime
)

// String returns the settings spelling of the behavior.
func (b Behavior) String() string {
	switch b {
	case BehaviorNone:
		return "none"
	case BehaviorOneTime:
		return "oneTime"
	case BehaviorEverytime:
		return "everytime"
	default:
		return fmt.Sprintf("Behavior(%d)", int(b))
	}
}

// ParseBehavior parses a behavior setting, case-insensitively.
func ParseBehavior(s string) (Behavior, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return BehaviorNone, nil
	case "onetime":
		return BehaviorOneTime, nil
	case "everytime":
		return BehaviorEverytime, nil
	default:
		return DefaultBehavior, fmt.Errorf("%w: behavior %q", ErrInvalidValue, s)
	}
}

// Column is where the browser surface is placed.
type Column string

const (
	// ColumnActive reuses the current browser page.
	ColumnActive Column = "active"
	// ColumnBeside opens a new page next to the current one.
	ColumnBeside Column = "beside"
)

// ParseColumn parses a column setting.
func ParseColumn(s string) (Column, error) {
	switch Column(strings.ToLower(strings.TrimSpace(s))) {
	case ColumnActive:
		return ColumnActive, nil
	case ColumnBeside:
		return ColumnBeside, nil
	default:
		return DefaultColumn, fmt.Errorf("%w: column %q", ErrInvalidValue, s)
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), float32(int64(n)) == n
	case float64:
		return int64(n), float64(int64(n)) == n
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	default:
		return false, false
	}
}
