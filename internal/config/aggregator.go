package config

import (
	"time"

	"github.com/dshills/tasklaunch/internal/criteria"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/scope"
)

// Reader reads raw setting values at the global level and from a folder's
// own settings. Store implements it.
type Reader interface {
	GlobalValue(key string) (any, bool)
	FolderValue(folderURI, key string) (any, bool)
}

// MonitoringConfig is what the task monitor needs for one scope.
type MonitoringConfig struct {
	Criteria []criteria.Rule
	Mode     Mode
}

// LaunchSettings is what the launch controller needs for one config scope.
type LaunchSettings struct {
	URL           string
	Behavior      Behavior
	Delay         time.Duration
	WaitForHost   bool
	WaitTimeout   time.Duration
	Column        Column
	PreserveFocus bool
}

// Aggregator turns raw settings into typed, scope-resolved values.
// Invalid values are logged and replaced by their defaults.
type Aggregator struct {
	reader Reader
	logger *logging.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the aggregator's logger.
func WithAggregatorLogger(l *logging.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAggregator creates an aggregator reading from r.
func NewAggregator(r Reader, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		reader: r,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CriteriaFor returns the global criteria followed by the folder's own
// criteria when cs names a folder. Duplicates are kept.
func (a *Aggregator) CriteriaFor(cs scope.ConfigScope) []criteria.Rule {
	var rules []criteria.Rule
	if val, ok := a.reader.GlobalValue(KeyCriteria); ok {
		rules = append(rules, a.ruleList(val, "global")...)
	}
	if uri := cs.FolderURI(); uri != "" {
		if val, ok := a.reader.FolderValue(uri, KeyCriteria); ok {
			rules = append(rules, a.ruleList(val, uri)...)
		}
	}
	return rules
}

func (a *Aggregator) ruleList(val any, level string) []criteria.Rule {
	switch list := val.(type) {
	case nil:
		return nil
	case []any:
		return list
	case []map[string]any:
		rules := make([]criteria.Rule, len(list))
		for i, r := range list {
			rules[i] = r
		}
		return rules
	default:
		a.logger.Warn("ignoring %s %s: expected a list, got %T", level, KeyCriteria, val)
		return nil
	}
}

// ModeFor returns the monitoring mode of a config scope.
func (a *Aggregator) ModeFor(cs scope.ConfigScope) Mode {
	return a.mode(cs.FolderURI())
}

// BehaviorFor returns the launch behavior of a config scope.
func (a *Aggregator) BehaviorFor(cs scope.ConfigScope) Behavior {
	return a.behavior(cs.FolderURI())
}

// MonitoringFor returns criteria and mode for a config scope.
func (a *Aggregator) MonitoringFor(cs scope.ConfigScope) MonitoringConfig {
	return MonitoringConfig{
		Criteria: a.CriteriaFor(cs),
		Mode:     a.ModeFor(cs),
	}
}

// LaunchSettingsFor returns the launch settings of a config scope.
func (a *Aggregator) LaunchSettingsFor(cs scope.ConfigScope) LaunchSettings {
	uri := cs.FolderURI()
	return LaunchSettings{
		URL:           a.url(uri),
		Behavior:      a.behavior(uri),
		Delay:         a.millis(uri, KeyDelay, DefaultDelay, true),
		WaitForHost:   a.flag(uri, KeyWaitForHost, DefaultWaitForHost),
		WaitTimeout:   a.millis(uri, KeyWaitTimeout, DefaultWaitTimeout, false),
		Column:        a.column(uri),
		PreserveFocus: a.flag(uri, KeyPreserveFocus, DefaultPreserveFocus),
	}
}

// URLFor returns the target URL of a config scope, unvalidated.
func (a *Aggregator) URLFor(cs scope.ConfigScope) string {
	return a.url(cs.FolderURI())
}

// lookup returns the folder value when set, else the global value.
func (a *Aggregator) lookup(uri, key string) (any, bool) {
	if uri != "" {
		if val, ok := a.reader.FolderValue(uri, key); ok {
			return val, true
		}
	}
	return a.reader.GlobalValue(key)
}

func (a *Aggregator) mode(uri string) Mode {
	val, ok := a.lookup(uri, KeyMode)
	if !ok {
		return DefaultMode
	}
	s, ok := val.(string)
	if !ok {
		a.logger.Warn("invalid %s %v, using %s", KeyMode, val, DefaultMode)
		return DefaultMode
	}
	m, err := ParseMode(s)
	if err != nil {
		a.logger.Warn("%v, using %s", err, DefaultMode)
	}
	return m
}

func (a *Aggregator) behavior(uri string) Behavior {
	val, ok := a.lookup(uri, KeyBehavior)
	if !ok {
		return DefaultBehavior
	}
	s, ok := val.(string)
	if !ok {
		a.logger.Warn("invalid %s %v, using %s", KeyBehavior, val, DefaultBehavior)
		return DefaultBehavior
	}
	b, err := ParseBehavior(s)
	if err != nil {
		a.logger.Warn("%v, using %s", err, DefaultBehavior)
	}
	return b
}

func (a *Aggregator) column(uri string) Column {
	val, ok := a.lookup(uri, KeyColumn)
	if !ok {
		return DefaultColumn
	}
	s, ok := val.(string)
	if !ok {
		a.logger.Warn("invalid %s %v, using %s", KeyColumn, val, DefaultColumn)
		return DefaultColumn
	}
	c, err := ParseColumn(s)
	if err != nil {
		a.logger.Warn("%v, using %s", err, DefaultColumn)
	}
	return c
}

func (a *Aggregator) url(uri string) string {
	val, ok := a.lookup(uri, KeyURL)
	if !ok || val == nil {
		return ""
	}
	s, ok := val.(string)
	if !ok {
		a.logger.Warn("invalid %s %v: expected a string", KeyURL, val)
		return ""
	}
	return s
}

func (a *Aggregator) flag(uri, key string, def bool) bool {
	val, ok := a.lookup(uri, key)
	if !ok {
		return def
	}
	b, ok := toBool(val)
	if !ok {
		a.logger.Warn("invalid %s %v, using %t", key, val, def)
		return def
	}
	return b
}

// millis reads a millisecond count. Zero is accepted only when allowZero is
// set; negative values never are.
func (a *Aggregator) millis(uri, key string, def time.Duration, allowZero bool) time.Duration {
	val, ok := a.lookup(uri, key)
	if !ok {
		return def
	}
	n, ok := toInt64(val)
	if !ok || n < 0 || (n == 0 && !allowZero) {
		a.logger.Warn("invalid %s %v, using %s", key, val, def)
		return def
	}
	return time.Duration(n) * time.Millisecond
}
