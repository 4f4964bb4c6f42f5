// Package monitor counts matching task starts per scope and reports each
// one as an Event.
//
// A Monitor subscribes to a task host at construction. Tasks already
// running at that point seed their scope's counter to 1 without an event;
// later matching starts increment the counter and emit an Event carrying
// the new count. Global and workspace tasks share one counter, each folder
// has its own.
package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/criteria"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/scope"
	"github.com/dshills/tasklaunch/internal/task"
)

// State is the lifecycle state of a Monitor.
type State int32

const (
	// StateIdle means the monitor is constructed but not subscribed.
	StateIdle State = iota
	// StateActive means the monitor is receiving task starts.
	StateActive
	// StateDisposed means the monitor is unsubscribed and its counters are gone.
	StateDisposed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Event reports a matching task start.
type Event struct {
	// Occurrences is the scope's counter after this start.
	Occurrences int
	// Scope is the task's execution scope.
	Scope scope.Scope
	// Task is the started task.
	Task task.Descriptor
}

// Config resolves monitoring settings per config scope.
// config.Aggregator implements it.
type Config interface {
	MonitoringFor(cs scope.ConfigScope) config.MonitoringConfig
}

// Resolver maps a task's execution scope to the config scope its settings
// are read from. scope.Resolver implements it.
type Resolver interface {
	FromTaskScope(s scope.Scope) (scope.ConfigScope, bool)
}

// Monitor turns task starts into occurrence-counted events.
//
// Thread Safety: task starts arrive one at a time from the host. Counters
// are guarded by mu so Occurrences and Dispose may be called from any
// goroutine.
type Monitor struct {
	host     task.Host
	resolver Resolver
	config   Config
	logger   *logging.Logger

	mu          sync.Mutex
	occurrences map[string]int
	seen        map[string]bool
	pending     []Event
	sub         task.Subscription

	state    atomic.Int32
	events   chan Event
	wake     chan struct{}
	quit     chan struct{}
	disposed sync.Once
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor's logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a monitor, subscribes to task starts on host and seeds its
// counters from the tasks already running there. Settings for a task are
// read from the config scope resolver assigns to its execution scope.
//
// The subscription is made before the running snapshot is taken. An
// execution that shows up both in the snapshot and as a start counts once.
func New(host task.Host, resolver Resolver, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		host:        host,
		resolver:    resolver,
		config:      cfg,
		logger:      logging.Nop(),
		occurrences: make(map[string]int),
		seen:        make(map[string]bool),
		events:      make(chan Event),
		wake:        make(chan struct{}, 1),
		quit:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.state.Store(int32(StateIdle))

	go m.pump()

	sub := host.OnStart(m.handleStart)
	running := host.Running()

	m.mu.Lock()
	m.sub = sub
	for _, d := range running {
		if id := d.ID(); id != "" {
			if m.seen[id] {
				// Already delivered as a start.
				delete(m.seen, id)
				continue
			}
			m.seen[id] = true
		}
		if !m.matches(d) {
			continue
		}
		key := scope.Key(d.Scope())
		if m.occurrences[key] == 0 {
			m.logger.Debug("seeding %s from running task %q", key, d.Name())
			m.occurrences[key] = 1
		}
	}
	m.state.Store(int32(StateActive))
	m.mu.Unlock()

	return m
}

// Events returns the channel events are delivered on, in start order.
// It is closed by Dispose.
func (m *Monitor) Events() <-chan Event {
	return m.events
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	return State(m.state.Load())
}

// Occurrences returns the counter for a scope key.
func (m *Monitor) Occurrences(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occurrences[key]
}

// Dispose unsubscribes from the host, discards the counters and closes
// the event channel. Undelivered events are dropped. It is safe to call
// more than once.
func (m *Monitor) Dispose() {
	m.disposed.Do(func() {
		m.mu.Lock()
		m.state.Store(int32(StateDisposed))
		sub := m.sub
		m.sub = nil
		m.occurrences = make(map[string]int)
		m.seen = nil
		m.pending = nil
		m.mu.Unlock()

		if sub != nil {
			sub.Unsubscribe()
		}
		close(m.quit)
	})
}

func (m *Monitor) matches(d task.Descriptor) bool {
	cs, ok := m.resolver.FromTaskScope(d.Scope())
	if !ok {
		cs = scope.WorkspaceLevel()
	}
	mc := m.config.MonitoringFor(cs)
	if mc.Mode == config.ModeAll {
		return true
	}
	return criteria.MatchesTask(d, mc.Criteria)
}

func (m *Monitor) handleStart(d task.Descriptor) {
	if m.State() == StateDisposed {
		return
	}
	if m.counted(d.ID()) {
		m.logger.Debug("task %q was running when monitoring began", d.Name())
		return
	}
	if !m.matches(d) {
		m.logger.Debug("task %q does not match", d.Name())
		return
	}

	key := scope.Key(d.Scope())

	m.mu.Lock()
	if m.State() == StateDisposed {
		m.mu.Unlock()
		return
	}
	m.occurrences[key]++
	ev := Event{Occurrences: m.occurrences[key], Scope: d.Scope(), Task: d}
	m.pending = append(m.pending, ev)
	m.mu.Unlock()

	m.logger.Info("task %q matched in %s (occurrence %d)", d.Name(), key, ev.Occurrences)

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// counted reports whether the execution id was taken from the running
// snapshot, whose start may still be on its way. Starts delivered while New
// is seeding are recorded so the snapshot skips them.
func (m *Monitor) counted(id string) bool {
	if id == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		delete(m.seen, id)
		return true
	}
	if m.State() == StateIdle && m.seen != nil {
		m.seen[id] = true
	}
	return false
}

// pump moves queued events to the events channel. The host's delivery of
// task starts never waits on the consumer.
func (m *Monitor) pump() {
	defer close(m.events)

	for {
		m.mu.Lock()
		var next Event
		ok := len(m.pending) > 0
		if ok {
			next = m.pending[0]
			m.pending = m.pending[1:]
		}
		m.mu.Unlock()

		if !ok {
			select {
			case <-m.wake:
				continue
			case <-m.quit:
				return
			}
		}

		select {
		case m.events <- next:
		case <-m.quit:
			return
		}
	}
}
