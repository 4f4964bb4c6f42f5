// Package notify delivers settings change notifications.
//
// Observers subscribe to every change or to a settings path. A change to
// "taskBrowser.url" reaches observers of "taskBrowser.url" and of
// "taskBrowser"; a reload reaches everyone.
package notify

import (
	"sort"
	"sync"
)

// ChangeType represents the type of settings change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeDelete indicates a value was deleted.
	ChangeDelete

	// ChangeReload indicates a whole settings source was reloaded.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a settings change event.
type Change struct {
	// Path is the dot-separated path to the changed setting.
	// Empty for reload events.
	Path string

	// Type is the type of change.
	Type ChangeType

	// OldValue is the previous value (may be nil).
	OldValue any

	// NewValue is the new value (may be nil for deletes).
	NewValue any

	// Source names the settings layer the change came from.
	Source string

	// Scope is the folder URI for folder settings, empty for shared ones.
	Scope string
}

// Observer is called when settings change.
type Observer func(change Change)

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
	once     sync.Once
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.notifier != nil {
			s.notifier.unsubscribe(s.id)
		}
	})
}

type entry struct {
	id       uint64
	path     string
	observer Observer
}

// Notifier manages settings change subscriptions.
type Notifier struct {
	mu sync.RWMutex

	observers map[uint64]entry
	nextID    uint64
	closed    bool
}

// New creates a new Notifier.
func New() *Notifier {
	return &Notifier{observers: make(map[uint64]entry)}
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for changes at or below path.
func (n *Notifier) SubscribePath(path string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.observers[id] = entry{id: id, path: path, observer: observer}

	return &Subscription{id: id, notifier: n}
}

// Notify calls every observer the change is relevant to, in subscription
// order, on the caller's goroutine. Changes after Close are dropped.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	if n.closed {
		n.mu.RUnlock()
		return
	}
	matched := make([]entry, 0, len(n.observers))
	for _, e := range n.observers {
		if e.path == "" || change.Path == "" || e.path == change.Path || isParentPath(e.path, change.Path) {
			matched = append(matched, e)
		}
	}
	n.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })
	for _, e := range matched {
		e.observer(change)
	}
}

// NotifySet is a convenience method for set changes.
func (n *Notifier) NotifySet(path string, oldValue, newValue any, source, scope string) {
	n.Notify(Change{
		Path:     path,
		Type:     ChangeSet,
		OldValue: oldValue,
		NewValue: newValue,
		Source:   source,
		Scope:    scope,
	})
}

// NotifyDelete is a convenience method for delete changes.
func (n *Notifier) NotifyDelete(path string, oldValue any, source, scope string) {
	n.Notify(Change{
		Path:     path,
		Type:     ChangeDelete,
		OldValue: oldValue,
		Source:   source,
		Scope:    scope,
	})
}

// NotifyReload is a convenience method for reload events.
func (n *Notifier) NotifyReload(source, scope string) {
	n.Notify(Change{
		Type:   ChangeReload,
		Source: source,
		Scope:  scope,
	})
}

// Close stops delivery and drops every observer. It is safe to call
// Close multiple times.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.observers = make(map[uint64]entry)
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

// isParentPath checks if parent is a parent path of child.
// e.g., "taskBrowser" is parent of "taskBrowser.url".
func isParentPath(parent, child string) bool {
	if parent == "" {
		return child != ""
	}
	return len(child) > len(parent) && child[:len(parent)] == parent && child[len(parent)] == '.'
}
