// Package launch decides whether a matched task start opens the browser,
// and opens it.
//
// An automatic launch applies the scope's behavior to the occurrence count,
// validates the target URL, waits the configured delay, optionally probes
// the target host and then shows the URL. A manual launch resolves the
// scope interactively when needed and only validates and shows the URL.
package launch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/monitor"
	"github.com/dshills/tasklaunch/internal/scope"
)

// Placement controls where and how the URL is shown.
type Placement struct {
	Column        config.Column
	PreserveFocus bool
}

// Displayer shows a URL in a browser surface.
type Displayer interface {
	Show(ctx context.Context, url string, p Placement) error
}

// Level is the severity of a user notification.
type Level int

const (
	// LevelInfo is informational.
	LevelInfo Level = iota
	// LevelWarning is a problem the user may want to act on.
	LevelWarning
	// LevelError is a failed operation.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Action is a follow-up offered with a notification.
type Action struct {
	Label string
	// Target is the file the action opens.
	Target string
}

// OpenSettingsLabel labels the action offered with configuration errors.
const OpenSettingsLabel = "Open Settings"

// Message is a user notification.
type Message struct {
	Level  Level
	Text   string
	Action *Action
}

// Notifier shows notifications to the user.
type Notifier interface {
	Notify(m Message)
}

// Settings resolves launch settings per config scope.
// config.Aggregator implements it.
type Settings interface {
	LaunchSettingsFor(cs scope.ConfigScope) config.LaunchSettings
}

// SettingsLocator names the file holding a config scope's settings.
// config.Store implements it.
type SettingsLocator interface {
	SettingsPath(cs scope.ConfigScope) string
}

// ScopeResolver maps task scopes and manual invocations to config scopes.
// scope.Resolver implements it.
type ScopeResolver interface {
	FromTaskScope(s scope.Scope) (scope.ConfigScope, bool)
	ResolveAmbiguous(ctx context.Context, probeKey string) (scope.ConfigScope, bool, error)
}

// Prober waits for a host to accept connections. probe.Prober implements it.
type Prober interface {
	WaitForHost(ctx context.Context, host string, port int, timeout time.Duration) bool
}

// Controller launches the browser for matched task starts and manual
// requests.
type Controller struct {
	settings  Settings
	locator   SettingsLocator
	resolver  ScopeResolver
	prober    Prober
	displayer Displayer
	notifier  Notifier
	logger    *logging.Logger

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSettingsLocator sets where the Open Settings action points.
func WithSettingsLocator(l SettingsLocator) Option {
	return func(c *Controller) {
		c.locator = l
	}
}

// NewController creates a controller.
func NewController(settings Settings, resolver ScopeResolver, prober Prober, displayer Displayer, notifier Notifier, opts ...Option) *Controller {
	c := &Controller{
		settings:  settings,
		resolver:  resolver,
		prober:    prober,
		displayer: displayer,
		notifier:  notifier,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run handles events until the channel closes or ctx is done. Each event
// is handled on its own goroutine; Run returns after all of them finish.
func (c *Controller) Run(ctx context.Context, events <-chan monitor.Event) {
	defer c.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				if err := c.Handle(ctx, ev); err != nil {
					c.logger.Warn("launch for %q: %v", ev.Task.Name(), err)
				}
			}()
		}
	}
}

// Handle processes one matched task start. Skipped launches return nil.
// Failures are reported to the notifier and returned.
func (c *Controller) Handle(ctx context.Context, ev monitor.Event) error {
	cs, ok := c.resolver.FromTaskScope(ev.Scope)
	if !ok {
		cs = scope.WorkspaceLevel()
	}
	ls := c.settings.LaunchSettingsFor(cs)

	if !ShouldLaunch(ls.Behavior, ev.Occurrences) {
		c.logger.Debug("behavior %s skips occurrence %d in %s", ls.Behavior, ev.Occurrences, cs)
		return nil
	}

	target, err := ParseTarget(ls.URL)
	if err != nil {
		c.reportConfig(cs, err)
		return err
	}

	if ls.Delay > 0 {
		timer := time.NewTimer(ls.Delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	if ls.WaitForHost {
		if !c.prober.WaitForHost(ctx, target.Host, target.Port, ls.WaitTimeout) {
			addr := net.JoinHostPort(target.Host, strconv.Itoa(target.Port))
			c.notifier.Notify(Message{
				Level: LevelWarning,
				Text:  fmt.Sprintf("%s did not respond within %s; not opening %s", addr, ls.WaitTimeout, target.URL),
			})
			return fmt.Errorf("%w: %s", ErrTargetUnavailable, addr)
		}
	}

	return c.show(ctx, target, ls)
}

// Open launches the configured URL on user request. With several folders
// whose settings disagree the user picks one; a dismissed pick returns nil
// without launching.
func (c *Controller) Open(ctx context.Context) error {
	cs, ok, err := c.resolver.ResolveAmbiguous(ctx, config.KeyURL)
	if err != nil {
		return err
	}
	if !ok {
		c.logger.Debug("no scope resolved for manual launch")
		return nil
	}

	ls := c.settings.LaunchSettingsFor(cs)
	target, err := ParseTarget(ls.URL)
	if err != nil {
		c.reportConfig(cs, err)
		return err
	}
	return c.show(ctx, target, ls)
}

func (c *Controller) show(ctx context.Context, target Target, ls config.LaunchSettings) error {
	placement := Placement{Column: ls.Column, PreserveFocus: ls.PreserveFocus}
	if err := c.displayer.Show(ctx, target.URL, placement); err != nil {
		c.notifier.Notify(Message{
			Level: LevelError,
			Text:  fmt.Sprintf("could not open %s: %v", target.URL, err),
		})
		return fmt.Errorf("show %s: %w", target.URL, err)
	}
	c.logger.Info("opened %s", target.URL)
	return nil
}

func (c *Controller) reportConfig(cs scope.ConfigScope, err error) {
	msg := Message{
		Level: LevelError,
		Text:  fmt.Sprintf("Browser launch is not configured for %s: %v", cs, err),
	}
	var cerr *ConfigurationError
	if c.locator != nil && errors.As(err, &cerr) {
		msg.Action = &Action{Label: OpenSettingsLabel, Target: c.locator.SettingsPath(cs)}
	}
	c.notifier.Notify(msg)
}
