package launch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/monitor"
	"github.com/dshills/tasklaunch/internal/scope"
	"github.com/dshills/tasklaunch/internal/task"
)

var (
	folderA = scope.Folder{URI: "file:///ws/a", Path: "/ws/a", Name: "a"}
	folderB = scope.Folder{URI: "file:///ws/b", Path: "/ws/b", Name: "b", Index: 1}
)

type fakeSettings struct {
	global  config.LaunchSettings
	folders map[string]config.LaunchSettings
}

func (s fakeSettings) LaunchSettingsFor(cs scope.ConfigScope) config.LaunchSettings {
	if ls, ok := s.folders[cs.FolderURI()]; ok {
		return ls
	}
	return s.global
}

type fakeResolver struct {
	folders   int
	ambiguous scope.ConfigScope
	ok        bool
	err       error
}

func (r fakeResolver) FromTaskScope(s scope.Scope) (scope.ConfigScope, bool) {
	if f, ok := s.Folder(); ok {
		return scope.ForFolder(f), true
	}
	return scope.ConfigScope{}, false
}

func (r fakeResolver) ResolveAmbiguous(ctx context.Context, key string) (scope.ConfigScope, bool, error) {
	return r.ambiguous, r.ok, r.err
}

type fakeProber struct {
	mu    sync.Mutex
	up    bool
	calls []string
}

func (p *fakeProber) WaitForHost(ctx context.Context, host string, port int, timeout time.Duration) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, host)
	return p.up
}

type shown struct {
	url       string
	placement Placement
}

type fakeDisplayer struct {
	mu    sync.Mutex
	shown []shown
	err   error
}

func (d *fakeDisplayer) Show(ctx context.Context, url string, p Placement) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.shown = append(d.shown, shown{url, p})
	return nil
}

func (d *fakeDisplayer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.shown)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []Message
}

func (n *fakeNotifier) Notify(m Message) {
	n.mu.Lock()
	n.messages = append(n.messages, m)
	n.mu.Unlock()
}

type fakeLocator struct{}

func (fakeLocator) SettingsPath(cs scope.ConfigScope) string {
	if cs.Folder != nil {
		return cs.Folder.Path + "/.tasklaunch/settings.toml"
	}
	return "/ws/project.code-workspace"
}

type harness struct {
	ctrl      *Controller
	prober    *fakeProber
	displayer *fakeDisplayer
	notifier  *fakeNotifier
}

func newHarness(settings fakeSettings, resolver fakeResolver) *harness {
	h := &harness{
		prober:    &fakeProber{up: true},
		displayer: &fakeDisplayer{},
		notifier:  &fakeNotifier{},
	}
	h.ctrl = NewController(settings, resolver, h.prober, h.displayer, h.notifier, WithSettingsLocator(fakeLocator{}))
	return h
}

func event(occ int, s scope.Scope) monitor.Event {
	d := task.NewDescriptor("serve", "npm", map[string]any{"type": "npm"}, task.CustomExecution{}, s)
	return monitor.Event{Occurrences: occ, Scope: s, Task: d}
}

func baseSettings() config.LaunchSettings {
	return config.LaunchSettings{
		URL:         "http://localhost:3000",
		Behavior:    config.BehaviorOneTime,
		WaitTimeout: time.Second,
		Column:      config.ColumnActive,
	}
}

func TestController_Handle_Behavior(t *testing.T) {
	tests := []struct {
		name     string
		behavior config.Behavior
		occ      int
		want     int
	}{
		{"one time first", config.BehaviorOneTime, 1, 1},
		{"one time second", config.BehaviorOneTime, 2, 0},
		{"every time", config.BehaviorEverytime, 7, 1},
		{"none", config.BehaviorNone, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls := baseSettings()
			ls.Behavior = tt.behavior
			h := newHarness(fakeSettings{global: ls}, fakeResolver{})

			if err := h.ctrl.Handle(context.Background(), event(tt.occ, scope.InFolder(folderA))); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if got := h.displayer.count(); got != tt.want {
				t.Errorf("shown %d times, want %d", got, tt.want)
			}
		})
	}
}

func TestController_Handle_FolderSettings(t *testing.T) {
	a := baseSettings()
	a.URL = "https://a.test"
	a.Column = config.ColumnBeside
	a.PreserveFocus = true
	h := newHarness(fakeSettings{
		global:  baseSettings(),
		folders: map[string]config.LaunchSettings{folderA.URI: a},
	}, fakeResolver{})

	ctx := context.Background()
	if err := h.ctrl.Handle(ctx, event(1, scope.InFolder(folderA))); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.Handle(ctx, event(1, scope.Global())); err != nil {
		t.Fatal(err)
	}

	want := []shown{
		{"https://a.test", Placement{Column: config.ColumnBeside, PreserveFocus: true}},
		{"http://localhost:3000", Placement{Column: config.ColumnActive}},
	}
	if len(h.displayer.shown) != len(want) {
		t.Fatalf("shown = %+v", h.displayer.shown)
	}
	for i := range want {
		if h.displayer.shown[i] != want[i] {
			t.Errorf("shown[%d] = %+v, want %+v", i, h.displayer.shown[i], want[i])
		}
	}
}

func TestController_Handle_InvalidURL(t *testing.T) {
	ls := baseSettings()
	ls.URL = "localhost:3000"
	ls.WaitForHost = true
	h := newHarness(fakeSettings{global: ls}, fakeResolver{})

	err := h.ctrl.Handle(context.Background(), event(1, scope.InFolder(folderB)))
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Fatalf("Handle error = %v, want *ConfigurationError", err)
	}
	if h.displayer.count() != 0 || len(h.prober.calls) != 0 {
		t.Error("invalid URL must neither probe nor launch")
	}
	if len(h.notifier.messages) != 1 {
		t.Fatalf("messages = %+v", h.notifier.messages)
	}
	msg := h.notifier.messages[0]
	if msg.Level != LevelError || msg.Action == nil || msg.Action.Label != OpenSettingsLabel {
		t.Errorf("message = %+v", msg)
	}
	if msg.Action.Target != "/ws/b/.tasklaunch/settings.toml" {
		t.Errorf("action target = %q", msg.Action.Target)
	}
}

func TestController_Handle_Probe(t *testing.T) {
	ls := baseSettings()
	ls.URL = "https://dev.test"
	ls.WaitForHost = true

	t.Run("available", func(t *testing.T) {
		h := newHarness(fakeSettings{global: ls}, fakeResolver{})
		if err := h.ctrl.Handle(context.Background(), event(1, scope.Global())); err != nil {
			t.Fatal(err)
		}
		if len(h.prober.calls) != 1 || h.prober.calls[0] != "dev.test" {
			t.Errorf("probe calls = %v", h.prober.calls)
		}
		if h.displayer.count() != 1 {
			t.Error("expected a launch")
		}
	})

	t.Run("unavailable", func(t *testing.T) {
		h := newHarness(fakeSettings{global: ls}, fakeResolver{})
		h.prober.up = false
		err := h.ctrl.Handle(context.Background(), event(1, scope.Global()))
		if !errors.Is(err, ErrTargetUnavailable) {
			t.Fatalf("Handle error = %v, want ErrTargetUnavailable", err)
		}
		if h.displayer.count() != 0 {
			t.Error("unavailable target must not launch")
		}
		if len(h.notifier.messages) != 1 || h.notifier.messages[0].Level != LevelWarning {
			t.Errorf("messages = %+v", h.notifier.messages)
		}
	})
}

func TestController_Handle_Delay(t *testing.T) {
	ls := baseSettings()
	ls.Delay = 80 * time.Millisecond
	h := newHarness(fakeSettings{global: ls}, fakeResolver{})

	start := time.Now()
	if err := h.ctrl.Handle(context.Background(), event(1, scope.Global())); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < ls.Delay {
		t.Errorf("launched after %s, want at least %s", elapsed, ls.Delay)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ls.Behavior = config.BehaviorEverytime
	h = newHarness(fakeSettings{global: ls}, fakeResolver{})
	if err := h.ctrl.Handle(ctx, event(2, scope.Global())); !errors.Is(err, context.Canceled) {
		t.Errorf("Handle with canceled ctx = %v", err)
	}
}

func TestController_Handle_DisplayError(t *testing.T) {
	h := newHarness(fakeSettings{global: baseSettings()}, fakeResolver{})
	h.displayer.err = errors.New("browser crashed")

	if err := h.ctrl.Handle(context.Background(), event(1, scope.Global())); err == nil {
		t.Fatal("expected display error")
	}
	if len(h.notifier.messages) != 1 || h.notifier.messages[0].Level != LevelError {
		t.Errorf("messages = %+v", h.notifier.messages)
	}
}

func TestController_Open(t *testing.T) {
	ls := baseSettings()
	ls.Behavior = config.BehaviorNone
	ls.WaitForHost = true
	ls.Delay = time.Hour

	t.Run("resolved", func(t *testing.T) {
		h := newHarness(fakeSettings{global: ls}, fakeResolver{ambiguous: scope.WorkspaceLevel(), ok: true})
		if err := h.ctrl.Open(context.Background()); err != nil {
			t.Fatal(err)
		}
		if h.displayer.count() != 1 {
			t.Error("manual launch ignores behavior")
		}
		if len(h.prober.calls) != 0 {
			t.Error("manual launch must not probe")
		}
	})

	t.Run("dismissed", func(t *testing.T) {
		h := newHarness(fakeSettings{global: ls}, fakeResolver{ok: false})
		if err := h.ctrl.Open(context.Background()); err != nil {
			t.Fatal(err)
		}
		if h.displayer.count() != 0 || len(h.notifier.messages) != 0 {
			t.Error("dismissed prompt must abandon silently")
		}
	})

	t.Run("picker error", func(t *testing.T) {
		h := newHarness(fakeSettings{global: ls}, fakeResolver{err: errors.New("no tty")})
		if err := h.ctrl.Open(context.Background()); err == nil {
			t.Error("expected resolver error")
		}
	})

	t.Run("invalid url", func(t *testing.T) {
		bad := ls
		bad.URL = ""
		h := newHarness(fakeSettings{global: bad}, fakeResolver{ambiguous: scope.ForFolder(folderA), ok: true})
		var cerr *ConfigurationError
		if err := h.ctrl.Open(context.Background()); !errors.As(err, &cerr) {
			t.Fatalf("Open error = %v", err)
		}
		if h.notifier.messages[0].Action.Target != "/ws/a/.tasklaunch/settings.toml" {
			t.Errorf("action = %+v", h.notifier.messages[0].Action)
		}
	})
}

// blockingProber holds every probe until released.
type blockingProber struct {
	release chan struct{}
}

func (p blockingProber) WaitForHost(ctx context.Context, host string, port int, timeout time.Duration) bool {
	<-p.release
	return true
}

func TestController_Run_ProbesDoNotBlockOtherEvents(t *testing.T) {
	slow := baseSettings()
	slow.WaitForHost = true
	fast := baseSettings()
	fast.URL = "http://fast.test"

	prober := blockingProber{release: make(chan struct{})}
	displayer := &fakeDisplayer{}
	ctrl := NewController(fakeSettings{
		global:  fast,
		folders: map[string]config.LaunchSettings{folderA.URI: slow},
	}, fakeResolver{}, prober, displayer, &fakeNotifier{})

	events := make(chan monitor.Event, 2)
	events <- event(1, scope.InFolder(folderA))
	events <- event(1, scope.InFolder(folderB))
	close(events)

	done := make(chan struct{})
	go func() {
		ctrl.Run(context.Background(), events)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for displayer.count() < 1 {
		select {
		case <-deadline:
			t.Fatal("fast launch blocked behind the probe")
		case <-time.After(5 * time.Millisecond):
		}
	}

	select {
	case <-done:
		t.Fatal("Run returned with a launch in flight")
	default:
	}

	close(prober.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if displayer.count() != 2 {
		t.Errorf("shown %d, want 2", displayer.count())
	}
}
