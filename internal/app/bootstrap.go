package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/tasklaunch/internal/browser"
	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/config/notify"
	"github.com/dshills/tasklaunch/internal/config/watcher"
	"github.com/dshills/tasklaunch/internal/launch"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/monitor"
	"github.com/dshills/tasklaunch/internal/probe"
	"github.com/dshills/tasklaunch/internal/project/workspace"
	"github.com/dshills/tasklaunch/internal/scope"
	"github.com/dshills/tasklaunch/internal/task"
	"github.com/dshills/tasklaunch/internal/task/sources"
	"github.com/dshills/tasklaunch/internal/ui"
)

// discoveryTimeout bounds the initial task discovery.
const discoveryTimeout = 30 * time.Second

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	opts      Options
	initOrder []string
}

// newBootstrapper creates a new bootstrapper for the application.
func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		opts:      app.opts,
		initOrder: make([]string, 0, 6),
	}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		init func() error
	}{
		{"logger", b.initLogger},
		{"workspace", b.initWorkspace},
		{"config", b.initConfig},
		{"watcher", b.initWatcher},
		{"tasks", b.initTasks},
		{"launch", b.initLaunch},
	}

	for _, step := range steps {
		if err := step.init(); err != nil {
			b.cleanup()
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

func (b *bootstrapper) initLogger() error {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(b.opts.LogLevel)
	if b.opts.LogOutput != nil {
		cfg.Output = b.opts.LogOutput
	}
	b.app.logger = logging.New(cfg)
	return nil
}

// initWorkspace opens a .code-workspace file or a set of folders.
func (b *bootstrapper) initWorkspace() error {
	path := b.opts.WorkspacePath
	if path == "" && len(b.opts.Folders) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		path = cwd
	}

	var ws *workspace.Workspace
	var err error
	if workspace.IsWorkspaceFile(path) {
		ws, err = workspace.OpenFile(path)
		if err == nil {
			for _, f := range b.opts.Folders {
				if _, err = ws.AddFolder(f); err != nil {
					break
				}
			}
		}
	} else {
		paths := b.opts.Folders
		if path != "" {
			paths = append([]string{path}, paths...)
		}
		ws, err = workspace.NewFromPaths(paths...)
	}
	if err != nil {
		return err
	}

	if b.opts.ActiveResource != "" {
		if err := ws.SetActiveResource(b.opts.ActiveResource); err != nil {
			return err
		}
	}

	b.app.workspace = ws
	b.app.logger.Info("workspace opened with %d folders", ws.FolderCount())
	return nil
}

// initConfig loads every settings layer. Unreadable settings files are
// logged and skipped; defaults cover what they would have set.
func (b *bootstrapper) initConfig() error {
	logger := b.app.logger.WithComponent("config")
	store := config.NewStore(
		config.WithLogger(logger),
		config.WithNotifier(notify.New()),
	)

	if err := store.LoadUser(b.opts.ConfigPath); err != nil {
		logger.Warn("%v", err)
	}
	if path := b.app.workspace.FilePath(); path != "" {
		if err := store.LoadWorkspace(path); err != nil {
			logger.Warn("%v", err)
		}
	}
	for _, f := range b.app.workspace.Folders() {
		if err := store.AddFolder(f); err != nil {
			logger.Warn("%v", err)
		}
	}
	if err := store.LoadEnv(); err != nil {
		logger.Warn("%v", err)
	}

	store.Notifier().SubscribePath(config.Section, func(c notify.Change) {
		origin := c.Source
		if c.Scope != "" {
			origin += " " + c.Scope
		}
		switch c.Type {
		case notify.ChangeSet:
			logger.Info("%s set to %v by %s settings", c.Path, c.NewValue, origin)
		case notify.ChangeDelete:
			logger.Info("%s removed from %s settings", c.Path, origin)
		case notify.ChangeReload:
			logger.Info("%s settings reloaded", origin)
		}
	})

	b.app.workspace.OnChange(func(ev workspace.ChangeEvent) {
		for _, f := range ev.Folders {
			switch ev.Type {
			case workspace.ChangeFolderAdded:
				if err := store.AddFolder(f); err != nil {
					logger.Warn("%v", err)
				}
				b.app.watchFolder(f)
			case workspace.ChangeFolderRemoved:
				store.RemoveFolder(f.URI)
				b.app.unwatchFolder(f)
			}
		}
	})

	b.app.store = store
	b.app.aggregator = config.NewAggregator(store, config.WithAggregatorLogger(logger))
	return nil
}

// initWatcher watches every settings file whose directory exists.
func (b *bootstrapper) initWatcher() error {
	if !b.opts.Watch {
		return nil
	}

	logger := b.app.logger.WithComponent("watcher")
	w, err := watcher.New(watcher.WithLogger(logger))
	if err != nil {
		return err
	}
	b.app.watcher = w

	for _, path := range b.app.store.WatchPaths() {
		b.app.watch(path)
	}

	w.OnChange(func(ev watcher.Event) {
		if err := b.app.store.Reload(ev.Path); err != nil {
			logger.Warn("reload %s: %v", ev.Path, err)
		}
	})
	return nil
}

// initTasks discovers tasks in every folder and starts the runner.
func (b *bootstrapper) initTasks() error {
	b.app.discovery = task.NewDiscovery(
		sources.NewTasksJSONSource(),
		sources.NewMakefileSource(),
		sources.NewTaskfileSource(),
		sources.NewPackageJSONSource(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()
	if err := b.app.Rediscover(ctx); err != nil {
		return err
	}

	b.app.runner = task.NewRunner(task.DefaultRunnerConfig(),
		task.WithRunnerLogger(b.app.logger.WithComponent("runner")))
	return nil
}

// initLaunch builds the monitor and the launch controller. The monitor
// subscribes to the runner here, before any task is started.
func (b *bootstrapper) initLaunch() error {
	app := b.app
	logger := app.logger.WithComponent("launch")

	picker := b.opts.Picker
	if picker == nil {
		picker = ui.NewFolderPicker()
	}
	app.resolver = scope.NewResolver(app.workspace, app.store, picker)

	notifier := b.opts.Notifier
	if notifier == nil {
		notifier = ui.NewTerminal(nil)
	}

	prober := b.opts.Prober
	if prober == nil {
		prober = probe.New(probe.WithLogger(logger))
	}

	displayer := b.opts.Displayer
	if displayer == nil {
		app.surface = browser.NewSurface(
			browser.WithOptions(browser.Options{Headless: b.opts.Headless, Install: true}),
			browser.WithLogger(app.logger.WithComponent("browser")),
		)
		displayer = app.surface
	}

	app.monitor = monitor.New(app.runner, app.resolver, app.aggregator,
		monitor.WithLogger(app.logger.WithComponent("monitor")))
	app.controller = launch.NewController(app.aggregator, app.resolver, prober, displayer, notifier,
		launch.WithLogger(logger),
		launch.WithSettingsLocator(app.store),
	)
	return nil
}

// cleanup performs cleanup in reverse initialization order.
// Called when bootstrap fails partway through.
func (b *bootstrapper) cleanup() {
	for i := len(b.initOrder) - 1; i >= 0; i-- {
		b.cleanupComponent(b.initOrder[i])
	}
}

// cleanupComponent cleans up a single component.
func (b *bootstrapper) cleanupComponent(component string) {
	switch component {
	case "workspace":
		if b.app.workspace != nil {
			b.app.workspace.Close()
			b.app.workspace = nil
		}
	case "config":
		if b.app.store != nil {
			b.app.store.Close()
			b.app.store = nil
		}
	case "watcher":
		if b.app.watcher != nil {
			_ = b.app.watcher.Close()
			b.app.watcher = nil
		}
	case "tasks":
		if b.app.runner != nil {
			b.app.runner.Close()
			b.app.runner = nil
		}
	}
}

// watch adds a settings file to the watcher. Files in directories that do
// not exist yet are skipped.
func (app *Application) watch(path string) {
	if app.watcher == nil {
		return
	}
	err := app.watcher.Watch(path)
	switch {
	case err == nil:
	case errors.Is(err, watcher.ErrDirNotExist):
		app.logger.Debug("not watching %s: directory does not exist", path)
	default:
		app.logger.Warn("watch %s: %v", path, err)
	}
}

func (app *Application) watchFolder(f scope.Folder) {
	for _, path := range config.FolderSettingsCandidates(f.Path) {
		app.watch(path)
	}
}

func (app *Application) unwatchFolder(f scope.Folder) {
	if app.watcher == nil {
		return
	}
	for _, path := range config.FolderSettingsCandidates(f.Path) {
		_ = app.watcher.Unwatch(filepath.Clean(path))
	}
}
