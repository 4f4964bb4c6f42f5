// Package app wires the workspace, settings, task host and launch pipeline
// together and manages their lifecycle.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/tasklaunch/internal/browser"
	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/config/watcher"
	"github.com/dshills/tasklaunch/internal/launch"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/monitor"
	"github.com/dshills/tasklaunch/internal/project/workspace"
	"github.com/dshills/tasklaunch/internal/scope"
	"github.com/dshills/tasklaunch/internal/task"
)

// Application is the central coordinator for all tasklaunch components.
type Application struct {
	opts   Options
	logger *logging.Logger

	workspace  *workspace.Workspace
	store      *config.Store
	aggregator *config.Aggregator
	watcher    *watcher.Watcher

	discovery *task.Discovery
	runner    *task.Runner
	tasksMu   sync.RWMutex
	tasks     *task.DiscoveryResult

	resolver   *scope.Resolver
	monitor    *monitor.Monitor
	controller *launch.Controller
	surface    *browser.Surface

	running  atomic.Bool
	shutdown sync.Once
}

// Options configures the application.
type Options struct {
	// WorkspacePath is a folder or a .code-workspace file. Defaults to the
	// current directory.
	WorkspacePath string

	// Folders are additional workspace folders.
	Folders []string

	// ConfigPath is the user settings file. Defaults to
	// config.DefaultUserSettingsPath().
	ConfigPath string

	// ActiveResource is the file the user is working in, used to pick a
	// folder for tasks that are not bound to one.
	ActiveResource string

	// LogLevel sets the logging verbosity.
	LogLevel string

	// LogOutput receives log lines. Defaults to stderr.
	LogOutput io.Writer

	// Headless runs the browser without a window.
	Headless bool

	// Watch reloads settings files when they change.
	Watch bool

	// Displayer, Notifier, Picker and Prober replace the default
	// collaborators when set.
	Displayer launch.Displayer
	Notifier  launch.Notifier
	Picker    scope.Picker
	Prober    launch.Prober
}

// New creates an Application and initializes its components.
func New(opts Options) (*Application, error) {
	app := &Application{opts: opts}

	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Workspace returns the open workspace.
func (app *Application) Workspace() *workspace.Workspace {
	return app.workspace
}

// Store returns the settings store.
func (app *Application) Store() *config.Store {
	return app.store
}

// Monitor returns the task monitor.
func (app *Application) Monitor() *monitor.Monitor {
	return app.monitor
}

// Tasks returns the discovered tasks.
func (app *Application) Tasks() []*task.Task {
	app.tasksMu.RLock()
	defer app.tasksMu.RUnlock()
	if app.tasks == nil {
		return nil
	}
	return app.tasks.Tasks
}

// Rediscover runs task discovery over the current folders again.
func (app *Application) Rediscover(ctx context.Context) error {
	result, err := app.discovery.DiscoverFolders(ctx, app.workspace.Folders())
	if err != nil {
		return NewComponentError("discovery", "discover tasks", err)
	}
	for _, derr := range result.Errors {
		app.logger.Warn("task discovery: %v", derr)
	}

	app.tasksMu.Lock()
	app.tasks = result
	app.tasksMu.Unlock()

	app.logger.Debug("discovered %d tasks in %s", len(result.Tasks), result.Duration)
	return nil
}

// Run starts the named tasks and launches the browser for matching starts
// until ctx is done. Tasks are found by ID or name.
func (app *Application) Run(ctx context.Context, taskRefs ...string) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if app.monitor.State() == monitor.StateDisposed {
		return ErrShutDown
	}

	toRun := make([]*task.Task, 0, len(taskRefs))
	app.tasksMu.RLock()
	for _, ref := range taskRefs {
		t, ok := app.tasks.Find(ref)
		if !ok {
			app.tasksMu.RUnlock()
			return fmt.Errorf("%w: %s", task.ErrTaskNotFound, ref)
		}
		toRun = append(toRun, t)
	}
	all := app.tasks.Tasks
	app.tasksMu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.controller.Run(gctx, app.monitor.Events())
		return nil
	})

	for _, t := range toRun {
		g.Go(func() error {
			if _, err := app.runner.Run(gctx, t, all); err != nil {
				return NewComponentError("runner", "run "+t.Name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	return g.Wait()
}

// Open launches the browser on user request, outside any task.
func (app *Application) Open(ctx context.Context) error {
	return app.controller.Open(ctx)
}

// Shutdown stops every component. It is safe to call more than once.
func (app *Application) Shutdown() error {
	var errs ErrorList
	app.shutdown.Do(func() {
		if app.monitor != nil {
			app.monitor.Dispose()
		}
		if app.runner != nil {
			app.runner.Close()
		}
		if app.watcher != nil {
			if err := app.watcher.Close(); err != nil {
				errs.Add(NewComponentError("watcher", "close", err))
			}
		}
		if app.surface != nil {
			if err := app.surface.Close(); err != nil {
				errs.Add(NewComponentError("browser", "close", err))
			}
		}
		if app.store != nil {
			app.store.Close()
		}
		if app.workspace != nil {
			app.workspace.Close()
		}
	})
	return errs.AsError()
}
