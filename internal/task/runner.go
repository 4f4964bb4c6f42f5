package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gammazero/toposort"
	"github.com/google/uuid"

	"github.com/dshills/tasklaunch/internal/logging"
)

// RunnerConfig configures the task runner.
type RunnerConfig struct {
	// DefaultShell is the shell to use for shell tasks.
	DefaultShell string

	// DefaultShellArgs are the default arguments for the shell.
	DefaultShellArgs []string

	// DefaultEnv are environment variables to add to all tasks.
	DefaultEnv map[string]string

	// Stdout and Stderr receive task output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// NotifyBuffer is the number of start notifications queued for delivery.
	NotifyBuffer int
}

// DefaultRunnerConfig returns sensible defaults.
func DefaultRunnerConfig() RunnerConfig {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}

	return RunnerConfig{
		DefaultShell:     shell,
		DefaultShellArgs: []string{"-c"},
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		NotifyBuffer:     64,
	}
}

// ExecutionState represents the state of a task execution.
type ExecutionState string

const (
	// ExecutionStateRunning indicates the task is currently running.
	ExecutionStateRunning ExecutionState = "running"
	// ExecutionStateSucceeded indicates the task completed successfully.
	ExecutionStateSucceeded ExecutionState = "succeeded"
	// ExecutionStateFailed indicates the task failed.
	ExecutionStateFailed ExecutionState = "failed"
	// ExecutionStateCanceled indicates the task was canceled.
	ExecutionStateCanceled ExecutionState = "canceled"
)

// Exec is a started task. Its observed form is Descriptor.
type Exec struct {
	// ID is a unique identifier for this execution.
	ID string

	// Task is the task being executed.
	Task *Task

	// StartTime is when execution started.
	StartTime time.Time

	descriptor Descriptor
	cmd        *osexec.Cmd
	cancel     context.CancelFunc
	done       chan struct{}

	mu       sync.RWMutex
	state    ExecutionState
	endTime  time.Time
	exitCode int
	err      error
}

// Descriptor returns the observed form of the execution.
func (e *Exec) Descriptor() Descriptor { return e.descriptor }

// Done returns a channel closed when the execution finishes.
func (e *Exec) Done() <-chan struct{} { return e.done }

// Cancel stops the execution.
func (e *Exec) Cancel() { e.cancel() }

// State returns the current execution state.
func (e *Exec) State() ExecutionState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// ExitCode returns the process exit code, or -1 while running.
func (e *Exec) ExitCode() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.exitCode
}

// Err returns the error the execution ended with, if any.
func (e *Exec) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// EndTime returns when the execution finished.
func (e *Exec) EndTime() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.endTime
}

// Runner executes tasks and reports their starts. It implements Host.
type Runner struct {
	config RunnerConfig
	logger *logging.Logger

	mu        sync.RWMutex
	running   map[string]*Exec
	listeners map[uint64]func(Descriptor)
	nextID    uint64
	closed    bool

	notifications chan Descriptor
	done          chan struct{}
	wg            sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the runner's logger.
func WithRunnerLogger(l *logging.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a runner and starts its notification delivery loop.
func NewRunner(config RunnerConfig, opts ...RunnerOption) *Runner {
	if config.DefaultShell == "" {
		config.DefaultShell = "/bin/sh"
	}
	if len(config.DefaultShellArgs) == 0 {
		config.DefaultShellArgs = []string{"-c"}
	}
	if config.NotifyBuffer <= 0 {
		config.NotifyBuffer = 64
	}

	r := &Runner{
		config:        config,
		logger:        logging.Nop(),
		running:       make(map[string]*Exec),
		listeners:     make(map[uint64]func(Descriptor)),
		notifications: make(chan Descriptor, config.NotifyBuffer),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.deliverLoop()

	return r
}

type runnerSubscription struct {
	id     uint64
	runner *Runner
	once   sync.Once
}

func (s *runnerSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.runner.mu.Lock()
		delete(s.runner.listeners, s.id)
		s.runner.mu.Unlock()
	})
}

// OnStart registers fn for task-start notifications.
func (r *Runner) OnStart(fn func(Descriptor)) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	r.listeners[id] = fn

	return &runnerSubscription{id: id, runner: r}
}

// Running returns the descriptors of running executions, oldest first.
func (r *Runner) Running() []Descriptor {
	r.mu.RLock()
	execs := make([]*Exec, 0, len(r.running))
	for _, e := range r.running {
		execs = append(execs, e)
	}
	r.mu.RUnlock()

	sort.Slice(execs, func(i, j int) bool {
		return execs[i].StartTime.Before(execs[j].StartTime)
	})

	result := make([]Descriptor, len(execs))
	for i, e := range execs {
		result[i] = e.descriptor
	}
	return result
}

// Start launches a task and returns once its process has started.
func (r *Runner) Start(ctx context.Context, t *Task) (*Exec, error) {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, ErrRunnerClosed
	}

	execCtx, cancel := context.WithCancel(ctx)
	cmd, err := r.buildCommand(execCtx, t)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("task %s: %w", t.Name, err)
	}

	id := uuid.NewString()
	exec := &Exec{
		ID:         id,
		Task:       t,
		descriptor: t.Descriptor().WithID(id),
		cmd:        cmd,
		cancel:     cancel,
		done:       make(chan struct{}),
		state:      ExecutionStateRunning,
		exitCode:   -1,
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("task %s: start: %w", t.Name, err)
	}
	exec.StartTime = time.Now()

	// Listed in Running before the start is queued, as Host requires.
	r.mu.Lock()
	r.running[id] = exec
	r.mu.Unlock()

	r.logger.WithFields(map[string]any{"task": t.Name, "id": id}).Info("task started")

	select {
	case r.notifications <- exec.descriptor:
	case <-r.done:
	}

	go r.wait(execCtx, exec)

	return exec, nil
}

// Run starts a task after running its dependencies to completion.
// Dependencies are looked up by name among tasks in the same folder and run
// in topological order; the first failing dependency aborts the run.
func (r *Runner) Run(ctx context.Context, t *Task, all []*Task) (*Exec, error) {
	order, err := dependencyOrder(t, all)
	if err != nil {
		return nil, err
	}

	for _, dep := range order {
		exec, err := r.Start(ctx, dep)
		if err != nil {
			return nil, &DependencyError{Task: t.Name, Dependency: dep.Name, Err: err}
		}
		select {
		case <-exec.Done():
		case <-ctx.Done():
			exec.Cancel()
			return nil, ctx.Err()
		}
		if exec.State() != ExecutionStateSucceeded {
			return nil, &DependencyError{Task: t.Name, Dependency: dep.Name, Err: exec.Err()}
		}
	}

	return r.Start(ctx, t)
}

// CancelAll cancels all running executions.
func (r *Runner) CancelAll() {
	r.mu.RLock()
	execs := make([]*Exec, 0, len(r.running))
	for _, e := range r.running {
		execs = append(execs, e)
	}
	r.mu.RUnlock()

	for _, e := range execs {
		e.Cancel()
	}
}

// Close cancels running tasks and stops notification delivery.
// It is safe to call Close multiple times.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.CancelAll()
	close(r.done)
	r.wg.Wait()
}

func (r *Runner) deliverLoop() {
	defer r.wg.Done()

	for {
		select {
		case d := <-r.notifications:
			r.deliver(d)
		case <-r.done:
			return
		}
	}
}

func (r *Runner) deliver(d Descriptor) {
	r.mu.RLock()
	ids := make([]uint64, 0, len(r.listeners))
	for id := range r.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Descriptor), len(ids))
	for i, id := range ids {
		fns[i] = r.listeners[id]
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(d)
	}
}

func (r *Runner) wait(ctx context.Context, exec *Exec) {
	err := exec.cmd.Wait()

	exec.mu.Lock()
	exec.endTime = time.Now()
	switch {
	case ctx.Err() != nil:
		exec.state = ExecutionStateCanceled
		exec.err = ctx.Err()
	case err != nil:
		exec.state = ExecutionStateFailed
		exec.err = err
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			exec.exitCode = exitErr.ExitCode()
		}
	default:
		exec.state = ExecutionStateSucceeded
		exec.exitCode = 0
	}
	state := exec.state
	exec.mu.Unlock()

	r.mu.Lock()
	delete(r.running, exec.ID)
	r.mu.Unlock()

	exec.cancel()
	close(exec.done)

	r.logger.WithFields(map[string]any{"task": exec.Task.Name, "id": exec.ID, "state": state}).Info("task finished")
}

// buildCommand creates the command for a task.
func (r *Runner) buildCommand(ctx context.Context, t *Task) (*osexec.Cmd, error) {
	if strings.TrimSpace(t.Command) == "" {
		return nil, ErrEmptyCommand
	}

	var cmd *osexec.Cmd
	switch t.Type {
	case TaskTypeShell:
		line := t.Command
		for _, arg := range t.Args {
			line += " " + shellEscape(arg)
		}
		args := append(append([]string{}, r.config.DefaultShellArgs...), line)
		cmd = osexec.CommandContext(ctx, r.config.DefaultShell, args...)
	default:
		cmd = osexec.CommandContext(ctx, t.Command, t.Args...)
	}

	cmd.Dir = t.Cwd
	cmd.Env = r.buildEnvironment(t)
	cmd.Stdout = r.config.Stdout
	cmd.Stderr = r.config.Stderr

	// Run in its own process group so cancellation reaches child processes.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	return cmd, nil
}

// buildEnvironment creates the environment for a task.
// Precedence (highest to lowest): task.Env > DefaultEnv > os.Environ().
func (r *Runner) buildEnvironment(t *Task) []string {
	env := os.Environ()
	for k, v := range r.config.DefaultEnv {
		env = append(env, k+"="+v)
	}
	for k, v := range t.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// dependencyOrder returns the transitive dependencies of t in run order.
func dependencyOrder(t *Task, all []*Task) ([]*Task, error) {
	if len(t.DependsOn) == 0 {
		return nil, nil
	}

	byName := make(map[string]*Task)
	for _, candidate := range all {
		if sameFolder(candidate, t) {
			byName[candidate.Name] = candidate
		}
	}

	var edges []toposort.Edge
	seen := map[string]bool{t.Name: true}
	queue := []*Task{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, depName := range cur.DependsOn {
			dep, ok := byName[depName]
			if !ok {
				return nil, &DependencyError{Task: cur.Name, Dependency: depName, Err: ErrTaskNotFound}
			}
			edges = append(edges, toposort.Edge{dep.Name, cur.Name})
			if !seen[dep.Name] {
				seen[dep.Name] = true
				queue = append(queue, dep)
			}
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w: %v", t.Name, ErrDependencyCycle, err)
	}

	order := make([]*Task, 0, len(sorted))
	for _, id := range sorted {
		name, ok := id.(string)
		if !ok || name == t.Name {
			continue
		}
		order = append(order, byName[name])
	}
	return order, nil
}

func sameFolder(a, b *Task) bool {
	if a.Folder == nil || b.Folder == nil {
		return a.Folder == nil && b.Folder == nil
	}
	return a.Folder.URI == b.Folder.URI
}

// shellEscape quotes a string for safe use in a POSIX shell.
func shellEscape(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("-_./:=@%+,", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
