package task

import (
	"context"
	"strings"

	"github.com/dshills/tasklaunch/internal/scope"
)

// TaskType identifies how a task is executed.
type TaskType string

const (
	// TaskTypeShell is a shell command task.
	TaskTypeShell TaskType = "shell"
	// TaskTypeProcess is a process-based task.
	TaskTypeProcess TaskType = "process"
	// TaskTypeNPM is an npm script task.
	TaskTypeNPM TaskType = "npm"
	// TaskTypeMake is a make target task.
	TaskTypeMake TaskType = "make"
)

// TaskGroup categorizes tasks.
type TaskGroup string

const (
	// TaskGroupBuild contains build-related tasks.
	TaskGroupBuild TaskGroup = "build"
	// TaskGroupTest contains test-related tasks.
	TaskGroupTest TaskGroup = "test"
	// TaskGroupRun contains run/start tasks.
	TaskGroupRun TaskGroup = "run"
	// TaskGroupClean contains cleanup tasks.
	TaskGroupClean TaskGroup = "clean"
	// TaskGroupOther contains uncategorized tasks.
	TaskGroupOther TaskGroup = "other"
)

// Task is a discovered task that can be executed.
type Task struct {
	// ID is a unique identifier for the task within its workspace.
	ID string `json:"id"`

	// Name is the display name of the task.
	Name string `json:"name"`

	// Description is a human-readable description.
	Description string `json:"description,omitempty"`

	// Source identifies where this task was discovered from.
	Source string `json:"source"`

	// SourceFile is the file path where the task was found.
	SourceFile string `json:"sourceFile,omitempty"`

	// Type is the task type.
	Type TaskType `json:"type"`

	// Group is the task category.
	Group TaskGroup `json:"group"`

	// Command is the command to execute.
	Command string `json:"command"`

	// Args are the command arguments.
	Args []string `json:"args,omitempty"`

	// Cwd is the working directory for the task.
	Cwd string `json:"cwd,omitempty"`

	// Env are environment variables for the task.
	Env map[string]string `json:"env,omitempty"`

	// DependsOn lists names of tasks in the same folder that run first.
	DependsOn []string `json:"dependsOn,omitempty"`

	// Definition is the structured definition criteria are matched against.
	Definition map[string]any `json:"definition,omitempty"`

	// Folder is the workspace folder the task belongs to, if any.
	Folder *scope.Folder `json:"-"`
}

// Scope returns the execution scope of the task.
func (t *Task) Scope() scope.Scope {
	if t.Folder != nil {
		return scope.InFolder(*t.Folder)
	}
	return scope.Workspace()
}

// Descriptor returns the observed form of the task.
func (t *Task) Descriptor() Descriptor {
	def := t.Definition
	if def == nil {
		def = map[string]any{
			"type": string(t.Type),
			"task": t.Name,
		}
	}

	var exec Execution
	switch t.Type {
	case TaskTypeShell:
		line := t.Command
		if len(t.Args) > 0 {
			line += " " + strings.Join(t.Args, " ")
		}
		exec = ShellExecution{CommandLine: line, Cwd: t.Cwd}
	default:
		exec = ProcessExecution{Process: t.Command, Args: t.Args, Cwd: t.Cwd}
	}

	return NewDescriptor(t.Name, t.Source, def, exec, t.Scope())
}

// Source discovers tasks from files of a given kind.
type Source interface {
	// Name returns the source name (e.g., "npm", "taskfile").
	Name() string

	// Patterns returns glob patterns for files this source handles.
	Patterns() []string

	// Priority returns the source priority (higher = more important).
	Priority() int

	// Discover finds tasks in the given file.
	Discover(ctx context.Context, path string) ([]*Task, error)
}

// InferGroup infers the task group from the task name.
func InferGroup(name string) TaskGroup {
	groups := []struct {
		group    TaskGroup
		patterns []string
	}{
		{TaskGroupBuild, []string{"build", "compile", "package", "bundle", "webpack", "rollup", "esbuild"}},
		{TaskGroupTest, []string{"test", "spec", "check", "verify", "coverage"}},
		{TaskGroupRun, []string{"run", "start", "serve", "dev", "watch", "develop"}},
		{TaskGroupClean, []string{"clean", "clear", "purge", "reset"}},
	}

	lowerName := strings.ToLower(name)
	for _, g := range groups {
		for _, pattern := range g.patterns {
			if strings.Contains(lowerName, pattern) {
				return g.group
			}
		}
	}
	return TaskGroupOther
}
