package task

import (
	"errors"
	"fmt"
)

// Errors returned by the runner and discovery.
var (
	// ErrRunnerClosed indicates the runner has been shut down.
	ErrRunnerClosed = errors.New("runner closed")

	// ErrEmptyCommand indicates a task has nothing to execute.
	ErrEmptyCommand = errors.New("empty command")

	// ErrTaskNotFound indicates a named task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDependencyCycle indicates tasks depend on each other.
	ErrDependencyCycle = errors.New("dependency cycle")
)

// DiscoveryError represents an error during discovery.
type DiscoveryError struct {
	Source string
	File   string
	Err    error
}

func (e DiscoveryError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.File, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e DiscoveryError) Unwrap() error {
	return e.Err
}

// DependencyError reports a dependency that failed or could not run.
type DependencyError struct {
	Task       string
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("task %s: dependency %s: %v", e.Task, e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}
