package task

import "github.com/dshills/tasklaunch/internal/scope"

// Execution describes how a task runs.
type Execution interface {
	// Kind names the execution variant ("shell", "process", "custom").
	Kind() string
	// Value returns the execution as a plain value tree.
	Value() map[string]any
}

// ShellExecution runs a command line through the shell.
type ShellExecution struct {
	CommandLine string
	Cwd         string
}

// Kind returns "shell".
func (ShellExecution) Kind() string { return "shell" }

// Value returns the execution as a plain value tree.
func (e ShellExecution) Value() map[string]any {
	v := map[string]any{
		"kind":        e.Kind(),
		"commandLine": e.CommandLine,
	}
	if e.Cwd != "" {
		v["cwd"] = e.Cwd
	}
	return v
}

// ProcessExecution runs a process directly.
type ProcessExecution struct {
	Process string
	Args    []string
	Cwd     string
}

// Kind returns "process".
func (ProcessExecution) Kind() string { return "process" }

// Value returns the execution as a plain value tree.
func (e ProcessExecution) Value() map[string]any {
	args := make([]any, len(e.Args))
	for i, a := range e.Args {
		args[i] = a
	}
	v := map[string]any{
		"kind":    e.Kind(),
		"process": e.Process,
		"args":    args,
	}
	if e.Cwd != "" {
		v["cwd"] = e.Cwd
	}
	return v
}

// CustomExecution is a task run by something other than a process.
type CustomExecution struct{}

// Kind returns "custom".
func (CustomExecution) Kind() string { return "custom" }

// Value returns the execution as a plain value tree.
func (e CustomExecution) Value() map[string]any {
	return map[string]any{"kind": e.Kind()}
}

// Descriptor is an observed task execution. It is immutable: accessors
// return copies of any mutable state.
type Descriptor struct {
	id         string
	name       string
	source     string
	definition map[string]any
	execution  Execution
	scope      scope.Scope
}

// NewDescriptor creates a descriptor. The definition is deep-copied.
func NewDescriptor(name, source string, definition map[string]any, exec Execution, s scope.Scope) Descriptor {
	if exec == nil {
		exec = CustomExecution{}
	}
	return Descriptor{
		name:       name,
		source:     source,
		definition: cloneMap(definition),
		execution:  exec,
		scope:      s,
	}
}

// WithID returns a copy of the descriptor carrying an execution ID.
func (d Descriptor) WithID(id string) Descriptor {
	d.id = id
	return d
}

// ID returns the execution ID, if one was assigned.
func (d Descriptor) ID() string { return d.id }

// Name returns the display name.
func (d Descriptor) Name() string { return d.name }

// Source returns the source label (e.g. "npm", "taskfile").
func (d Descriptor) Source() string { return d.source }

// Definition returns a copy of the task definition.
func (d Descriptor) Definition() map[string]any { return cloneMap(d.definition) }

// Execution returns the execution descriptor.
func (d Descriptor) Execution() Execution { return d.execution }

// Scope returns the execution scope.
func (d Descriptor) Scope() scope.Scope { return d.scope }

// Fields serializes the descriptor field by field into a plain value tree
// suitable for structural matching.
func (d Descriptor) Fields() map[string]any {
	def := cloneMap(d.definition)
	if def == nil {
		def = map[string]any{}
	}
	fields := map[string]any{
		"definition": def,
		"name":       d.name,
		"source":     d.source,
		"scope":      d.scope.Value(),
	}
	if d.execution != nil {
		fields["execution"] = d.execution.Value()
	}
	return fields
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = e
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
