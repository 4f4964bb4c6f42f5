package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dshills/tasklaunch/internal/task"
)

// TasksDir is the per-folder directory holding tasks.json.
const TasksDir = ".tasklaunch"

// TasksJSONSource discovers hand-written tasks from .tasklaunch/tasks.json.
type TasksJSONSource struct{}

// NewTasksJSONSource creates a new tasks.json source.
func NewTasksJSONSource() *TasksJSONSource {
	return &TasksJSONSource{}
}

// Name returns the source name.
func (s *TasksJSONSource) Name() string {
	return "workspace"
}

// Patterns returns the file patterns this source handles.
func (s *TasksJSONSource) Patterns() []string {
	return []string{"tasks.json"}
}

// Priority returns the source priority (highest for hand-written tasks).
func (s *TasksJSONSource) Priority() int {
	return 200
}

// TasksFile represents the structure of a tasks.json file.
type TasksFile struct {
	Version string            `json:"version"`
	Tasks   []json.RawMessage `json:"tasks"`
}

// TaskEntry holds the fields of a tasks.json entry that drive execution.
type TaskEntry struct {
	Label     string   `json:"label"`
	Type      string   `json:"type"`
	Command   string   `json:"command"`
	Args      []string `json:"args,omitempty"`
	Script    string   `json:"script,omitempty"`
	DependsOn []string `json:"dependsOn,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	Options   struct {
		Cwd string            `json:"cwd,omitempty"`
		Env map[string]string `json:"env,omitempty"`
	} `json:"options,omitempty"`
}

// executionKeys are entry keys that describe how to run the task rather
// than what it is; they are left out of the definition.
var executionKeys = []string{"label", "command", "args", "options", "dependsOn", "detail", "group", "problemMatcher", "presentation"}

// Discover finds tasks in a tasks.json file. The definition of each task is
// the entry itself minus execution keys, so custom properties can be used in
// criteria.
func (s *TasksJSONSource) Discover(ctx context.Context, path string) ([]*task.Task, error) {
	if filepath.Base(filepath.Dir(path)) != TasksDir {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf TasksFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	var tasks []*task.Task
	for _, raw := range tf.Tasks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var entry TaskEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, err
		}
		var def map[string]any
		if err := json.Unmarshal(raw, &def); err != nil {
			return nil, err
		}
		for _, k := range executionKeys {
			delete(def, k)
		}

		t := &task.Task{
			Name:        entry.Label,
			Description: entry.Detail,
			Group:       task.InferGroup(entry.Label),
			Command:     entry.Command,
			Args:        entry.Args,
			Cwd:         entry.Options.Cwd,
			Env:         entry.Options.Env,
			DependsOn:   entry.DependsOn,
			Definition:  def,
		}

		switch entry.Type {
		case "process":
			t.Type = task.TaskTypeProcess
		case "npm":
			t.Type = task.TaskTypeNPM
			if t.Command == "" && entry.Script != "" {
				t.Command = detectPackageManager(filepath.Dir(filepath.Dir(path)))
				t.Args = []string{"run", entry.Script}
			}
		default:
			t.Type = task.TaskTypeShell
		}
		if t.Cwd == "" {
			t.Cwd = filepath.Dir(filepath.Dir(path))
		}
		if t.Name == "" {
			t.Name = entry.Script
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}
