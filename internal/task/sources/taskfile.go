package sources

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dshills/tasklaunch/internal/task"
)

// TaskfileSource discovers tasks from Taskfile.yml (go-task).
type TaskfileSource struct{}

// NewTaskfileSource creates a new Taskfile source.
func NewTaskfileSource() *TaskfileSource {
	return &TaskfileSource{}
}

// Name returns the source name.
func (s *TaskfileSource) Name() string {
	return "taskfile"
}

// Patterns returns the file patterns this source handles.
func (s *TaskfileSource) Patterns() []string {
	return []string{
		"Taskfile.yml",
		"Taskfile.yaml",
		"taskfile.yml",
		"taskfile.yaml",
	}
}

// Priority returns the source priority.
func (s *TaskfileSource) Priority() int {
	return 95
}

// Taskfile represents the structure of a Taskfile.
type Taskfile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]TaskfileDef `yaml:"tasks"`
	Env     map[string]string      `yaml:"env"`
}

// TaskfileDef represents a task definition in a Taskfile.
type TaskfileDef struct {
	Desc     string            `yaml:"desc"`
	Summary  string            `yaml:"summary"`
	Deps     []any             `yaml:"deps"`
	Dir      string            `yaml:"dir"`
	Env      map[string]string `yaml:"env"`
	Internal bool              `yaml:"internal"`
}

// Discover finds tasks in a Taskfile. Each task's definition is
// {type: "taskfile", task: <name>}.
func (s *TaskfileSource) Discover(ctx context.Context, path string) ([]*task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tf Taskfile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, err
	}

	var tasks []*task.Task
	for name, def := range tf.Tasks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if def.Internal {
			continue
		}

		cwd := def.Dir
		if cwd != "" && !filepath.IsAbs(cwd) {
			cwd = filepath.Join(filepath.Dir(path), cwd)
		}

		t := &task.Task{
			Name:        name,
			Description: description(def),
			Type:        task.TaskTypeProcess,
			Group:       task.InferGroup(name),
			Command:     "task",
			Args:        []string{name},
			Env:         mergeEnv(tf.Env, def.Env),
			Cwd:         cwd,
			DependsOn:   extractDeps(def.Deps),
			Definition: map[string]any{
				"type": "taskfile",
				"task": name,
			},
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

func description(def TaskfileDef) string {
	if def.Desc != "" {
		return def.Desc
	}
	return truncate(def.Summary, 80)
}

func mergeEnv(global, local map[string]string) map[string]string {
	if len(global) == 0 && len(local) == 0 {
		return nil
	}

	result := make(map[string]string, len(global)+len(local))
	for k, v := range global {
		result[k] = v
	}
	for k, v := range local {
		result[k] = v
	}
	return result
}

// extractDeps extracts dependency task names. Dependencies are either plain
// names or objects with a "task" key.
func extractDeps(deps []any) []string {
	var result []string
	for _, dep := range deps {
		switch d := dep.(type) {
		case string:
			result = append(result, d)
		case map[string]any:
			if name, ok := d["task"].(string); ok {
				result = append(result, name)
			}
		}
	}
	return result
}
