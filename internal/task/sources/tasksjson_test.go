package sources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dshills/tasklaunch/internal/task"
)

func TestTasksJSONSource_Discover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, TasksDir, "tasks.json")
	writeFile(t, path, `{
  "version": "2.0.0",
  "tasks": [
    {
      "label": "api",
      "type": "shell",
      "command": "go run ./cmd/api",
      "service": "api",
      "ports": [8080],
      "problemMatcher": []
    },
    {
      "type": "npm",
      "script": "start"
    },
    {
      "label": "worker",
      "type": "process",
      "command": "./worker",
      "args": ["--once"],
      "options": {"cwd": "/srv"}
    }
  ]
}`)

	tasks, err := NewTasksJSONSource().Discover(context.Background(), path)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	m := byName(tasks)
	if len(m) != 3 {
		t.Fatalf("got %d tasks, want 3", len(m))
	}

	api := m["api"]
	if api.Type != task.TaskTypeShell {
		t.Errorf("api Type = %q", api.Type)
	}
	if api.Cwd != dir {
		t.Errorf("api Cwd = %q, want %q", api.Cwd, dir)
	}
	if api.Definition["service"] != "api" || api.Definition["type"] != "shell" {
		t.Errorf("api Definition = %v", api.Definition)
	}
	for _, k := range []string{"label", "command", "problemMatcher"} {
		if _, ok := api.Definition[k]; ok {
			t.Errorf("api Definition should not contain %q", k)
		}
	}

	start := m["start"]
	if start == nil {
		t.Fatal("npm entry without label should be named after its script")
	}
	if start.Command != "npm" || len(start.Args) != 2 || start.Args[1] != "start" {
		t.Errorf("start command = %q %v", start.Command, start.Args)
	}

	worker := m["worker"]
	if worker.Type != task.TaskTypeProcess || worker.Cwd != "/srv" {
		t.Errorf("worker = %+v", worker)
	}
}

func TestTasksJSONSource_IgnoresOtherDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	writeFile(t, path, `{"tasks": [{"label": "x", "command": "true"}]}`)

	tasks, err := NewTasksJSONSource().Discover(context.Background(), path)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("got %d tasks, want 0 outside %s", len(tasks), TasksDir)
	}
}
