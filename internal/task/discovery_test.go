package task

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/tasklaunch/internal/scope"
)

// lineSource reads one task per line from files named "tasks.txt".
type lineSource struct {
	failOn string
}

func (s *lineSource) Name() string       { return "lines" }
func (s *lineSource) Patterns() []string { return []string{"tasks.txt"} }
func (s *lineSource) Priority() int      { return 10 }

func (s *lineSource) Discover(ctx context.Context, path string) ([]*Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if s.failOn != "" && strings.Contains(string(data), s.failOn) {
		return nil, errors.New("bad file")
	}

	var tasks []*Task
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		tasks = append(tasks, &Task{
			Name:       line,
			Type:       TaskTypeShell,
			Command:    "echo " + line,
			Definition: map[string]any{"type": "lines", "task": line},
		})
	}
	return tasks, nil
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscovery_Discover(t *testing.T) {
	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "tasks.txt"), "serve\nbuild\n")
	mustWrite(t, filepath.Join(root, "web", "tasks.txt"), "dev\n")
	mustWrite(t, filepath.Join(root, "node_modules", "pkg", "tasks.txt"), "ignored\n")
	mustWrite(t, filepath.Join(root, "broken", "tasks.txt"), "FAIL\n")

	d := NewDiscovery(&lineSource{failOn: "FAIL"})
	result, err := d.Discover(context.Background(), DefaultDiscoveryOptions(root))
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(result.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(result.Tasks))
	}
	if len(result.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(result.Errors))
	}

	// sorted by name
	if result.Tasks[0].Name != "build" || result.Tasks[1].Name != "dev" || result.Tasks[2].Name != "serve" {
		t.Errorf("unexpected order: %s %s %s", result.Tasks[0].Name, result.Tasks[1].Name, result.Tasks[2].Name)
	}

	dev, ok := result.Find("dev")
	if !ok {
		t.Fatal("Find(dev) failed")
	}
	if dev.ID != "lines:web:dev" {
		t.Errorf("ID = %q", dev.ID)
	}
	if dev.Source != "lines" || dev.Cwd != filepath.Join(root, "web") {
		t.Errorf("Source/Cwd = %q/%q", dev.Source, dev.Cwd)
	}
	if dev.Definition["path"] != "web" {
		t.Errorf("definition path = %v, want web", dev.Definition["path"])
	}

	serve, _ := result.Find("lines:.:serve")
	if serve == nil || serve.Definition["path"] != "." {
		t.Errorf("root task lookup by ID failed: %+v", serve)
	}
}

func TestDiscovery_DiscoverFolders(t *testing.T) {
	a := t.TempDir()
	b := t.TempDir()
	mustWrite(t, filepath.Join(a, "tasks.txt"), "serve\n")
	mustWrite(t, filepath.Join(b, "tasks.txt"), "serve\n")

	folders := []scope.Folder{
		{URI: "file://" + a, Path: a, Name: "a", Index: 0},
		{URI: "file://" + b, Path: b, Name: "b", Index: 1},
	}

	result, err := NewDiscovery(&lineSource{}).DiscoverFolders(context.Background(), folders)
	if err != nil {
		t.Fatalf("DiscoverFolders() error = %v", err)
	}
	if len(result.Tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(result.Tasks))
	}

	seen := map[string]bool{}
	for _, tsk := range result.Tasks {
		if tsk.Folder == nil {
			t.Fatalf("task %s not bound to a folder", tsk.Name)
		}
		seen[tsk.Folder.Name] = true
		f, ok := tsk.Descriptor().Scope().Folder()
		if !ok || f.URI != tsk.Folder.URI {
			t.Errorf("descriptor scope = %v, want folder %s", f, tsk.Folder.URI)
		}
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("folders seen = %v", seen)
	}
}

func TestDiscovery_Sources(t *testing.T) {
	d := NewDiscovery()
	d.RegisterSource(&lineSource{})
	if names := d.Sources(); len(names) != 1 || names[0] != "lines" {
		t.Errorf("Sources() = %v", names)
	}
}
