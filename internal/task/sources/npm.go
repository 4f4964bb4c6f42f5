package sources

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dshills/tasklaunch/internal/task"
)

// PackageJSONSource discovers npm scripts from package.json files.
type PackageJSONSource struct{}

// NewPackageJSONSource creates a new package.json source.
func NewPackageJSONSource() *PackageJSONSource {
	return &PackageJSONSource{}
}

// Name returns the source name.
func (s *PackageJSONSource) Name() string {
	return "npm"
}

// Patterns returns the file patterns this source handles.
func (s *PackageJSONSource) Patterns() []string {
	return []string{"package.json"}
}

// Priority returns the source priority.
func (s *PackageJSONSource) Priority() int {
	return 90
}

type packageJSON struct {
	Name    string            `json:"name"`
	Scripts map[string]string `json:"scripts"`
}

// Discover finds scripts in a package.json file. Each script's definition is
// {type: "npm", script: <name>}; discovery adds the relative path.
func (s *PackageJSONSource) Discover(ctx context.Context, path string) ([]*task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	manager := detectPackageManager(filepath.Dir(path))

	var tasks []*task.Task
	for name, script := range pkg.Scripts {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		t := &task.Task{
			Name:        name,
			Description: truncate(script, 80),
			Type:        task.TaskTypeNPM,
			Group:       task.InferGroup(name),
			Command:     manager,
			Args:        []string{"run", name},
			Definition: map[string]any{
				"type":   "npm",
				"script": name,
			},
		}
		if name == "start" || name == "dev" {
			t.Group = task.TaskGroupRun
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

// detectPackageManager picks the package manager from lock files.
func detectPackageManager(dir string) string {
	lockFiles := []struct {
		file    string
		manager string
	}{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"bun.lockb", "bun"},
		{"package-lock.json", "npm"},
	}

	for _, lf := range lockFiles {
		if _, err := os.Stat(filepath.Join(dir, lf.file)); err == nil {
			return lf.manager
		}
	}
	return "npm"
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
