// Package sources provides task discovery sources for common build files.
package sources

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"

	"github.com/dshills/tasklaunch/internal/task"
)

var (
	targetPattern       = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_-]*)\s*:(?:[^=]|$)`)
	phonyCapturePattern = regexp.MustCompile(`^\.PHONY\s*:\s*(.+)$`)
	commentPattern      = regexp.MustCompile(`^##\s*(.*)$`)
)

// MakefileSource discovers tasks from Makefiles.
type MakefileSource struct{}

// NewMakefileSource creates a new Makefile source.
func NewMakefileSource() *MakefileSource {
	return &MakefileSource{}
}

// Name returns the source name.
func (s *MakefileSource) Name() string {
	return "make"
}

// Patterns returns the file patterns this source handles.
func (s *MakefileSource) Patterns() []string {
	return []string{
		"Makefile",
		"makefile",
		"GNUmakefile",
	}
}

// Priority returns the source priority.
func (s *MakefileSource) Priority() int {
	return 100
}

// Discover finds targets in a Makefile. When the file declares .PHONY
// targets only those are returned. Each definition is {type: "make", target}.
func (s *MakefileSource) Discover(ctx context.Context, path string) ([]*task.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")

	phonyTargets := make(map[string]bool)
	for _, line := range lines {
		if matches := phonyCapturePattern.FindStringSubmatch(line); matches != nil {
			for _, target := range strings.Fields(matches[1]) {
				phonyTargets[target] = true
			}
		}
	}

	var tasks []*task.Task
	var currentComment string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line := scanner.Text()

		if matches := commentPattern.FindStringSubmatch(line); matches != nil {
			currentComment = matches[1]
			continue
		}

		matches := targetPattern.FindStringSubmatch(line)
		if matches == nil {
			if !strings.HasPrefix(line, "#") && strings.TrimSpace(line) != "" {
				currentComment = ""
			}
			continue
		}

		name := matches[1]
		include := !strings.HasPrefix(name, "_") && !seen[name] &&
			(len(phonyTargets) == 0 || phonyTargets[name])
		if include {
			seen[name] = true
			tasks = append(tasks, &task.Task{
				Name:        name,
				Description: currentComment,
				Type:        task.TaskTypeMake,
				Group:       task.InferGroup(name),
				Command:     "make",
				Args:        []string{name},
				Definition: map[string]any{
					"type":   "make",
					"target": name,
				},
			})
		}
		currentComment = ""
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}
