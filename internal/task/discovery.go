package task

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/dshills/tasklaunch/internal/scope"
)

// maxConcurrentDiscovery limits the number of concurrent file discoveries.
var maxConcurrentDiscovery = runtime.GOMAXPROCS(0) * 2

// DiscoveryOptions configures task discovery.
type DiscoveryOptions struct {
	// RootDir is the root directory to search from.
	RootDir string

	// Folder binds discovered tasks to a workspace folder. Optional.
	Folder *scope.Folder

	// MaxDepth is the maximum directory depth to search (0 = root only).
	MaxDepth int

	// ExcludeDirs are directory names to exclude.
	ExcludeDirs []string

	// Timeout is the discovery timeout.
	Timeout time.Duration
}

// DefaultDiscoveryOptions returns sensible default options.
func DefaultDiscoveryOptions(rootDir string) DiscoveryOptions {
	return DiscoveryOptions{
		RootDir:  rootDir,
		MaxDepth: 3,
		ExcludeDirs: []string{
			"node_modules",
			".git",
			"vendor",
			".venv",
			"dist",
			"build",
			".cache",
		},
		Timeout: 30 * time.Second,
	}
}

// DiscoveryResult contains the results of task discovery.
type DiscoveryResult struct {
	// Tasks is the list of discovered tasks.
	Tasks []*Task

	// Errors contains any errors during discovery.
	Errors []DiscoveryError

	// Duration is how long discovery took.
	Duration time.Duration
}

// Find returns the task with the given ID or name. IDs are tried first.
func (r *DiscoveryResult) Find(ref string) (*Task, bool) {
	for _, t := range r.Tasks {
		if t.ID == ref {
			return t, true
		}
	}
	for _, t := range r.Tasks {
		if t.Name == ref {
			return t, true
		}
	}
	return nil, false
}

// Discovery manages task discovery from multiple sources.
type Discovery struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewDiscovery creates a new task discovery manager.
func NewDiscovery(sources ...Source) *Discovery {
	d := &Discovery{sources: make(map[string]Source)}
	for _, s := range sources {
		d.RegisterSource(s)
	}
	return d
}

// RegisterSource registers a task source.
func (d *Discovery) RegisterSource(source Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sources[source.Name()] = source
}

// Sources returns all registered source names.
func (d *Discovery) Sources() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.sources))
	for name := range d.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DiscoverFolders discovers tasks in every folder, binding each task to
// the folder it was found in.
func (d *Discovery) DiscoverFolders(ctx context.Context, folders []scope.Folder) (*DiscoveryResult, error) {
	start := time.Now()
	combined := &DiscoveryResult{}

	for i := range folders {
		f := folders[i]
		opts := DefaultDiscoveryOptions(f.Path)
		opts.Folder = &f

		result, err := d.Discover(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("discover %s: %w", f.Name, err)
		}
		combined.Tasks = append(combined.Tasks, result.Tasks...)
		combined.Errors = append(combined.Errors, result.Errors...)
	}

	combined.Duration = time.Since(start)
	return combined, nil
}

// Discover finds tasks in the given root directory.
func (d *Discovery) Discover(ctx context.Context, opts DiscoveryOptions) (*DiscoveryResult, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()

	patternMap := make(map[string][]Source)
	d.mu.RLock()
	for _, src := range d.sources {
		for _, pattern := range src.Patterns() {
			patternMap[pattern] = append(patternMap[pattern], src)
		}
	}
	d.mu.RUnlock()

	files, err := findFiles(opts, patternMap)
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}

	result := &DiscoveryResult{
		Tasks:  make([]*Task, 0),
		Errors: make([]DiscoveryError, 0),
	}

	var wg sync.WaitGroup
	var resultMu sync.Mutex
	sem := make(chan struct{}, maxConcurrentDiscovery)

	for filePath, fileSources := range files {
		sort.Slice(fileSources, func(i, j int) bool {
			return fileSources[i].Priority() > fileSources[j].Priority()
		})

		// The highest priority source owns the file.
		src := fileSources[0]
		file := filePath

		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			tasks, err := src.Discover(ctx, file)
			resultMu.Lock()
			defer resultMu.Unlock()

			if err != nil {
				result.Errors = append(result.Errors, DiscoveryError{
					Source: src.Name(),
					File:   file,
					Err:    err,
				})
				return
			}

			for _, t := range tasks {
				bindTask(t, opts, src.Name(), file)
				result.Tasks = append(result.Tasks, t)
			}
		}()
	}

	wg.Wait()

	sort.Slice(result.Tasks, func(i, j int) bool {
		if result.Tasks[i].Name != result.Tasks[j].Name {
			return result.Tasks[i].Name < result.Tasks[j].Name
		}
		return result.Tasks[i].ID < result.Tasks[j].ID
	})
	result.Duration = time.Since(start)

	return result, nil
}

// bindTask fills in the fields discovery owns.
func bindTask(t *Task, opts DiscoveryOptions, source, file string) {
	t.Source = source
	if t.SourceFile == "" {
		t.SourceFile = file
	}
	if t.Cwd == "" {
		t.Cwd = filepath.Dir(file)
	}
	t.Folder = opts.Folder

	rel, err := filepath.Rel(opts.RootDir, filepath.Dir(file))
	if err != nil {
		rel = filepath.Dir(file)
	}
	rel = filepath.ToSlash(rel)

	if t.ID == "" {
		t.ID = fmt.Sprintf("%s:%s:%s", source, rel, t.Name)
	}
	if t.Definition != nil {
		if _, ok := t.Definition["path"]; !ok {
			t.Definition["path"] = rel
		}
	}
}

// findFiles finds files matching the source patterns.
func findFiles(opts DiscoveryOptions, patternMap map[string][]Source) (map[string][]Source, error) {
	result := make(map[string][]Source)

	excludeSet := make(map[string]bool)
	for _, dir := range opts.ExcludeDirs {
		excludeSet[dir] = true
	}

	err := walkDir(opts.RootDir, opts.MaxDepth, excludeSet, func(path string) {
		name := filepath.Base(path)
		for pattern, sources := range patternMap {
			if matched, err := filepath.Match(pattern, name); err == nil && matched {
				result[path] = append(result[path], sources...)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// walkDir walks a directory tree up to maxDepth, skipping symlink cycles.
func walkDir(root string, maxDepth int, excludeSet map[string]bool, fn func(path string)) error {
	visited := make(map[string]bool)

	rootReal, err := filepath.EvalSymlinks(filepath.Clean(root))
	if err != nil {
		rootReal = filepath.Clean(root)
	}
	visited[rootReal] = true

	return walkDirRecursive(root, 0, maxDepth, excludeSet, visited, fn)
}

func walkDirRecursive(dir string, depth, maxDepth int, excludeSet, visited map[string]bool, fn func(path string)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		entryPath := filepath.Join(dir, name)

		if !entry.IsDir() {
			fn(entryPath)
			continue
		}
		if excludeSet[name] || depth >= maxDepth {
			continue
		}

		realPath, err := filepath.EvalSymlinks(entryPath)
		if err != nil || visited[realPath] {
			continue
		}
		visited[realPath] = true

		if err := walkDirRecursive(entryPath, depth+1, maxDepth, excludeSet, visited, fn); err != nil {
			return err
		}
	}

	return nil
}
