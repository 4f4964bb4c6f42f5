// Package loader reads settings files into nested maps.
//
// TOML, YAML and JSON (with comments and trailing commas) are supported,
// chosen by file extension. Environment variables load through EnvLoader.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Loader is the interface for settings loaders.
type Loader interface {
	// Load reads settings from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileSystem is an abstraction for file system operations.
type FileSystem interface {
	fs.FS
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// Open implements fs.FS.
func (OSFS) Open(name string) (fs.File, error) {
	return os.Open(name)
}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// Extensions lists the settings file extensions in lookup order.
var Extensions = []string{".toml", ".yaml", ".yml", ".json"}

// ForPath returns a loader for path chosen by its extension.
func ForPath(fsys FileSystem, path string) (Loader, error) {
	if fsys == nil {
		fsys = DefaultFS()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return newTOMLLoader(fsys, path), nil
	case ".yaml", ".yml":
		return newYAMLLoader(fsys, path), nil
	case ".json", ".code-workspace":
		return newJSONLoader(fsys, path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// FindFile returns the first existing file named base plus one of the
// supported extensions inside dir.
func FindFile(fsys FileSystem, dir, base string) (string, bool) {
	if fsys == nil {
		fsys = DefaultFS()
	}
	for _, ext := range Extensions {
		path := filepath.Join(dir, base+ext)
		if info, err := fsys.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func readFile(fsys FileSystem, path string) ([]byte, bool, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return data, true, nil
}

// normalize converts decoder-specific containers into map[string]any and
// []any so every format yields the same value tree.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
