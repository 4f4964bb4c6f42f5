// Package workspace models the open project: an ordered set of folders,
// the optional .code-workspace file backing it, and the active resource.
package workspace

import (
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/tasklaunch/internal/scope"
)

// Common errors.
var (
	ErrNoFolders       = errors.New("workspace has no folders")
	ErrFolderNotFound  = errors.New("folder not found in workspace")
	ErrFolderExists    = errors.New("folder already in workspace")
	ErrInvalidPath     = errors.New("invalid folder path")
	ErrWorkspaceClosed = errors.New("workspace is closed")
)

// Folder is a workspace folder.
type Folder = scope.Folder

// ChangeEvent represents a workspace change.
type ChangeEvent struct {
	Type    ChangeType
	Folders []Folder
}

// ChangeType indicates the type of workspace change.
type ChangeType int

const (
	// ChangeFolderAdded indicates a folder was added.
	ChangeFolderAdded ChangeType = iota
	// ChangeFolderRemoved indicates a folder was removed.
	ChangeFolderRemoved
	// ChangeActiveResource indicates the active resource moved.
	ChangeActiveResource
)

// Workspace represents a collection of folders being worked on.
// It supports both single-root and multi-root workspaces.
type Workspace struct {
	mu       sync.RWMutex
	folders  []Folder
	filePath string
	active   string
	closed   bool

	onChange []func(ChangeEvent)
}

// New creates a new empty workspace.
func New() *Workspace {
	return &Workspace{
		folders: make([]Folder, 0),
	}
}

// NewFromPaths creates a workspace with one folder per path, in order.
func NewFromPaths(paths ...string) (*Workspace, error) {
	if len(paths) == 0 {
		return nil, ErrNoFolders
	}

	ws := New()
	for _, path := range paths {
		folder, err := newFolder(path, "")
		if err != nil {
			return nil, err
		}
		for _, f := range ws.folders {
			if f.Path == folder.Path {
				return nil, ErrFolderExists
			}
		}
		folder.Index = len(ws.folders)
		ws.folders = append(ws.folders, folder)
	}
	return ws, nil
}

func newFolder(path, name string) (Folder, error) {
	if path == "" {
		return Folder{}, ErrInvalidPath
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Folder{}, err
	}
	if name == "" {
		name = filepath.Base(absPath)
	}
	return Folder{
		Path: absPath,
		URI:  PathToURI(absPath),
		Name: name,
	}, nil
}

// Close closes the workspace.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	w.folders = nil
	w.onChange = nil
}

// FilePath returns the .code-workspace file the workspace was opened
// from, or "" when it was opened from folders.
func (w *Workspace) FilePath() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.filePath
}

// Folders returns all workspace folders in order.
func (w *Workspace) Folders() []Folder {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]Folder, len(w.folders))
	copy(result, w.folders)
	return result
}

// FolderCount returns the number of folders in the workspace.
func (w *Workspace) FolderCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.folders)
}

// IsMultiRoot returns true if the workspace has more than one folder.
func (w *Workspace) IsMultiRoot() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.folders) > 1
}

// AddFolder appends a folder to the workspace.
func (w *Workspace) AddFolder(path string) (Folder, error) {
	folder, err := newFolder(path, "")
	if err != nil {
		return Folder{}, err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return Folder{}, ErrWorkspaceClosed
	}
	for _, f := range w.folders {
		if f.Path == folder.Path {
			w.mu.Unlock()
			return Folder{}, ErrFolderExists
		}
	}
	folder.Index = len(w.folders)
	w.folders = append(w.folders, folder)
	callbacks := w.callbacks()
	w.mu.Unlock()

	notify(callbacks, ChangeEvent{Type: ChangeFolderAdded, Folders: []Folder{folder}})
	return folder, nil
}

// RemoveFolder removes a folder from the workspace. Later folders move up
// one index.
func (w *Workspace) RemoveFolder(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWorkspaceClosed
	}

	idx := -1
	for i, f := range w.folders {
		if f.Path == absPath {
			idx = i
			break
		}
	}
	if idx == -1 {
		w.mu.Unlock()
		return ErrFolderNotFound
	}

	removed := w.folders[idx]
	w.folders = append(w.folders[:idx], w.folders[idx+1:]...)
	for i := range w.folders {
		w.folders[i].Index = i
	}
	callbacks := w.callbacks()
	w.mu.Unlock()

	notify(callbacks, ChangeEvent{Type: ChangeFolderRemoved, Folders: []Folder{removed}})
	return nil
}

// GetFolderByURI returns the folder with the given URI.
func (w *Workspace) GetFolderByURI(uri string) (Folder, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, f := range w.folders {
		if f.URI == uri {
			return f, true
		}
	}
	return Folder{}, false
}

// ContainingFolder returns the workspace folder that contains path. When
// folders nest, the innermost one wins.
func (w *Workspace) ContainingFolder(path string) (Folder, bool) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Folder{}, false
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.containing(absPath)
}

func (w *Workspace) containing(absPath string) (Folder, bool) {
	var best Folder
	found := false
	for _, f := range w.folders {
		if isSubPath(f.Path, absPath) && (!found || len(f.Path) > len(best.Path)) {
			best = f
			found = true
		}
	}
	return best, found
}

// RelativePath returns the path relative to its containing workspace folder.
func (w *Workspace) RelativePath(path string) (string, error) {
	folder, ok := w.ContainingFolder(path)
	if !ok {
		return "", ErrFolderNotFound
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(folder.Path, absPath)
}

// SetActiveResource records the file or directory the user is working in.
// An empty path clears it.
func (w *Workspace) SetActiveResource(path string) error {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = absPath
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWorkspaceClosed
	}
	if w.active == path {
		w.mu.Unlock()
		return nil
	}
	w.active = path
	var folders []Folder
	if f, ok := w.containing(path); ok && path != "" {
		folders = []Folder{f}
	}
	callbacks := w.callbacks()
	w.mu.Unlock()

	notify(callbacks, ChangeEvent{Type: ChangeActiveResource, Folders: folders})
	return nil
}

// ActiveResource returns the active resource path, or "".
func (w *Workspace) ActiveResource() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.active
}

// ActiveFolder returns the folder containing the active resource.
func (w *Workspace) ActiveFolder() (Folder, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.active == "" {
		return Folder{}, false
	}
	return w.containing(w.active)
}

// OnChange registers a callback for any workspace change.
func (w *Workspace) OnChange(fn func(ChangeEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// callbacks copies the change callbacks; callers hold w.mu.
func (w *Workspace) callbacks() []func(ChangeEvent) {
	cbs := make([]func(ChangeEvent), len(w.onChange))
	copy(cbs, w.onChange)
	return cbs
}

func notify(callbacks []func(ChangeEvent), event ChangeEvent) {
	for _, cb := range callbacks {
		cb(event)
	}
}

// PathToURI converts a file path to a file:// URI.
func PathToURI(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}

// URIToPath converts a file:// URI to a file path.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", ErrInvalidPath
	}

	path := filepath.FromSlash(u.Path)

	// On Windows, remove leading slash if path starts with drive letter
	if len(path) >= 3 && path[0] == '/' && path[2] == ':' {
		path = path[1:]
	}
	return path, nil
}

// isSubPath checks if child is parent or lies below it.
func isSubPath(parent, child string) bool {
	parent = filepath.Clean(parent)
	child = filepath.Clean(child)
	if child == parent {
		return true
	}
	if !strings.HasSuffix(parent, string(filepath.Separator)) {
		parent += string(filepath.Separator)
	}
	return strings.HasPrefix(child, parent)
}
