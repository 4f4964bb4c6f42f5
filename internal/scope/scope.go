// Package scope models where a task runs and where its settings are read from.
//
// A task executes in one of three scopes: the global scope, the workspace
// scope, or a specific workspace folder. Settings are resolved for a
// ConfigScope, which is either a folder or the shared workspace level.
package scope

import "fmt"

// GlobalKey is the scope key shared by the global and workspace scopes.
const GlobalKey = "global"

// Kind identifies the variant of a Scope.
type Kind uint8

const (
	// KindGlobal is a task not bound to the workspace.
	KindGlobal Kind = iota
	// KindWorkspace is a task bound to the workspace as a whole.
	KindWorkspace
	// KindFolder is a task bound to a single workspace folder.
	KindFolder
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindWorkspace:
		return "workspace"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Folder is a workspace folder.
type Folder struct {
	// URI is the stable, unique location of the folder (file://...).
	URI string
	// Path is the local file system path.
	Path string
	// Name is the display name.
	Name string
	// Index is the folder's position in the workspace.
	Index int
}

// Scope is the execution scope of a task.
type Scope struct {
	kind   Kind
	folder Folder
}

// Global returns the global scope.
func Global() Scope { return Scope{kind: KindGlobal} }

// Workspace returns the workspace scope.
func Workspace() Scope { return Scope{kind: KindWorkspace} }

// InFolder returns the scope of a workspace folder.
func InFolder(f Folder) Scope { return Scope{kind: KindFolder, folder: f} }

// Kind returns the scope variant.
func (s Scope) Kind() Kind { return s.kind }

// IsFolder reports whether the scope is a folder scope.
func (s Scope) IsFolder() bool { return s.kind == KindFolder }

// Folder returns the folder of a folder scope.
func (s Scope) Folder() (Folder, bool) {
	if s.kind != KindFolder {
		return Folder{}, false
	}
	return s.folder, true
}

// String returns a human-readable scope description.
func (s Scope) String() string {
	if s.kind == KindFolder {
		return fmt.Sprintf("folder(%s)", s.folder.URI)
	}
	return s.kind.String()
}

// Value returns the scope as a plain value for structural matching.
// Global and workspace scopes become strings; a folder becomes a map.
func (s Scope) Value() any {
	if s.kind != KindFolder {
		return s.kind.String()
	}
	return map[string]any{
		"uri":   s.folder.URI,
		"name":  s.folder.Name,
		"index": s.folder.Index,
	}
}

// Key returns the occurrence-counter key for a scope.
// Global and workspace scopes share GlobalKey; each folder keys by its URI.
func Key(s Scope) string {
	if s.kind == KindFolder {
		return s.folder.URI
	}
	return GlobalKey
}

// ConfigScope is the scope settings are resolved for.
// A nil Folder means the shared workspace level.
type ConfigScope struct {
	Folder *Folder
}

// WorkspaceLevel returns the shared workspace-level config scope.
func WorkspaceLevel() ConfigScope { return ConfigScope{} }

// ForFolder returns the config scope of a folder.
func ForFolder(f Folder) ConfigScope {
	return ConfigScope{Folder: &f}
}

// FolderURI returns the folder URI, or "" at the workspace level.
func (c ConfigScope) FolderURI() string {
	if c.Folder == nil {
		return ""
	}
	return c.Folder.URI
}

// String returns a human-readable description.
func (c ConfigScope) String() string {
	if c.Folder == nil {
		return "workspace"
	}
	return c.Folder.Name
}
