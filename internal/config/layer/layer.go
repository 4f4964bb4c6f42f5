// Package layer provides prioritized settings layers.
//
// Each layer holds a nested map loaded from one settings source. Layers
// from higher priority sources override values from lower ones.
package layer

// Source indicates where a settings layer came from. Sources are ordered
// by priority, lowest first.
type Source uint8

const (
	// SourceBuiltin represents built-in defaults.
	SourceBuiltin Source = iota
	// SourceUserGlobal represents the user settings file.
	SourceUserGlobal
	// SourceWorkspace represents the settings of a .code-workspace file.
	SourceWorkspace
	// SourceEnv represents environment variables.
	SourceEnv
	// SourceFolder represents a workspace folder's own settings. Folder
	// layers are kept apart from the shared stack.
	SourceFolder
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceUserGlobal:
		return "user"
	case SourceWorkspace:
		return "workspace"
	case SourceEnv:
		return "environment"
	case SourceFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Layer is the settings read from one source.
type Layer struct {
	Source Source

	// Path is the file the layer was loaded from, empty when it did not
	// come from a file.
	Path string

	// Data holds the settings values as a nested map. Never nil.
	Data map[string]any
}

// New creates a layer. Dotted top-level keys in data are expanded.
func New(source Source, path string, data map[string]any) *Layer {
	data = Expand(data)
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{Source: source, Path: path, Data: data}
}

// Get returns a copy of the value at a dot-separated path.
func (l *Layer) Get(path string) (any, bool) {
	val, ok := GetByPath(l.Data, path)
	if !ok {
		return nil, false
	}
	return Clone(val), true
}

// Clone returns a deep copy of a settings value.
func Clone(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		dst := make([]any, len(v))
		for i, item := range v {
			dst[i] = Clone(item)
		}
		return dst
	default:
		return val
	}
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = Clone(val)
	}
	return dst
}
