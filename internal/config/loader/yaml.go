package loader

import (
	"errors"

	"gopkg.in/yaml.v3"
)

// YAMLLoader loads settings from YAML files.
type YAMLLoader struct {
	fs   FileSystem
	path string
}

func newYAMLLoader(fsys FileSystem, path string) *YAMLLoader {
	return &YAMLLoader{fs: fsys, path: path}
}

// Load reads settings from the loader's path.
func (l *YAMLLoader) Load() (map[string]any, error) {
	data, ok, err := readFile(l.fs, l.path)
	if err != nil || !ok {
		return nil, err
	}
	return l.parse(l.path, data)
}

func (l *YAMLLoader) parse(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		perr := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
			perr.Message = typeErr.Errors[0]
		}
		return nil, perr
	}

	if config == nil {
		config = make(map[string]any)
	}
	return normalize(config).(map[string]any), nil
}
