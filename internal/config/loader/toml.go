package loader

import (
	"errors"

	"github.com/pelletier/go-toml/v2"
)

// TOMLLoader loads settings from TOML files.
type TOMLLoader struct {
	fs   FileSystem
	path string
}

func newTOMLLoader(fsys FileSystem, path string) *TOMLLoader {
	return &TOMLLoader{fs: fsys, path: path}
}

// Load reads settings from the loader's path.
func (l *TOMLLoader) Load() (map[string]any, error) {
	data, ok, err := readFile(l.fs, l.path)
	if err != nil || !ok {
		return nil, err
	}
	return l.parse(l.path, data)
}

func (l *TOMLLoader) parse(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		perr := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			perr.Line, perr.Column = decodeErr.Position()
		}
		return nil, perr
	}

	if config == nil {
		config = make(map[string]any)
	}
	return config, nil
}
