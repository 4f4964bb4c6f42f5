package loader

import (
	"bytes"
	"encoding/json"
	"errors"
)

// JSONLoader loads settings from JSON files. Line and block comments and
// trailing commas are accepted, as editors write them into settings and
// .code-workspace files.
type JSONLoader struct {
	fs   FileSystem
	path string
}

func newJSONLoader(fsys FileSystem, path string) *JSONLoader {
	return &JSONLoader{fs: fsys, path: path}
}

// Load reads settings from the loader's path.
func (l *JSONLoader) Load() (map[string]any, error) {
	data, ok, err := readFile(l.fs, l.path)
	if err != nil || !ok {
		return nil, err
	}
	return l.parse(l.path, data)
}

func (l *JSONLoader) parse(source string, data []byte) (map[string]any, error) {
	clean := StripJSONC(data)

	var config map[string]any
	if err := json.Unmarshal(clean, &config); err != nil {
		perr := &ParseError{
			Path:    source,
			Message: err.Error(),
			Err:     err,
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			perr.Line, perr.Column = position(clean, syntaxErr.Offset)
		}
		return nil, perr
	}

	if config == nil {
		config = make(map[string]any)
	}
	return config, nil
}

// StripJSONC removes comments and trailing commas from JSON text. String
// contents are preserved. Removed comments are replaced by spaces so byte
// offsets keep their line numbers.
func StripJSONC(data []byte) []byte {
	out := make([]byte, 0, len(data))
	inString := false

	for i := 0; i < len(data); i++ {
		c := data[i]

		if inString {
			out = append(out, c)
			if c == '\\' && i+1 < len(data) {
				i++
				out = append(out, data[i])
			} else if c == '"' {
				inString = false
			}
			continue
		}

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				out = append(out, ' ')
				i++
			}
			if i < len(data) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(data) && data[i+1] == '*':
			out = append(out, ' ', ' ')
			i += 2
			for i < len(data) && !(data[i] == '*' && i+1 < len(data) && data[i+1] == '/') {
				if data[i] == '\n' {
					out = append(out, '\n')
				} else {
					out = append(out, ' ')
				}
				i++
			}
			if i < len(data) {
				out = append(out, ' ', ' ')
				i++
			}
		case c == ',':
			j := skipInsignificant(data, i+1)
			if j < len(data) && (data[j] == '}' || data[j] == ']') {
				out = append(out, ' ')
			} else {
				out = append(out, c)
			}
		default:
			out = append(out, c)
		}
	}

	return out
}

// skipInsignificant returns the index of the next byte at or after i that
// is neither whitespace nor part of a comment.
func skipInsignificant(data []byte, i int) int {
	for i < len(data) {
		switch {
		case isJSONSpace(data[i]):
			i++
		case data[i] == '/' && i+1 < len(data) && data[i+1] == '/':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		case data[i] == '/' && i+1 < len(data) && data[i+1] == '*':
			i += 2
			for i < len(data) && !(data[i] == '*' && i+1 < len(data) && data[i+1] == '/') {
				i++
			}
			i += 2
		default:
			return i
		}
	}
	return i
}

func isJSONSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	prefix := data[:offset]
	line = bytes.Count(prefix, []byte("\n")) + 1
	col = int(offset) - bytes.LastIndexByte(prefix, '\n')
	return line, col
}
