package layer

import (
	"reflect"
	"sort"
	"strings"
)

// DeepMerge recursively merges src into dst.
// Values in src override values in dst.
// Maps are merged recursively; other types, including lists, are replaced.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = Clone(srcVal)
	}
	return dst
}

// GetByPath retrieves a value from a nested map using a dot-separated path.
func GetByPath(data map[string]any, path string) (any, bool) {
	if data == nil {
		return nil, false
	}

	current := any(data)
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		val, exists := m[part]
		if !exists {
			return nil, false
		}
		current = val
	}
	return current, true
}

// SetByPath sets a value in a nested map using a dot-separated path,
// creating intermediate maps as needed.
func SetByPath(data map[string]any, path string, value any) {
	if data == nil {
		return
	}

	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

// Expand turns dotted top-level keys into nested maps, so
// {"taskBrowser.url": u} and {"taskBrowser": {"url": u}} read the same.
// Keys inside values are left alone; criteria objects may contain dots.
// When both forms set the same path the dotted key wins.
func Expand(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	result := make(map[string]any, len(data))
	var dotted []string
	for key, val := range data {
		if strings.Contains(key, ".") {
			dotted = append(dotted, key)
			continue
		}
		result = DeepMerge(result, map[string]any{key: val})
	}
	sort.Strings(dotted)
	for _, key := range dotted {
		nested := make(map[string]any)
		SetByPath(nested, key, Clone(data[key]))
		result = DeepMerge(result, nested)
	}
	return result
}

// Delta is one setting that differs between two settings maps.
type Delta struct {
	Path    string
	Old     any
	New     any
	Removed bool
}

// Diff returns the settings that differ from old to updated, sorted by
// path. Lists and scalars compare whole; maps are walked to their leaves.
func Diff(old, updated map[string]any) []Delta {
	before := leaves(old)
	after := leaves(updated)

	var deltas []Delta
	for path, newVal := range after {
		oldVal, existed := before[path]
		if existed && reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		deltas = append(deltas, Delta{Path: path, Old: oldVal, New: newVal})
	}
	for path, oldVal := range before {
		if _, ok := after[path]; !ok {
			deltas = append(deltas, Delta{Path: path, Old: oldVal, Removed: true})
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].Path < deltas[j].Path })
	return deltas
}

// leaves flattens data to dot-separated paths. Empty maps are leaves.
func leaves(data map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for key, val := range m {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}
			if nested, ok := val.(map[string]any); ok && len(nested) > 0 {
				walk(path, nested)
				continue
			}
			out[path] = val
		}
	}
	walk("", data)
	return out
}
