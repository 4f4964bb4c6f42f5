// Package criteria decides whether a task is of interest.
//
// A rule is a partial object. It matches a candidate when every field the
// rule names is present in the candidate with an equal value, recursing into
// nested objects. Arrays compare by full equality. Fields the rule does not
// name are never inspected.
package criteria

import "github.com/dshills/tasklaunch/internal/task"

// Rule is a partial, arbitrarily nested object. Rules that are not objects
// are malformed and never match.
type Rule = any

// Matches reports whether at least one rule is a subset of candidate.
// Malformed rules are skipped. Neither argument is modified.
func Matches(candidate map[string]any, rules []Rule) bool {
	for _, r := range rules {
		obj, ok := asObject(r)
		if !ok {
			continue
		}
		if isSubset(obj, candidate) {
			return true
		}
	}
	return false
}

// MatchesTask reports whether the task descriptor satisfies any rule.
func MatchesTask(d task.Descriptor, rules []Rule) bool {
	if len(rules) == 0 {
		return false
	}
	return Matches(d.Fields(), rules)
}

// isSubset reports whether every field of rule is present in candidate
// with an equal value.
func isSubset(rule, candidate map[string]any) bool {
	for key, want := range rule {
		got, ok := candidate[key]
		if !ok {
			return false
		}

		if wantObj, isObj := asObject(want); isObj {
			gotObj, ok := asObject(got)
			if !ok || !isSubset(wantObj, gotObj) {
				return false
			}
			continue
		}

		if !Equal(want, got) {
			return false
		}
	}
	return true
}

// asObject returns v as a string-keyed map when it is one.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}
