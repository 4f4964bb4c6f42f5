package layer

import "testing"

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"taskBrowser": map[string]any{
			"url":      "http://a",
			"criteria": []any{"x"},
		},
	}
	src := map[string]any{
		"taskBrowser": map[string]any{
			"criteria": []any{"y", "z"},
			"delay":    int64(10),
		},
	}

	got := DeepMerge(dst, src)
	tb := got["taskBrowser"].(map[string]any)

	if tb["url"] != "http://a" {
		t.Errorf("url = %v", tb["url"])
	}
	if list := tb["criteria"].([]any); len(list) != 2 || list[0] != "y" {
		t.Errorf("criteria = %v, want lists replaced", list)
	}
	if tb["delay"] != int64(10) {
		t.Errorf("delay = %v", tb["delay"])
	}
}

func TestPathHelpers(t *testing.T) {
	data := make(map[string]any)
	SetByPath(data, "taskBrowser.column", "beside")

	if v, ok := GetByPath(data, "taskBrowser.column"); !ok || v != "beside" {
		t.Errorf("GetByPath = %v, %v", v, ok)
	}
	if _, ok := GetByPath(data, "taskBrowser.column.x"); ok {
		t.Error("path through a scalar should not resolve")
	}
	if _, ok := GetByPath(nil, "a"); ok {
		t.Error("nil data should not resolve")
	}
	SetByPath(data, "taskBrowser.column.x", 1)
	if v, ok := GetByPath(data, "taskBrowser.column.x"); !ok || v != 1 {
		t.Errorf("SetByPath through a scalar = %v, %v", v, ok)
	}
}

func TestExpand(t *testing.T) {
	got := Expand(map[string]any{
		"taskBrowser.url": "http://dotted",
		"taskBrowser": map[string]any{
			"url":  "http://nested",
			"mode": "all",
		},
		"taskBrowser.criteria": []any{
			map[string]any{"definition": map[string]any{"a.b": 1}},
		},
	})

	if v, _ := GetByPath(got, "taskBrowser.url"); v != "http://dotted" {
		t.Errorf("url = %v, want dotted key to win", v)
	}
	if v, _ := GetByPath(got, "taskBrowser.mode"); v != "all" {
		t.Errorf("mode = %v", v)
	}
	list, _ := GetByPath(got, "taskBrowser.criteria")
	rule := list.([]any)[0].(map[string]any)
	if _, ok := rule["definition"].(map[string]any)["a.b"]; !ok {
		t.Error("keys inside values must not be expanded")
	}
	if Expand(nil) != nil {
		t.Error("Expand(nil) should be nil")
	}
}

func TestDiff(t *testing.T) {
	old := map[string]any{
		"taskBrowser": map[string]any{
			"url":      "http://a",
			"delay":    int64(0),
			"mode":     "all",
			"criteria": []any{map[string]any{"type": "npm"}},
		},
	}
	updated := map[string]any{
		"taskBrowser": map[string]any{
			"url":      "http://b",
			"delay":    int64(0),
			"behavior": "none",
			"criteria": []any{map[string]any{"type": "npm"}},
		},
	}

	want := []Delta{
		{Path: "taskBrowser.behavior", New: "none"},
		{Path: "taskBrowser.mode", Old: "all", Removed: true},
		{Path: "taskBrowser.url", Old: "http://a", New: "http://b"},
	}
	got := Diff(old, updated)
	if len(got) != len(want) {
		t.Fatalf("Diff = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if d := Diff(nil, nil); len(d) != 0 {
		t.Errorf("Diff(nil, nil) = %+v", d)
	}
	changed := Diff(old, map[string]any{"taskBrowser": map[string]any{"criteria": []any{}}})
	if len(changed) != 4 || changed[0].Path != "taskBrowser.criteria" || changed[0].Removed {
		t.Errorf("criteria replaced by empty list = %+v", changed)
	}
}
