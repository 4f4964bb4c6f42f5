package layer

import "testing"

func testStack() *Stack {
	return NewStack(
		New(SourceWorkspace, "/w/project.code-workspace", map[string]any{
			"taskBrowser": map[string]any{"url": "http://localhost:3000"},
		}),
		New(SourceBuiltin, "", map[string]any{
			"taskBrowser": map[string]any{"mode": "matching", "behavior": "oneTime", "delay": int64(0)},
		}),
		New(SourceUserGlobal, "/u/settings.toml", map[string]any{
			"taskBrowser": map[string]any{"url": "http://localhost:8080", "behavior": "everytime"},
		}),
	)
}

func TestStack_Get(t *testing.T) {
	s := testStack()

	tests := []struct {
		path       string
		want       any
		wantSource Source
		wantFound  bool
	}{
		{"taskBrowser.url", "http://localhost:3000", SourceWorkspace, true},
		{"taskBrowser.behavior", "everytime", SourceUserGlobal, true},
		{"taskBrowser.mode", "matching", SourceBuiltin, true},
		{"taskBrowser.column", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, l, found := s.Get(tt.path)
			if found != tt.wantFound || got != tt.want {
				t.Fatalf("Get = %v, %v; want %v, %v", got, found, tt.want, tt.wantFound)
			}
			if found && l.Source != tt.wantSource {
				t.Errorf("source = %s, want %s", l.Source, tt.wantSource)
			}
		})
	}
}

func TestStack_PutReplacesSource(t *testing.T) {
	s := testStack()
	s.Put(New(SourceWorkspace, "", nil))

	if v, _, _ := s.Get("taskBrowser.url"); v != "http://localhost:8080" {
		t.Errorf("url = %v, want user value once workspace is empty", v)
	}
	if _, ok := s.LayerValue(SourceWorkspace, "taskBrowser.url"); ok {
		t.Error("replaced workspace layer still has url")
	}
	if v, ok := s.LayerValue(SourceUserGlobal, "taskBrowser.url"); !ok || v != "http://localhost:8080" {
		t.Errorf("LayerValue(user) = %v, %v", v, ok)
	}
	if _, ok := s.LayerValue(SourceEnv, "taskBrowser.url"); ok {
		t.Error("absent source should not resolve")
	}
}

func TestStack_Effective(t *testing.T) {
	s := testStack()
	merged := s.Effective()

	want := map[string]any{
		"taskBrowser.url":      "http://localhost:3000",
		"taskBrowser.behavior": "everytime",
		"taskBrowser.mode":     "matching",
	}
	for path, v := range want {
		if got, _ := GetByPath(merged, path); got != v {
			t.Errorf("%s = %v, want %v", path, got, v)
		}
	}

	SetByPath(merged, "taskBrowser.url", "mutated")
	if v, _, _ := s.Get("taskBrowser.url"); v != "http://localhost:3000" {
		t.Error("Effective returned shared storage")
	}
}
