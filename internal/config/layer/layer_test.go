package layer

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		path string
		want any
	}{
		{"nil data", nil, "taskBrowser.url", nil},
		{"nested", map[string]any{"taskBrowser": map[string]any{"url": "http://a"}}, "taskBrowser.url", "http://a"},
		{"dotted", map[string]any{"taskBrowser.mode": "all"}, "taskBrowser.mode", "all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(SourceUserGlobal, "/u/settings.toml", tt.data)
			if l.Data == nil {
				t.Fatal("Data should never be nil")
			}
			got, _ := l.Get(tt.path)
			if got != tt.want {
				t.Errorf("Get(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLayer_GetReturnsCopy(t *testing.T) {
	l := New(SourceFolder, "", map[string]any{
		"taskBrowser": map[string]any{
			"criteria": []any{map[string]any{"definition": map[string]any{"type": "npm"}}},
		},
	})

	val, _ := l.Get("taskBrowser.criteria")
	val.([]any)[0].(map[string]any)["definition"] = "changed"

	again, _ := l.Get("taskBrowser.criteria")
	if _, ok := again.([]any)[0].(map[string]any)["definition"].(map[string]any); !ok {
		t.Error("Get returned shared storage")
	}
}

func TestSource_String(t *testing.T) {
	tests := []struct {
		source Source
		want   string
	}{
		{SourceBuiltin, "builtin"},
		{SourceUserGlobal, "user"},
		{SourceWorkspace, "workspace"},
		{SourceEnv, "environment"},
		{SourceFolder, "folder"},
		{Source(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("Source(%d).String() = %q, want %q", tt.source, got, tt.want)
		}
	}
}
