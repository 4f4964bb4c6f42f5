package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/dshills/tasklaunch/internal/criteria"
	"github.com/dshills/tasklaunch/internal/scope"
)

// mapReader serves settings from flat key maps.
type mapReader struct {
	global  map[string]any
	folders map[string]map[string]any
}

func (r mapReader) GlobalValue(key string) (any, bool) {
	v, ok := r.global[key]
	return v, ok
}

func (r mapReader) FolderValue(uri, key string) (any, bool) {
	v, ok := r.folders[uri][key]
	return v, ok
}

var (
	folderA = scope.Folder{URI: "file:///ws/a", Path: "/ws/a", Name: "a", Index: 0}
	folderB = scope.Folder{URI: "file:///ws/b", Path: "/ws/b", Name: "b", Index: 1}
)

func TestAggregator_CriteriaFor(t *testing.T) {
	r := map[string]any{"type": "npm", "script": "serve"}
	g := map[string]any{"type": "make"}
	agg := NewAggregator(mapReader{
		global: map[string]any{KeyCriteria: []any{g}},
		folders: map[string]map[string]any{
			folderA.URI: {KeyCriteria: []any{r}},
			folderB.URI: {KeyCriteria: []any{r, r}},
		},
	})

	tests := []struct {
		name  string
		scope scope.ConfigScope
		want  []criteria.Rule
	}{
		{"workspace level", scope.WorkspaceLevel(), []criteria.Rule{g}},
		{"folder a", scope.ForFolder(folderA), []criteria.Rule{g, r}},
		{"folder b keeps duplicates", scope.ForFolder(folderB), []criteria.Rule{g, r, r}},
		{"unknown folder", scope.ForFolder(scope.Folder{URI: "file:///other"}), []criteria.Rule{g}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := agg.CriteriaFor(tt.scope)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CriteriaFor(%s) = %v, want %v", tt.scope, got, tt.want)
			}
		})
	}
}

func TestAggregator_CriteriaFor_FolderOnly(t *testing.T) {
	r := map[string]any{"type": "npm"}
	agg := NewAggregator(mapReader{
		global: map[string]any{KeyCriteria: []any{}},
		folders: map[string]map[string]any{
			folderA.URI: {KeyCriteria: []any{r}},
			folderB.URI: {KeyCriteria: []any{r}},
		},
	})

	for _, f := range []scope.Folder{folderA, folderB} {
		got := agg.CriteriaFor(scope.ForFolder(f))
		if len(got) != 1 || !reflect.DeepEqual(got[0], r) {
			t.Errorf("CriteriaFor(%s) = %v, want [%v]", f.Name, got, r)
		}
	}
	if got := agg.CriteriaFor(scope.WorkspaceLevel()); len(got) != 0 {
		t.Errorf("CriteriaFor(workspace) = %v, want empty", got)
	}
}

func TestAggregator_CriteriaFor_NotAList(t *testing.T) {
	agg := NewAggregator(mapReader{
		global: map[string]any{KeyCriteria: map[string]any{"type": "npm"}},
	})
	if got := agg.CriteriaFor(scope.WorkspaceLevel()); len(got) != 0 {
		t.Errorf("CriteriaFor = %v, want empty", got)
	}
}

func TestAggregator_ModeAndBehavior(t *testing.T) {
	agg := NewAggregator(mapReader{
		global: map[string]any{KeyMode: "matching", KeyBehavior: "oneTime"},
		folders: map[string]map[string]any{
			folderA.URI: {KeyMode: "all", KeyBehavior: "everytime"},
			folderB.URI: {KeyMode: "sometimes", KeyBehavior: 7},
		},
	})

	tests := []struct {
		name         string
		scope        scope.ConfigScope
		wantMode     Mode
		wantBehavior Behavior
	}{
		{"workspace level", scope.WorkspaceLevel(), ModeMatching, BehaviorOneTime},
		{"folder override", scope.ForFolder(folderA), ModeAll, BehaviorEverytime},
		{"invalid folder values", scope.ForFolder(folderB), DefaultMode, DefaultBehavior},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := agg.ModeFor(tt.scope); got != tt.wantMode {
				t.Errorf("ModeFor = %s, want %s", got, tt.wantMode)
			}
			if got := agg.BehaviorFor(tt.scope); got != tt.wantBehavior {
				t.Errorf("BehaviorFor = %s, want %s", got, tt.wantBehavior)
			}
		})
	}
}

func TestAggregator_Defaults(t *testing.T) {
	agg := NewAggregator(mapReader{})

	mc := agg.MonitoringFor(scope.ForFolder(folderA))
	if mc.Mode != DefaultMode || len(mc.Criteria) != 0 {
		t.Errorf("MonitoringFor = %+v, want defaults", mc)
	}

	want := LaunchSettings{
		Behavior:    DefaultBehavior,
		WaitTimeout: DefaultWaitTimeout,
		Column:      DefaultColumn,
	}
	if got := agg.LaunchSettingsFor(scope.WorkspaceLevel()); got != want {
		t.Errorf("LaunchSettingsFor = %+v, want %+v", got, want)
	}
}

func TestAggregator_LaunchSettingsFor(t *testing.T) {
	agg := NewAggregator(mapReader{
		global: map[string]any{
			KeyURL:         "http://localhost:3000",
			KeyDelay:       int64(250),
			KeyWaitForHost: true,
			KeyWaitTimeout: float64(2000),
		},
		folders: map[string]map[string]any{
			folderA.URI: {
				KeyURL:           "https://a.test",
				KeyColumn:        "beside",
				KeyPreserveFocus: "true",
				KeyWaitTimeout:   0,
				KeyDelay:         -5,
			},
		},
	})

	global := agg.LaunchSettingsFor(scope.WorkspaceLevel())
	if global.URL != "http://localhost:3000" || global.Delay != 250*time.Millisecond ||
		!global.WaitForHost || global.WaitTimeout != 2*time.Second {
		t.Errorf("global settings = %+v", global)
	}

	a := agg.LaunchSettingsFor(scope.ForFolder(folderA))
	if a.URL != "https://a.test" {
		t.Errorf("URL = %q, want folder value", a.URL)
	}
	if a.Column != ColumnBeside || !a.PreserveFocus {
		t.Errorf("placement = %s/%t, want beside/true", a.Column, a.PreserveFocus)
	}
	if a.WaitTimeout != DefaultWaitTimeout {
		t.Errorf("WaitTimeout = %s, want default for zero", a.WaitTimeout)
	}
	if a.Delay != DefaultDelay {
		t.Errorf("Delay = %s, want default for negative", a.Delay)
	}
	if !a.WaitForHost {
		t.Error("WaitForHost should fall through to the global value")
	}
	if got := agg.URLFor(scope.ForFolder(folderB)); got != "http://localhost:3000" {
		t.Errorf("URLFor(b) = %q, want global value", got)
	}
}
