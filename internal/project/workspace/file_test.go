package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "proj.code-workspace")
	content := `{
	// two apps
	"folders": [
		{"path": "web", "name": "Frontend"},
		{"path": "api"},
	],
	"settings": {"taskBrowser.url": "http://localhost:3000"},
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if ws.FilePath() != path {
		t.Errorf("FilePath = %q, want %q", ws.FilePath(), path)
	}

	folders := ws.Folders()
	if len(folders) != 2 {
		t.Fatalf("got %d folders", len(folders))
	}
	if folders[0].Name != "Frontend" || folders[0].Path != filepath.Join(root, "web") {
		t.Errorf("folder 0 = %+v", folders[0])
	}
	if folders[1].Name != "api" || folders[1].Index != 1 {
		t.Errorf("folder 1 = %+v", folders[1])
	}
}

func TestOpenFile_Errors(t *testing.T) {
	root := t.TempDir()

	if _, err := OpenFile(filepath.Join(root, "missing.code-workspace")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(root, "bad.code-workspace")
	if err := os.WriteFile(bad, []byte(`{"folders": [`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveToFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "proj.code-workspace")
	if err := SaveFile(path, &File{Settings: map[string]any{"taskBrowser.mode": "all"}}); err != nil {
		t.Fatal(err)
	}

	ws, err := NewFromPaths(filepath.Join(root, "one"), filepath.Join(root, "two"))
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Folders) != 2 || f.Folders[0].Path != "one" || f.Folders[1].Path != "two" {
		t.Errorf("folders = %+v", f.Folders)
	}
	if f.Settings["taskBrowser.mode"] != "all" {
		t.Errorf("settings not preserved: %v", f.Settings)
	}
	if !IsWorkspaceFile(path) {
		t.Error("IsWorkspaceFile should accept .code-workspace")
	}
}
