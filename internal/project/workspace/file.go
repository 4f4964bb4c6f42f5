package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/tasklaunch/internal/config/loader"
)

// FileExtension is the extension of workspace files.
const FileExtension = ".code-workspace"

// File is the on-disk .code-workspace format.
type File struct {
	// Folders is the list of workspace folders.
	Folders []FolderEntry `json:"folders"`

	// Settings contains workspace-level settings.
	Settings map[string]any `json:"settings,omitempty"`
}

// FolderEntry is a folder entry in a workspace file.
type FolderEntry struct {
	// Path is the folder path, relative to the workspace file or absolute.
	Path string `json:"path"`

	// Name is an optional display name for the folder.
	Name string `json:"name,omitempty"`
}

// LoadFile reads a .code-workspace file. Comments and trailing commas are
// accepted.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(loader.StripJSONC(data), &f); err != nil {
		return nil, fmt.Errorf("parse workspace file %s: %w", path, err)
	}
	return &f, nil
}

// SaveFile writes a .code-workspace file.
func SaveFile(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// IsWorkspaceFile reports whether path names a workspace file.
func IsWorkspaceFile(path string) bool {
	return filepath.Ext(path) == FileExtension
}

// OpenFile creates a Workspace from a .code-workspace file. Relative folder
// paths resolve against the file's directory.
func OpenFile(path string) (*Workspace, error) {
	absFile, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	wsFile, err := LoadFile(absFile)
	if err != nil {
		return nil, err
	}

	baseDir := filepath.Dir(absFile)
	ws := New()
	ws.filePath = absFile
	for _, entry := range wsFile.Folders {
		folderPath := entry.Path
		if folderPath == "" {
			return nil, fmt.Errorf("%s: %w: empty folder path", absFile, ErrInvalidPath)
		}
		if !filepath.IsAbs(folderPath) {
			folderPath = filepath.Join(baseDir, filepath.FromSlash(folderPath))
		}

		folder, err := newFolder(folderPath, entry.Name)
		if err != nil {
			return nil, err
		}
		folder.Index = len(ws.folders)
		ws.folders = append(ws.folders, folder)
	}
	return ws, nil
}

// SaveToFile writes the workspace folders to a .code-workspace file,
// keeping the settings of an existing file at that path.
func (w *Workspace) SaveToFile(path string) error {
	folders := w.Folders()
	baseDir := filepath.Dir(path)

	wsFile := &File{Folders: make([]FolderEntry, len(folders))}
	if existing, err := LoadFile(path); err == nil {
		wsFile.Settings = existing.Settings
	}

	for i, folder := range folders {
		relPath, err := filepath.Rel(baseDir, folder.Path)
		if err != nil {
			relPath = folder.Path
		}
		entry := FolderEntry{Path: filepath.ToSlash(relPath)}
		if folder.Name != filepath.Base(folder.Path) {
			entry.Name = folder.Name
		}
		wsFile.Folders[i] = entry
	}

	return SaveFile(path, wsFile)
}
