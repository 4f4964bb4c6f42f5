package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dshills/tasklaunch/internal/config/layer"
	"github.com/dshills/tasklaunch/internal/config/loader"
	"github.com/dshills/tasklaunch/internal/config/notify"
	"github.com/dshills/tasklaunch/internal/logging"
	"github.com/dshills/tasklaunch/internal/scope"
)

// FolderSettingsDir is the directory inside a folder that holds its settings.
const FolderSettingsDir = ".tasklaunch"

// folderSettingsBase is the settings file name without extension.
const folderSettingsBase = "settings"

// DefaultUserSettingsPath returns the user settings file location.
func DefaultUserSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "tasklaunch", "settings.toml")
}

// FolderSettingsCandidates returns every file a folder's settings may be
// read from, in lookup order.
func FolderSettingsCandidates(folderPath string) []string {
	dir := filepath.Join(folderPath, FolderSettingsDir)
	paths := make([]string, len(loader.Extensions))
	for i, ext := range loader.Extensions {
		paths[i] = filepath.Join(dir, folderSettingsBase+ext)
	}
	return paths
}

type folderEntry struct {
	folder scope.Folder
	layer  *layer.Layer
}

// Store holds the settings layers of a workspace: shared layers merged into
// the global level, plus one layer per folder.
type Store struct {
	mu sync.RWMutex

	shared  *layer.Stack
	folders map[string]*folderEntry

	userPath      string
	workspacePath string

	fs       loader.FileSystem
	notifier *notify.Notifier
	logger   *logging.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *logging.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets the notifier that receives reload changes.
func WithNotifier(n *notify.Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// NewStore creates a store holding only the built-in defaults.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		shared:   layer.NewStack(layer.New(layer.SourceBuiltin, "", Defaults())),
		folders:  make(map[string]*folderEntry),
		fs:       loader.DefaultFS(),
		notifier: notify.New(),
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifier returns the notifier reload changes are published on.
func (s *Store) Notifier() *notify.Notifier {
	return s.notifier
}

// LoadUser loads the user settings file. A missing file leaves an empty
// user layer in place.
func (s *Store) LoadUser(path string) error {
	if path == "" {
		path = DefaultUserSettingsPath()
	}
	data, err := s.loadFile(path)
	if err != nil {
		return fmt.Errorf("load user settings: %w", err)
	}

	s.mu.Lock()
	s.userPath = path
	s.mu.Unlock()

	s.putShared(layer.SourceUserGlobal, path, data)
	return nil
}

// LoadWorkspace loads the "settings" object of a .code-workspace file.
func (s *Store) LoadWorkspace(path string) error {
	data, err := s.loadFile(path)
	if err != nil {
		return fmt.Errorf("load workspace settings: %w", err)
	}

	var settings map[string]any
	if raw, ok := data["settings"]; ok {
		settings, ok = raw.(map[string]any)
		if !ok {
			return fmt.Errorf("load workspace settings: %s: %w: settings must be an object", path, ErrInvalidValue)
		}
	}

	s.mu.Lock()
	s.workspacePath = path
	s.mu.Unlock()

	s.putShared(layer.SourceWorkspace, path, settings)
	return nil
}

// LoadEnv loads TASKLAUNCH_* environment variables above the file layers.
func (s *Store) LoadEnv() error {
	data, err := loader.NewEnvLoader().Load()
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	s.putShared(layer.SourceEnv, "", data)
	return nil
}

func (s *Store) putShared(source layer.Source, path string, data map[string]any) {
	s.shared.Put(layer.New(source, path, data))
	s.logger.Debug("loaded %s settings from %q", source, path)
}

// AddFolder loads a folder's settings. A folder without a settings file
// gets an empty layer.
func (s *Store) AddFolder(f scope.Folder) error {
	path, data, err := s.loadFolderFile(f)
	if err != nil {
		return fmt.Errorf("load settings for folder %s: %w", f.Name, err)
	}

	s.mu.Lock()
	s.folders[f.URI] = &folderEntry{folder: f, layer: layer.New(layer.SourceFolder, path, data)}
	s.mu.Unlock()

	s.logger.Debug("loaded folder settings for %s from %q", f.Name, path)
	return nil
}

// RemoveFolder drops a folder's settings.
func (s *Store) RemoveFolder(uri string) {
	s.mu.Lock()
	delete(s.folders, uri)
	s.mu.Unlock()
}

func (s *Store) loadFolderFile(f scope.Folder) (string, map[string]any, error) {
	path, ok := loader.FindFile(s.fs, filepath.Join(f.Path, FolderSettingsDir), folderSettingsBase)
	if !ok {
		return "", nil, nil
	}
	data, err := s.loadFile(path)
	return path, data, err
}

func (s *Store) loadFile(path string) (map[string]any, error) {
	l, err := loader.ForPath(s.fs, path)
	if err != nil {
		return nil, err
	}
	return l.Load()
}

// Reload re-reads the settings file at path into its layer. It publishes a
// set or delete change for every setting whose value moved, then a reload
// change. Paths are matched against the user file, the workspace file and
// every folder's candidate files.
func (s *Store) Reload(path string) error {
	path = filepath.Clean(path)

	s.mu.RLock()
	userPath, workspacePath := s.userPath, s.workspacePath
	var folder *scope.Folder
	for _, e := range s.folders {
		for _, candidate := range FolderSettingsCandidates(e.folder.Path) {
			if candidate == path {
				f := e.folder
				folder = &f
			}
		}
	}
	s.mu.RUnlock()

	switch {
	case userPath != "" && filepath.Clean(userPath) == path:
		before := s.shared.Effective()
		if err := s.LoadUser(userPath); err != nil {
			return err
		}
		s.publish(layer.SourceUserGlobal, "", layer.Diff(before, s.shared.Effective()))
	case workspacePath != "" && filepath.Clean(workspacePath) == path:
		before := s.shared.Effective()
		if err := s.LoadWorkspace(workspacePath); err != nil {
			return err
		}
		s.publish(layer.SourceWorkspace, "", layer.Diff(before, s.shared.Effective()))
	case folder != nil:
		before := s.folderData(folder.URI)
		if err := s.AddFolder(*folder); err != nil {
			return err
		}
		s.publish(layer.SourceFolder, folder.URI, layer.Diff(before, s.folderData(folder.URI)))
	default:
		return fmt.Errorf("%w: %s", ErrNotSettingsFile, path)
	}

	s.logger.Info("reloaded settings from %s", path)
	return nil
}

// publish announces a reloaded source's deltas, then the reload itself.
func (s *Store) publish(source layer.Source, folderURI string, deltas []layer.Delta) {
	for _, d := range deltas {
		if d.Removed {
			s.notifier.NotifyDelete(d.Path, d.Old, source.String(), folderURI)
			continue
		}
		s.notifier.NotifySet(d.Path, d.Old, d.New, source.String(), folderURI)
	}
	s.notifier.NotifyReload(source.String(), folderURI)
}

// folderData returns a folder layer's settings. Layers are replaced on
// reload, never edited, so the map stays valid after the lock is released.
func (s *Store) folderData(uri string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.folders[uri]; ok {
		return e.layer.Data
	}
	return nil
}

// WatchPaths returns every file whose changes should trigger Reload.
func (s *Store) WatchPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var paths []string
	if s.userPath != "" {
		paths = append(paths, s.userPath)
	}
	if s.workspacePath != "" {
		paths = append(paths, s.workspacePath)
	}
	uris := make([]string, 0, len(s.folders))
	for uri := range s.folders {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		paths = append(paths, FolderSettingsCandidates(s.folders[uri].folder.Path)...)
	}
	return paths
}

// GlobalValue returns the value of key resolved without a folder.
func (s *Store) GlobalValue(key string) (any, bool) {
	val, _, ok := s.shared.Get(key)
	return val, ok
}

// FolderValue returns the value of key set in a folder's own settings.
func (s *Store) FolderValue(folderURI, key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.folders[folderURI]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	return e.layer.Get(key)
}

// Value returns the effective value of key for a config scope: the folder
// value when set, else the global value.
func (s *Store) Value(cs scope.ConfigScope, key string) (any, bool) {
	if uri := cs.FolderURI(); uri != "" {
		if val, ok := s.FolderValue(uri, key); ok {
			return val, true
		}
	}
	return s.GlobalValue(key)
}

// HasFolderOverride reports whether a folder's own settings define key.
func (s *Store) HasFolderOverride(folderURI, key string) bool {
	_, ok := s.FolderValue(folderURI, key)
	return ok
}

// SettingsPath returns the file a user should edit to change settings for
// cs: the folder's settings file, else the workspace file, else the user
// file. A folder without a settings file yields its preferred candidate.
func (s *Store) SettingsPath(cs scope.ConfigScope) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if uri := cs.FolderURI(); uri != "" {
		if e, ok := s.folders[uri]; ok {
			if e.layer.Path != "" {
				return e.layer.Path
			}
			return FolderSettingsCandidates(e.folder.Path)[0]
		}
	}
	if s.workspacePath != "" {
		return s.workspacePath
	}
	if s.userPath != "" {
		return s.userPath
	}
	return DefaultUserSettingsPath()
}

// Inspection shows where a setting's value comes from at every level.
type Inspection struct {
	Key         string
	Default     any
	User        any
	Workspace   any
	Environment any
	Folder      any
	// Effective is the value Value returns for the inspected scope.
	Effective any
	// Source names the layer Effective came from.
	Source string
}

// Inspect reports a setting at every level for cs.
func (s *Store) Inspect(cs scope.ConfigScope, key string) Inspection {
	in := Inspection{Key: key}
	in.Default, _ = s.shared.LayerValue(layer.SourceBuiltin, key)
	in.User, _ = s.shared.LayerValue(layer.SourceUserGlobal, key)
	in.Workspace, _ = s.shared.LayerValue(layer.SourceWorkspace, key)
	in.Environment, _ = s.shared.LayerValue(layer.SourceEnv, key)

	if uri := cs.FolderURI(); uri != "" {
		if val, ok := s.FolderValue(uri, key); ok {
			in.Folder = val
			in.Effective = val
			in.Source = layer.SourceFolder.String()
			return in
		}
	}

	if val, l, ok := s.shared.Get(key); ok {
		in.Effective = val
		in.Source = l.Source.String()
	}
	return in
}

// Close releases the notifier.
func (s *Store) Close() {
	s.notifier.Close()
}
