// Package config resolves task browser settings for a scope.
//
// Settings are organized in layers. The shared layers are merged by
// priority, higher overriding lower:
//
//	┌─────────────────────────────┐
//	│  4. Environment Variables   │  ← TASKLAUNCH_*
//	├─────────────────────────────┤
//	│  3. Workspace               │  ← "settings" of a .code-workspace file
//	├─────────────────────────────┤
//	│  2. User Settings           │  ← ~/.config/tasklaunch/settings.toml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// The merged result is the global level. Each workspace folder has its own
// layer (<folder>/.tasklaunch/settings.{toml,yaml,yml,json}) that overrides
// the global level for lookups made on behalf of that folder, except for
// criteria, which concatenate instead.
//
// # Sub-packages
//
//   - layer: Prioritized settings layers and path helpers
//   - loader: Settings file loading (TOML, YAML, JSON, environment variables)
//   - notify: Change notification
//   - watcher: fsnotify-based live reload
package config
