package scope

import (
	"context"
	"fmt"
)

// Project is the shape of the open workspace as seen by the resolver.
type Project interface {
	// Folders returns the open workspace folders in order.
	Folders() []Folder
	// ActiveFolder returns the folder containing the active editable resource.
	ActiveFolder() (Folder, bool)
}

// OverrideInspector reports whether a folder explicitly sets a key.
type OverrideInspector interface {
	HasFolderOverride(folderURI, key string) bool
}

// Picker asks the user to choose a folder.
// A dismissed prompt returns ok == false and a nil error.
type Picker interface {
	PickFolder(ctx context.Context, title string, folders []Folder) (Folder, bool, error)
}

// Resolver maps task scopes and manual invocations to config scopes.
type Resolver struct {
	project   Project
	overrides OverrideInspector
	picker    Picker
}

// NewResolver creates a resolver. The picker may be nil, in which case
// ambiguous resolutions behave as if the prompt was dismissed.
func NewResolver(project Project, overrides OverrideInspector, picker Picker) *Resolver {
	return &Resolver{
		project:   project,
		overrides: overrides,
		picker:    picker,
	}
}

// FromTaskScope returns the config scope for a task's execution scope.
//
// A folder scope resolves to that folder. Global and workspace scopes
// resolve to the only folder of a single-folder workspace; reading settings
// without a folder there would skip the folder's own overrides when the
// workspace is backed by a workspace file. With several folders the folder
// of the active resource is used, if any.
func (r *Resolver) FromTaskScope(s Scope) (ConfigScope, bool) {
	if f, ok := s.Folder(); ok {
		return ForFolder(f), true
	}

	folders := r.project.Folders()
	if len(folders) == 1 {
		return ForFolder(folders[0]), true
	}
	if len(folders) > 1 {
		if f, ok := r.project.ActiveFolder(); ok {
			return ForFolder(f), true
		}
	}
	return ConfigScope{}, false
}

// ResolveAmbiguous picks a config scope for an invocation without a task.
//
// With no folders nothing resolves. With one folder it is used. Otherwise,
// if no folder overrides probeKey the workspace level is used; if any does,
// the user is asked to choose. A dismissed prompt resolves nothing.
func (r *Resolver) ResolveAmbiguous(ctx context.Context, probeKey string) (ConfigScope, bool, error) {
	folders := r.project.Folders()
	switch len(folders) {
	case 0:
		return ConfigScope{}, false, nil
	case 1:
		return ForFolder(folders[0]), true, nil
	}

	overridden := false
	if r.overrides != nil {
		for _, f := range folders {
			if r.overrides.HasFolderOverride(f.URI, probeKey) {
				overridden = true
				break
			}
		}
	}
	if !overridden {
		return WorkspaceLevel(), true, nil
	}

	if r.picker == nil {
		return ConfigScope{}, false, nil
	}

	f, ok, err := r.picker.PickFolder(ctx, fmt.Sprintf("Select the folder whose %q setting to use", probeKey), folders)
	if err != nil {
		return ConfigScope{}, false, fmt.Errorf("pick folder: %w", err)
	}
	if !ok {
		return ConfigScope{}, false, nil
	}
	return ForFolder(f), true, nil
}
