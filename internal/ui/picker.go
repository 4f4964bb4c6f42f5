package ui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/dshills/tasklaunch/internal/scope"
)

// selectFunc shows a selection and returns the chosen index.
type selectFunc func(ctx context.Context, title string, options []huh.Option[int]) (int, error)

// FolderPicker asks the user to choose a workspace folder. Without an
// interactive terminal every prompt counts as dismissed.
type FolderPicker struct {
	interactive func() bool
	choose      selectFunc
}

// NewFolderPicker creates a picker bound to stdin and stdout.
func NewFolderPicker() *FolderPicker {
	return &FolderPicker{
		interactive: isInteractive,
		choose:      runSelect,
	}
}

// PickFolder prompts for one of folders. A dismissed prompt returns
// ok == false and a nil error.
func (p *FolderPicker) PickFolder(ctx context.Context, title string, folders []scope.Folder) (scope.Folder, bool, error) {
	if len(folders) == 0 || !p.interactive() {
		return scope.Folder{}, false, nil
	}

	options := make([]huh.Option[int], len(folders))
	for i, f := range folders {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", f.Name, f.Path), i)
	}

	idx, err := p.choose(ctx, title, options)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return scope.Folder{}, false, nil
		}
		return scope.Folder{}, false, err
	}
	if idx < 0 || idx >= len(folders) {
		return scope.Folder{}, false, nil
	}
	return folders[idx], true, nil
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runSelect(ctx context.Context, title string, options []huh.Option[int]) (int, error) {
	choice := -1
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(title).
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return -1, err
	}
	return choice, nil
}
