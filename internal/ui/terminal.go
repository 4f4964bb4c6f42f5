package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/dshills/tasklaunch/internal/launch"
)

// Terminal writes notifications as styled lines.
type Terminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminal creates a notifier writing to w, or stderr when w is nil.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{w: w}
}

// Notify writes m. An action is rendered as a hint on the following line.
func (t *Terminal) Notify(m launch.Message) {
	prefix, style := decorate(m.Level)

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.w, style.Render(prefix+" "+m.Text))
	if m.Action != nil {
		fmt.Fprintln(t.w, StyleAction.Render(fmt.Sprintf("%s: %s", m.Action.Label, m.Action.Target)))
	}
}

func decorate(level launch.Level) (string, lipgloss.Style) {
	switch level {
	case launch.LevelWarning:
		return "!", StyleWarning
	case launch.LevelError:
		return "✗", StyleError
	default:
		return "•", StyleInfo
	}
}
