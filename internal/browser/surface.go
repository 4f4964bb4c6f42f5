// Package browser shows URLs in a Playwright-driven Chromium window.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/launch"
	"github.com/dshills/tasklaunch/internal/logging"
)

// Defaults for the browser window.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
	// DefaultNavigationTimeout is in milliseconds.
	DefaultNavigationTimeout = 30000
)

// ErrSurfaceClosed is returned by Show after Close.
var ErrSurfaceClosed = errors.New("browser surface is closed")

// page is the part of playwright.Page the surface drives.
type page interface {
	Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)
	BringToFront() error
	IsClosed() bool
}

// session is a running browser able to open pages.
type session interface {
	NewPage() (page, error)
	Close() error
}

// launcher starts a browser session.
type launcher func(opts Options) (session, error)

// Options configures the browser window.
type Options struct {
	// Headless runs the browser without a visible window.
	Headless bool
	// Install downloads the browser driver when missing.
	Install bool
	// Timeout bounds each navigation, in milliseconds.
	Timeout float64
}

// Surface is a browser window that pages are shown in. It starts the
// browser on first use.
//
// Thread Safety: Show and Close serialize on mu.
type Surface struct {
	mu      sync.Mutex
	opts    Options
	launch  launcher
	session session
	current page
	closed  bool
	logger  *logging.Logger
}

// Option configures a Surface.
type Option func(*Surface)

// WithOptions sets the browser options.
func WithOptions(o Options) Option {
	return func(s *Surface) {
		s.opts = o
	}
}

// WithLogger sets the surface's logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Surface) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSurface creates a surface. No browser is started until Show.
func NewSurface(opts ...Option) *Surface {
	s := &Surface{
		opts:   Options{Install: true, Timeout: DefaultNavigationTimeout},
		launch: launchPlaywright,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.opts.Timeout <= 0 {
		s.opts.Timeout = DefaultNavigationTimeout
	}
	return s
}

// Show navigates to url. ColumnBeside opens a new page; ColumnActive
// reuses the current page when it is still open. Unless PreserveFocus is
// set the page is brought to the front.
func (s *Surface) Show(ctx context.Context, url string, p launch.Placement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSurfaceClosed
	}
	if s.session == nil {
		sess, err := s.launch(s.opts)
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		s.session = sess
		s.logger.Debug("browser started (headless=%t)", s.opts.Headless)
	}

	pg := s.current
	if p.Column == config.ColumnBeside || pg == nil || pg.IsClosed() {
		var err error
		pg, err = s.session.NewPage()
		if err != nil {
			return fmt.Errorf("failed to open page: %w", err)
		}
	}

	waitUntil := playwright.WaitUntilState("domcontentloaded")
	timeout := s.opts.Timeout
	if _, err := pg.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil, Timeout: &timeout}); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	s.current = pg

	if !p.PreserveFocus {
		if err := pg.BringToFront(); err != nil {
			s.logger.Warn("bring page to front: %v", err)
		}
	}
	return nil
}

// Close shuts the browser down. Further Show calls fail.
func (s *Surface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.current = nil
	if s.session == nil {
		return nil
	}
	err := s.session.Close()
	s.session = nil
	return err
}

// playwrightSession owns the driver, browser and context of one window.
type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func (p *playwrightSession) NewPage() (page, error) {
	pg, err := p.context.NewPage()
	if err != nil {
		return nil, err
	}
	return pg, nil
}

func (p *playwrightSession) Close() error {
	_ = p.context.Close() // Ignore errors, continue cleanup
	_ = p.browser.Close() // Ignore errors, continue cleanup
	return p.pw.Stop()
}

func launchPlaywright(opts Options) (session, error) {
	// Keep driver output off the terminal notifications.
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if opts.Install {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := opts.Headless
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	return &playwrightSession{pw: pw, browser: browser, context: bctx}, nil
}
