package browser

import (
	"context"
	"errors"
	"testing"

	"github.com/playwright-community/playwright-go"

	"github.com/dshills/tasklaunch/internal/config"
	"github.com/dshills/tasklaunch/internal/launch"
)

var _ launch.Displayer = (*Surface)(nil)

type fakePage struct {
	id      int
	visited []string
	fronted int
	closed  bool
	gotoErr error
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	p.visited = append(p.visited, url)
	return nil, nil
}

func (p *fakePage) BringToFront() error {
	p.fronted++
	return nil
}

func (p *fakePage) IsClosed() bool { return p.closed }

type fakeSession struct {
	pages  []*fakePage
	closed bool
}

func (s *fakeSession) NewPage() (page, error) {
	p := &fakePage{id: len(s.pages)}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func newTestSurface() (*Surface, *fakeSession, *int) {
	sess := &fakeSession{}
	launches := 0
	s := NewSurface(WithOptions(Options{Headless: true}))
	s.launch = func(Options) (session, error) {
		launches++
		return sess, nil
	}
	return s, sess, &launches
}

func TestSurface_ShowReusesActivePage(t *testing.T) {
	s, sess, launches := newTestSurface()
	ctx := context.Background()
	active := launch.Placement{Column: config.ColumnActive}

	for _, url := range []string{"http://a.test", "http://b.test"} {
		if err := s.Show(ctx, url, active); err != nil {
			t.Fatalf("Show(%s): %v", url, err)
		}
	}

	if *launches != 1 {
		t.Errorf("browser started %d times, want 1", *launches)
	}
	if len(sess.pages) != 1 {
		t.Fatalf("opened %d pages, want 1", len(sess.pages))
	}
	if got := sess.pages[0].visited; len(got) != 2 || got[1] != "http://b.test" {
		t.Errorf("visited = %v", got)
	}
	if sess.pages[0].fronted != 2 {
		t.Errorf("fronted %d times, want 2", sess.pages[0].fronted)
	}
}

func TestSurface_ShowBesideOpensPage(t *testing.T) {
	s, sess, _ := newTestSurface()
	ctx := context.Background()

	if err := s.Show(ctx, "http://a.test", launch.Placement{Column: config.ColumnActive}); err != nil {
		t.Fatal(err)
	}
	if err := s.Show(ctx, "http://b.test", launch.Placement{Column: config.ColumnBeside, PreserveFocus: true}); err != nil {
		t.Fatal(err)
	}

	if len(sess.pages) != 2 {
		t.Fatalf("opened %d pages, want 2", len(sess.pages))
	}
	if sess.pages[1].fronted != 0 {
		t.Error("PreserveFocus should not bring the page to front")
	}
}

func TestSurface_ReopensClosedPage(t *testing.T) {
	s, sess, _ := newTestSurface()
	ctx := context.Background()

	if err := s.Show(ctx, "http://a.test", launch.Placement{}); err != nil {
		t.Fatal(err)
	}
	sess.pages[0].closed = true
	if err := s.Show(ctx, "http://a.test", launch.Placement{}); err != nil {
		t.Fatal(err)
	}
	if len(sess.pages) != 2 {
		t.Errorf("opened %d pages, want a replacement", len(sess.pages))
	}
}

func TestSurface_Errors(t *testing.T) {
	t.Run("launch failure", func(t *testing.T) {
		s := NewSurface()
		s.launch = func(Options) (session, error) { return nil, errors.New("no chromium") }
		if err := s.Show(context.Background(), "http://a.test", launch.Placement{}); err == nil {
			t.Error("expected launch error")
		}
	})

	t.Run("navigation failure", func(t *testing.T) {
		s, sess, _ := newTestSurface()
		if err := s.Show(context.Background(), "http://a.test", launch.Placement{}); err != nil {
			t.Fatal(err)
		}
		sess.pages[0].gotoErr = errors.New("net::ERR_CONNECTION_REFUSED")
		if err := s.Show(context.Background(), "http://b.test", launch.Placement{}); err == nil {
			t.Error("expected navigation error")
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		s, _, launches := newTestSurface()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.Show(ctx, "http://a.test", launch.Placement{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Show = %v", err)
		}
		if *launches != 0 {
			t.Error("browser started for a canceled request")
		}
	})
}

func TestSurface_Close(t *testing.T) {
	s, sess, _ := newTestSurface()
	if err := s.Show(context.Background(), "http://a.test", launch.Placement{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !sess.closed {
		t.Error("session not closed")
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
	if err := s.Show(context.Background(), "http://a.test", launch.Placement{}); !errors.Is(err, ErrSurfaceClosed) {
		t.Errorf("Show after Close = %v", err)
	}
}
