// Package browser owns the headless Chrome session used by a single scan.
package browser

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/metrics"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// Config controls the browser session.
type Config struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	UserAgent      string
	NavTimeout     time.Duration
	OpTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 375
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 667
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 15 * time.Second
	}
	return c
}

// Driver is the page capability surface handed out to callers. Every
// driver is backed by its own tab; no two callers share a handle.
type Driver interface {
	Navigate(ctx context.Context, url string) (Snapshot, error)
	Screenshot(ctx context.Context) ([]byte, error)
}

// Session owns one browser process and one browsing context for the
// lifetime of a single scan. Sessions are not shared across scans.
type Session struct {
	cfg    Config
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	// newTab is swapped in tests to avoid launching Chrome.
	newTab func() (context.Context, context.CancelFunc)

	mu     sync.Mutex
	pages  map[string]*Page
	nextID int
	opened bool
	closed bool
}

// NewSession constructs an unopened Session.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:    cfg.withDefaults(),
		logger: logger,
		pages:  make(map[string]*Page),
	}
}

// Open launches the browser process and its browsing context. On
// failure any partially initialized resource is torn down before the
// error propagates as a scan.InitializationError.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &scan.InitializationError{Stage: "browser", Err: fmt.Errorf("session already closed")}
	}
	if s.opened {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(s.cfg.ViewportWidth, s.cfg.ViewportHeight),
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	warmupCtx, cancelWarmup := context.WithCancel(browserCtx)
	stopForward := forwardCancel(ctx, cancelWarmup)
	err := chromedp.Run(warmupCtx)
	stopForward()
	cancelWarmup()
	if err != nil {
		browserCancel()
		allocCancel()
		return &scan.InitializationError{Stage: "browser", Err: fmt.Errorf("chromedp warmup: %w", err)}
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.newTab = func() (context.Context, context.CancelFunc) {
		return chromedp.NewContext(browserCtx)
	}
	s.opened = true
	metrics.SessionOpened()
	return nil
}

// WithPage is the only sanctioned way to use a page: it creates a tab,
// tracks it, invokes fn, and guarantees the page is closed and
// deregistered on every exit path including panics.
func (s *Session) WithPage(ctx context.Context, fn func(Driver) error) error {
	page, err := s.acquirePage()
	if err != nil {
		return err
	}
	defer page.Close()

	stopForward := forwardCancel(ctx, page.cancel)
	defer stopForward()

	return fn(page)
}

// NewPage hands out an untracked-release page. Callers that forget to
// close it lean on Close() to reap it, so acquiring one logs a warning.
func (s *Session) NewPage() (*Page, error) {
	s.logger.Warn("non-scoped page acquired; prefer WithPage")
	return s.acquirePage()
}

func (s *Session) acquirePage() (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened || s.closed {
		return nil, fmt.Errorf("browser session is not open")
	}
	tabCtx, tabCancel := s.newTab()
	s.nextID++
	page := &Page{
		id:      "page-" + strconv.Itoa(s.nextID),
		ctx:     tabCtx,
		cancel:  tabCancel,
		session: s,
	}
	s.pages[page.id] = page
	metrics.PageOpened()
	return page, nil
}

// release deregisters a page; returns false if it was already gone.
func (s *Session) release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[id]; !ok {
		return false
	}
	delete(s.pages, id)
	metrics.PageClosed()
	return true
}

// ActivePages reports how many pages are open and tracked.
func (s *Session) ActivePages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Close is idempotent. It reaps all still-open pages (logging each as
// a leak), then the browsing context, then the browser process. Each
// step runs even when an earlier one fails.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	leaked := make([]*Page, 0, len(s.pages))
	for _, page := range s.pages {
		leaked = append(leaked, page)
	}
	s.pages = make(map[string]*Page)
	wasOpened := s.opened
	s.mu.Unlock()

	for _, page := range leaked {
		s.logger.Warn("closing leaked page", zap.String("page_id", page.id))
		metrics.ObservePageLeak()
		metrics.PageClosed()
		page.cancel()
	}

	if !wasOpened {
		return
	}

	if s.browserCtx != nil {
		if err := chromedp.Cancel(s.browserCtx); err != nil {
			s.logger.Warn("browser context close failed", zap.Error(err))
		}
	}
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	metrics.SessionClosed()
}

// forwardCancel propagates parent cancellation into a chromedp-scoped
// cancel func without tying the tab's lifetime to the caller context.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
