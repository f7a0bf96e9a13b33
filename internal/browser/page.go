package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Snapshot is the DOM state captured after one navigation.
type Snapshot struct {
	FinalURL   string
	Title      string
	HTML       string
	InnerWidth int
}

// Page is a tracked handle over one browser tab. It is either
// open-and-tracked or closed-and-deregistered, never both.
type Page struct {
	id      string
	ctx     context.Context
	cancel  context.CancelFunc
	session *Session

	closeOnce sync.Once
}

// Close deregisters the page and tears down its tab. Safe to call
// more than once; later calls are no-ops.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.session.release(p.id)
		p.cancel()
	})
}

// Navigate loads url with the configured mobile emulation, waits for
// the content-loaded condition, and returns a DOM snapshot. The final
// URL reflects redirects, which is how HTTPS-ness is judged.
func (p *Page) Navigate(ctx context.Context, url string) (Snapshot, error) {
	runCtx, cancel := context.WithTimeout(p.ctx, p.session.cfg.NavTimeout)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	var snap Snapshot
	actions := chromedp.Tasks{
		network.Enable(),
		p.emulationAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&snap.FinalURL),
		chromedp.Title(&snap.Title),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
		chromedp.Evaluate("window.innerWidth", &snap.InnerWidth),
	}
	if err := chromedp.Run(runCtx, actions); err != nil {
		return Snapshot{}, fmt.Errorf("navigate %s: %w", url, err)
	}
	return snap, nil
}

// Screenshot captures a full-page screenshot of the current document.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(p.ctx, p.session.cfg.OpTimeout)
	defer cancel()
	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}

func (p *Page) emulationAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		cfg := p.session.cfg
		if cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		err := emulation.SetDeviceMetricsOverride(
			int64(cfg.ViewportWidth), int64(cfg.ViewportHeight), 2.0, true,
		).Do(ctx)
		if err != nil {
			return fmt.Errorf("set device metrics: %w", err)
		}
		return nil
	})
}
