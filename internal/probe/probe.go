// Package probe drives one page through navigation and signal extraction.
package probe

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/browser"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// Pager is the scoped page acquisition surface the probe needs.
// *browser.Session satisfies it.
type Pager interface {
	WithPage(ctx context.Context, fn func(browser.Driver) error) error
}

// Config controls probe behavior.
type Config struct {
	CaptureScreenshots bool
	EvidencePrefix     string
}

// Probe navigates a URL and extracts a fixed set of signals in one pass.
type Probe struct {
	cfg      Config
	evidence scan.EvidenceStore
	logger   *zap.Logger
}

// New constructs a Probe. evidence may be nil to skip screenshots.
func New(cfg Config, evidence scan.EvidenceStore, logger *zap.Logger) *Probe {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Probe{cfg: cfg, evidence: evidence, logger: logger}
}

// Run validates the URL, then walks the fixed step sequence: navigate,
// read HTTPS-ness off the final URL, title, meta description, layout
// width, order-button detection. Navigation and evaluation failures
// are recorded into the outcome's Error field; fields captured before
// the failure are still returned. Only malformed input returns an error.
func (p *Probe) Run(ctx context.Context, pager Pager, rawURL string) (scan.ProbeOutcome, error) {
	normalized, err := scan.NormalizeURL(rawURL)
	if err != nil {
		return scan.ProbeOutcome{}, err
	}

	outcome := scan.ProbeOutcome{URL: normalized, Platforms: []string{}}

	pageErr := pager.WithPage(ctx, func(d browser.Driver) error {
		start := time.Now()
		snap, navErr := d.Navigate(ctx, normalized)
		outcome.LoadTime = time.Since(start)
		if navErr != nil {
			outcome.Error = describeFailure(navErr)
			return nil
		}

		outcome.FinalURL = snap.FinalURL
		outcome.HasSSL = strings.HasPrefix(snap.FinalURL, "https://")
		outcome.PageTitle = snap.Title
		outcome.MetaDescription = MetaDescription(snap.HTML)
		outcome.MobileFriendly = snap.InnerWidth > 0 && snap.InnerWidth <= 480
		outcome.HasContactForm = HasContactForm(snap.HTML)
		outcome.OrderingLinks = CountOrderingLinks(snap.HTML)
		outcome.OrderButton, outcome.Platforms = DetectOrderButton(snap.HTML)

		p.captureEvidence(ctx, d, normalized, &outcome)
		return nil
	})
	if pageErr != nil && outcome.Error == "" {
		outcome.Error = describeFailure(pageErr)
	}

	return outcome, nil
}

func (p *Probe) captureEvidence(ctx context.Context, d browser.Driver, pageURL string, outcome *scan.ProbeOutcome) {
	if !p.cfg.CaptureScreenshots || p.evidence == nil {
		return
	}
	shot, err := d.Screenshot(ctx)
	if err != nil {
		p.logger.Warn("screenshot capture failed", zap.String("url", pageURL), zap.Error(err))
		return
	}
	uri, err := p.evidence.PutObject(ctx, p.evidencePath(pageURL), "image/png", shot)
	if err != nil {
		p.logger.Warn("screenshot persist failed", zap.String("url", pageURL), zap.Error(err))
		return
	}
	outcome.ScreenshotURI = uri
}

func (p *Probe) evidencePath(pageURL string) string {
	host := "unknown"
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	prefix := strings.Trim(p.cfg.EvidencePrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s.png", host)
	}
	return fmt.Sprintf("%s/%s.png", prefix, host)
}

func describeFailure(err error) string {
	if scan.IsTimeout(err) {
		return fmt.Sprintf("navigation timed out: %v", err)
	}
	return err.Error()
}
