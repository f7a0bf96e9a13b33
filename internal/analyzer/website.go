package analyzer

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/pagespeed"
	"github.com/presencelab/presence-scanner/internal/probe"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// SpeedAPI is the Lighthouse-metrics lookup the website analyzer
// depends on. *pagespeed.Client satisfies it.
type SpeedAPI interface {
	Analyze(ctx context.Context, pageURL string, mobile bool) (pagespeed.Result, error)
}

// Website analyzes the restaurant's own site: one browser probe pass
// for structural signals plus a PageSpeed lookup for Lighthouse
// scores. The two run concurrently since neither depends on the other.
type Website struct {
	probe  *probe.Probe
	speed  SpeedAPI
	logger *zap.Logger
}

// NewWebsite constructs the website analyzer. speed may be nil when no
// PageSpeed credentials are configured; Lighthouse scores stay zero.
func NewWebsite(p *probe.Probe, speed SpeedAPI, logger *zap.Logger) *Website {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Website{probe: p, speed: speed, logger: logger}
}

// Analyze runs the probe and the PageSpeed lookup and merges both into
// one metrics bag. A probe failure marks the bag with Err; a PageSpeed
// failure only costs the Lighthouse sub-scores.
func (a *Website) Analyze(ctx context.Context, req Request) *scan.WebsiteMetrics {
	m := &scan.WebsiteMetrics{URL: req.Restaurant.Website}
	if req.Restaurant.Website == "" {
		m.Err = absorb(a.logger, SourceWebsite, &scan.ValidationError{Msg: "no website on record"})
		return m
	}

	var (
		wg       sync.WaitGroup
		outcome  scan.ProbeOutcome
		probeErr error
		speed    pagespeed.Result
		speedErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		outcome, probeErr = a.probe.Run(ctx, req.Pager, req.Restaurant.Website)
	}()

	if a.speed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			speed, speedErr = a.speed.Analyze(ctx, req.Restaurant.Website, true)
		}()
	}
	wg.Wait()

	if probeErr != nil {
		m.Err = absorb(a.logger, SourceWebsite, probeErr)
		return m
	}

	m.URL = outcome.URL
	m.HasSSL = outcome.HasSSL
	m.MobileFriendly = outcome.MobileFriendly
	m.PageTitle = outcome.PageTitle
	m.MetaDescription = outcome.MetaDescription
	m.HasContactForm = outcome.HasContactForm
	m.OrderingLinks = outcome.OrderingLinks
	m.OrderButton = outcome.OrderButton
	m.Platforms = outcome.Platforms
	m.LoadTimeMs = float64(outcome.LoadTime.Milliseconds())
	m.ScreenshotURI = outcome.ScreenshotURI
	if outcome.Error != "" {
		m.Err = absorb(a.logger, SourceWebsite, errors.New(outcome.Error))
	}

	switch {
	case speedErr != nil:
		// Probe data alone still makes the bag usable.
		a.logger.Warn("pagespeed lookup failed",
			zap.String("url", req.Restaurant.Website), zap.Error(speedErr))
	case a.speed != nil:
		m.PerformanceScore = speed.Performance
		m.AccessibilityScore = speed.Accessibility
		m.SEOScore = speed.SEO
		m.BestPracticesScore = speed.BestPractices
		if speed.InteractiveMs > 0 {
			m.LoadTimeMs = speed.InteractiveMs
		}
	}
	return m
}
