package analyzer

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/probe"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// Ordering analyzes online-ordering capability. It combines two
// passes: the browser probe's rendered-DOM detection (order button,
// platform mentions) and a static crawl of the homepage anchors that
// also sees links a script hides from the rendered snapshot text sweep.
type Ordering struct {
	probe     *probe.Probe
	logger    *zap.Logger
	userAgent string
	timeout   time.Duration
}

// NewOrdering constructs the ordering analyzer.
func NewOrdering(p *probe.Probe, userAgent string, timeout time.Duration, logger *zap.Logger) *Ordering {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Ordering{probe: p, logger: logger, userAgent: userAgent, timeout: timeout}
}

// Analyze gathers direct ordering links and third-party platforms,
// then scores integration quality. Failures in either pass degrade the
// result instead of aborting; only a total failure sets Err.
func (a *Ordering) Analyze(ctx context.Context, req Request) *scan.OrderingMetrics {
	m := &scan.OrderingMetrics{}
	if req.Restaurant.Website == "" {
		m.Err = absorb(a.logger, SourceOrdering, &scan.ValidationError{Msg: "no website on record"})
		return m
	}

	outcome, probeErr := a.probe.Run(ctx, req.Pager, req.Restaurant.Website)
	probeFailed := probeErr != nil || outcome.Error != ""
	direct, platforms, crawlErr := a.staticSweep(ctx, req.Restaurant.Website)

	if probeFailed && crawlErr != nil {
		m.Err = absorb(a.logger, SourceOrdering, crawlErr)
		return m
	}
	if crawlErr != nil {
		a.logger.Warn("static ordering sweep failed",
			zap.String("url", req.Restaurant.Website), zap.Error(crawlErr))
	}

	if !probeFailed {
		platforms = append(platforms, outcome.Platforms...)
		if outcome.OrderButton.Detected {
			m.ButtonEase = 1
		}
	}

	m.DirectLinks = dedupe(direct)
	m.Platforms = dedupe(platforms)
	m.DirectOrdering = len(m.DirectLinks) > 0
	m.HasSystem = m.DirectOrdering || len(m.Platforms) > 0 || m.ButtonEase > 0
	m.IntegrationQuality = integrationQuality(m.DirectLinks, m.Platforms)
	return m
}

// staticSweep fetches the homepage without a browser and classifies
// every anchor: third-party platform hosts versus same-site ordering
// links.
func (a *Ordering) staticSweep(ctx context.Context, siteURL string) (direct, platforms []string, err error) {
	normalized, err := scan.NormalizeURL(siteURL)
	if err != nil {
		return nil, nil, err
	}

	opts := []colly.CollectorOption{
		colly.MaxDepth(1),
		colly.Async(false),
	}
	if a.userAgent != "" {
		opts = append(opts, colly.UserAgent(a.userAgent))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(a.timeout)

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Request.AbsoluteURL(e.Attr("href"))
		if href == "" {
			return
		}
		if name, ok := probe.MatchPlatform(href); ok {
			platforms = append(platforms, name)
			return
		}
		if probe.IsOrderingLink(href, e.Text) && sameHost(normalized, href) {
			direct = append(direct, href)
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(normalized)
	}()
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("ordering sweep canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, nil, fmt.Errorf("ordering sweep: %w", err)
		}
	}
	return direct, platforms, nil
}

// integrationQuality scores how well ordering is wired in: up to 50
// points per channel kind at 10 per distinct entry, plus a 10-point
// bonus when either channel has depth beyond a single entry.
func integrationQuality(direct, platforms []string) float64 {
	score := math.Min(float64(len(direct))*10, 50)
	score += math.Min(float64(len(platforms))*10, 50)
	if len(direct) > 1 || len(platforms) > 1 {
		score += 10
	}
	return math.Min(score, 100)
}

func sameHost(base, candidate string) bool {
	bu, err1 := url.Parse(base)
	cu, err2 := url.Parse(candidate)
	if err1 != nil || err2 != nil {
		return false
	}
	return bu.Hostname() == cu.Hostname()
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
