// Package orchestrator runs one scan end to end: browser session
// lifecycle, concurrent analyzer fan-out, scoring, and the terminal
// state transition.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/analyzer"
	"github.com/presencelab/presence-scanner/internal/browser"
	"github.com/presencelab/presence-scanner/internal/logging"
	"github.com/presencelab/presence-scanner/internal/metrics"
	"github.com/presencelab/presence-scanner/internal/scan"
	"github.com/presencelab/presence-scanner/internal/scoring"
)

// Session is the slice of the browser session the orchestrator owns.
// *browser.Session satisfies it.
type Session interface {
	Open(ctx context.Context) error
	WithPage(ctx context.Context, fn func(browser.Driver) error) error
	Close()
}

// SessionFactory builds a fresh Session for each scan run. Sessions
// are never shared across scans.
type SessionFactory func() Session

// The four analyzer surfaces, one per source. Concrete analyzers from
// the analyzer package satisfy them; tests swap in fakes.
type (
	WebsiteAnalyzer interface {
		Analyze(ctx context.Context, req analyzer.Request) *scan.WebsiteMetrics
	}
	ProfileAnalyzer interface {
		Analyze(ctx context.Context, req analyzer.Request) *scan.ProfileMetrics
	}
	ReviewsAnalyzer interface {
		Analyze(ctx context.Context, req analyzer.Request) *scan.ReviewMetrics
	}
	OrderingAnalyzer interface {
		Analyze(ctx context.Context, req analyzer.Request) *scan.OrderingMetrics
	}
)

// Orchestrator coordinates a single scan run.
type Orchestrator struct {
	store    scan.Store
	machine  *scan.Machine
	sessions SessionFactory
	website  WebsiteAnalyzer
	profile  ProfileAnalyzer
	reviews  ReviewsAnalyzer
	ordering OrderingAnalyzer
	clock    scan.Clock
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	store scan.Store,
	machine *scan.Machine,
	sessions SessionFactory,
	website WebsiteAnalyzer,
	profile ProfileAnalyzer,
	reviews ReviewsAnalyzer,
	ordering OrderingAnalyzer,
	clock scan.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:    store,
		machine:  machine,
		sessions: sessions,
		website:  website,
		profile:  profile,
		reviews:  reviews,
		ordering: ordering,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes the scan and returns its terminal record. Errors it
// returns are infrastructure failures eligible for a runner retry;
// analyzer failures never surface here.
func (o *Orchestrator) Run(ctx context.Context, scanID string) (scan.Record, error) {
	logger := logging.WithScan(o.logger, scanID)

	rec, err := o.store.GetScan(ctx, scanID)
	if err != nil {
		return scan.Record{}, &scan.StoreError{Op: "get", Err: err}
	}
	if rec.Status.Terminal() {
		return rec, &scan.ValidationError{Msg: fmt.Sprintf("scan %s already terminal (%s)", scanID, rec.Status)}
	}

	// A retried attempt finds the record already IN_PROGRESS.
	if rec.Status == scan.StatusPending {
		if err := o.machine.Start(ctx, &rec); err != nil {
			return rec, err
		}
	}

	session := o.sessions()
	if err := session.Open(ctx); err != nil {
		return rec, err
	}
	defer session.Close()

	req := analyzer.Request{Restaurant: rec.Restaurant, Pager: session}
	rec.Results = o.fanOut(ctx, logger, rec.Category, req)

	summary := scoring.Compose(rec.Results, o.clock.Now())
	rec.WebsiteScore = summary.Website
	rec.Composite = summary.Composite
	rec.Grade = summary.Grade

	status, errText := terminalFor(rec.Results)
	if err := o.machine.Complete(ctx, &rec, status, errText); err != nil {
		return rec, err
	}

	if rec.StartedAt != nil {
		metrics.ObserveScan(string(status), string(rec.Category), o.clock.Now().Sub(*rec.StartedAt))
	}
	logger.Info("scan finished",
		zap.String("status", string(status)),
		zap.Float64("overall_score", rec.Composite),
		zap.String("grade", rec.Grade),
	)
	return rec, nil
}

// fanOut runs the requested analyzers concurrently and joins their
// bags. A website-only scan skips the other three sources entirely;
// their slots stay nil, meaning "never ran".
func (o *Orchestrator) fanOut(ctx context.Context, logger *zap.Logger, category scan.Category, req analyzer.Request) scan.Results {
	var (
		wg      sync.WaitGroup
		results scan.Results
	)

	run := func(source string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("analyzer panicked",
						zap.String("source", source), zap.Any("panic", r))
					metrics.ObserveAnalyzerFailure(source)
				}
			}()
			fn()
		}()
	}

	run(analyzer.SourceWebsite, func() { results.Website = o.website.Analyze(ctx, req) })
	if category == scan.CategoryComprehensive {
		run(analyzer.SourceProfile, func() { results.Profile = o.profile.Analyze(ctx, req) })
		run(analyzer.SourceReviews, func() { results.Reviews = o.reviews.Analyze(ctx, req) })
		run(analyzer.SourceOrdering, func() { results.Ordering = o.ordering.Analyze(ctx, req) })
	}
	wg.Wait()
	return results
}

// terminalFor derives the terminal state from the joined results:
// every executed analyzer errored means FAILED, a mix means PARTIAL,
// all usable means COMPLETED. Nil slots never ran and do not count.
func terminalFor(results scan.Results) (scan.Status, string) {
	var errs []string
	ran, errored := 0, 0
	note := func(source, errText string) {
		ran++
		if errText != "" {
			errored++
			errs = append(errs, source+": "+errText)
		}
	}

	if results.Website != nil {
		note(analyzer.SourceWebsite, results.Website.Err)
	}
	if results.Profile != nil {
		note(analyzer.SourceProfile, results.Profile.Err)
	}
	if results.Reviews != nil {
		note(analyzer.SourceReviews, results.Reviews.Err)
	}
	if results.Ordering != nil {
		note(analyzer.SourceOrdering, results.Ordering.Err)
	}

	switch {
	case ran == 0 || errored == ran:
		return scan.StatusFailed, strings.Join(errs, "; ")
	case errored > 0:
		return scan.StatusPartial, strings.Join(errs, "; ")
	default:
		return scan.StatusCompleted, ""
	}
}
