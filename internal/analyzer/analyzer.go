// Package analyzer holds the four per-source analysis pipelines. Each
// analyzer shares one contract: it never returns an error. Every
// internal failure is absorbed into the result bag's Err field so the
// orchestrator can tolerate partial failure without special cases.
package analyzer

import (
	"errors"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/metrics"
	"github.com/presencelab/presence-scanner/internal/probe"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// Analyzer source names, used in logs and failure metrics.
const (
	SourceWebsite  = "website"
	SourceProfile  = "google"
	SourceReviews  = "reviews"
	SourceOrdering = "ordering"
)

// errNotConfigured marks sources whose external client was never wired.
var errNotConfigured = errors.New("source client not configured")

// Request carries the per-run inputs an analyzer may need. Pager is
// the scan's browser session; analyzers that never touch the browser
// ignore it.
type Request struct {
	Restaurant scan.Restaurant
	Pager      probe.Pager
}

// absorb converts an internal failure into the Err string stored on a
// result bag, recording the failure metric on the way.
func absorb(logger *zap.Logger, source string, err error) string {
	metrics.ObserveAnalyzerFailure(source)
	aerr := &scan.AnalysisError{Source: source, Err: err}
	logger.Warn("analysis failed", zap.String("source", source), zap.Error(err))
	return aerr.Error()
}
