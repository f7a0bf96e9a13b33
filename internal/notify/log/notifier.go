// Package log implements a Notifier that only writes structured logs.
// It is the default for local development.
package log

import (
	"context"

	"go.uber.org/zap"
)

// Notifier logs terminal scan outcomes.
type Notifier struct {
	logger *zap.Logger
}

// New constructs a Notifier.
func New(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{logger: logger}
}

// NotifyFailure logs a failed scan.
func (n *Notifier) NotifyFailure(_ context.Context, scanID, errText string) error {
	n.logger.Warn("scan failed",
		zap.String("scan_id", scanID),
		zap.String("error", errText),
	)
	return nil
}

// NotifyCompleted logs a finished scan with its composite score.
func (n *Notifier) NotifyCompleted(_ context.Context, scanID string, composite float64, grade string) error {
	n.logger.Info("scan completed",
		zap.String("scan_id", scanID),
		zap.Float64("overall_score", composite),
		zap.String("grade", grade),
	)
	return nil
}
