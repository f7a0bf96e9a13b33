package scan

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a scan ID is unknown.
var ErrNotFound = errors.New("scan not found")

// Store persists scan records.
type Store interface {
	CreateScan(ctx context.Context, rec Record) error
	UpdateScan(ctx context.Context, rec Record) error
	GetScan(ctx context.Context, scanID string) (Record, error)
	ListScansByRestaurant(ctx context.Context, restaurantID string) ([]Record, error)
}

// Queue provides enqueue/dequeue semantics for background scan runs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Notifier reports terminal scan outcomes. Best-effort: failures here
// are logged by callers, never escalated.
type Notifier interface {
	NotifyFailure(ctx context.Context, scanID string, errText string) error
	NotifyCompleted(ctx context.Context, scanID string, composite float64, grade string) error
}

// EvidenceStore writes raw evidence artifacts and returns a URI.
type EvidenceStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces scan IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
