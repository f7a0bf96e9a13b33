package scan

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// allowed enumerates the legal lifecycle edges. Terminal states have
// no outgoing edges; retrying a terminal scan creates a new record.
var allowed = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusFailed},
	StatusInProgress: {StatusCompleted, StatusFailed, StatusPartial},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Machine governs scan lifecycle transitions and persists each one
// through the store before the orchestrator proceeds.
type Machine struct {
	store  Store
	clock  Clock
	logger *zap.Logger
}

// NewMachine constructs a Machine.
func NewMachine(store Store, clock Clock, logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{store: store, clock: clock, logger: logger}
}

// Start moves a scan from PENDING to IN_PROGRESS and stamps started_at.
func (m *Machine) Start(ctx context.Context, rec *Record) error {
	if err := m.transition(rec, StatusInProgress); err != nil {
		return err
	}
	now := m.clock.Now()
	rec.StartedAt = &now
	return m.persist(ctx, rec)
}

// Complete moves a scan to a terminal state, stamps completed_at, and
// records scores or the error text.
func (m *Machine) Complete(ctx context.Context, rec *Record, to Status, errText string) error {
	if !to.Terminal() {
		return fmt.Errorf("complete called with non-terminal status %q", to)
	}
	if err := m.transition(rec, to); err != nil {
		return err
	}
	now := m.clock.Now()
	rec.CompletedAt = &now
	rec.ErrorText = errText
	return m.persist(ctx, rec)
}

// Retry clones a terminal scan into a fresh PENDING record for the
// same restaurant. History is append-only; the old record is untouched.
func (m *Machine) Retry(ctx context.Context, prior Record, newID string) (Record, error) {
	if !prior.Status.Terminal() {
		return Record{}, &ValidationError{Msg: fmt.Sprintf("scan %s is not terminal", prior.ID)}
	}
	rec := Record{
		ID:         newID,
		Restaurant: prior.Restaurant,
		Category:   prior.Category,
		Status:     StatusPending,
		CreatedAt:  m.clock.Now(),
		RetryOf:    prior.ID,
	}
	if err := m.store.CreateScan(ctx, rec); err != nil {
		return Record{}, &StoreError{Op: "create", Err: err}
	}
	return rec, nil
}

func (m *Machine) transition(rec *Record, to Status) error {
	if !CanTransition(rec.Status, to) {
		return fmt.Errorf("illegal transition %s -> %s for scan %s", rec.Status, to, rec.ID)
	}
	m.logger.Debug("scan transition",
		zap.String("scan_id", rec.ID),
		zap.String("from", string(rec.Status)),
		zap.String("to", string(to)),
	)
	rec.Status = to
	return nil
}

func (m *Machine) persist(ctx context.Context, rec *Record) error {
	if err := m.store.UpdateScan(ctx, *rec); err != nil {
		return &StoreError{Op: "update", Err: err}
	}
	return nil
}
