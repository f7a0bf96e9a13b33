package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	created []Record
	updated []Record

	createErr error
	updateErr error
}

func (s *stubStore) CreateScan(_ context.Context, rec Record) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, rec)
	return nil
}

func (s *stubStore) UpdateScan(_ context.Context, rec Record) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = append(s.updated, rec)
	return nil
}

func (s *stubStore) GetScan(context.Context, string) (Record, error) {
	return Record{}, ErrNotFound
}

func (s *stubStore) ListScansByRestaurant(context.Context, string) ([]Record, error) {
	return nil, nil
}

type stubClock struct{ now time.Time }

func (c stubClock) Now() time.Time { return c.now }

func newTestMachine(store *stubStore) (*Machine, time.Time) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return NewMachine(store, stubClock{now: now}, zap.NewNop()), now
}

func TestCanTransitionTable(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusFailed},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusFailed},
		{StatusInProgress, StatusPartial},
	}
	for _, tc := range legal {
		require.True(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPartial},
		{StatusCompleted, StatusInProgress},
		{StatusFailed, StatusPending},
		{StatusPartial, StatusCompleted},
		{StatusInProgress, StatusInProgress},
	}
	for _, tc := range illegal {
		require.False(t, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMachineStartStampsStartedAt(t *testing.T) {
	store := &stubStore{}
	machine, now := newTestMachine(store)

	rec := Record{ID: "s1", Status: StatusPending}
	require.NoError(t, machine.Start(context.Background(), &rec))

	require.Equal(t, StatusInProgress, rec.Status)
	require.NotNil(t, rec.StartedAt)
	require.Equal(t, now, *rec.StartedAt)
	require.Len(t, store.updated, 1)
}

func TestMachineStartRejectsTerminalRecord(t *testing.T) {
	store := &stubStore{}
	machine, _ := newTestMachine(store)

	rec := Record{ID: "s1", Status: StatusCompleted}
	require.Error(t, machine.Start(context.Background(), &rec))
	require.Empty(t, store.updated)
}

func TestMachineCompleteStampsOutcome(t *testing.T) {
	store := &stubStore{}
	machine, now := newTestMachine(store)

	rec := Record{ID: "s1", Status: StatusInProgress}
	require.NoError(t, machine.Complete(context.Background(), &rec, StatusPartial, "reviews analysis failed"))

	require.Equal(t, StatusPartial, rec.Status)
	require.Equal(t, "reviews analysis failed", rec.ErrorText)
	require.NotNil(t, rec.CompletedAt)
	require.Equal(t, now, *rec.CompletedAt)
}

func TestMachineCompleteRejectsNonTerminalTarget(t *testing.T) {
	store := &stubStore{}
	machine, _ := newTestMachine(store)

	rec := Record{ID: "s1", Status: StatusInProgress}
	require.Error(t, machine.Complete(context.Background(), &rec, StatusInProgress, ""))
}

func TestMachineCompleteWrapsStoreFailure(t *testing.T) {
	store := &stubStore{updateErr: errors.New("connection reset")}
	machine, _ := newTestMachine(store)

	rec := Record{ID: "s1", Status: StatusInProgress}
	err := machine.Complete(context.Background(), &rec, StatusCompleted, "")
	require.Error(t, err)
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	require.True(t, IsInfrastructure(err))
}

func TestMachineRetryClonesTerminalRecord(t *testing.T) {
	store := &stubStore{}
	machine, now := newTestMachine(store)

	prior := Record{
		ID:         "old",
		Restaurant: Restaurant{ID: "r-1", Name: "Taqueria Uno", Website: "https://example.com"},
		Category:   CategoryComprehensive,
		Status:     StatusFailed,
		ErrorText:  "browser initialization failed",
	}
	fresh, err := machine.Retry(context.Background(), prior, "new")
	require.NoError(t, err)

	require.Equal(t, "new", fresh.ID)
	require.Equal(t, "old", fresh.RetryOf)
	require.Equal(t, StatusPending, fresh.Status)
	require.Equal(t, prior.Restaurant, fresh.Restaurant)
	require.Equal(t, prior.Category, fresh.Category)
	require.Equal(t, now, fresh.CreatedAt)
	require.Empty(t, fresh.ErrorText)
	require.Len(t, store.created, 1)
}

func TestMachineRetryRejectsActiveRecord(t *testing.T) {
	store := &stubStore{}
	machine, _ := newTestMachine(store)

	_, err := machine.Retry(context.Background(), Record{ID: "s1", Status: StatusInProgress}, "new")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Empty(t, store.created)
}
