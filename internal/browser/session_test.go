package browser

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/metrics"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	metrics.Init()
	s := NewSession(Config{}, zap.NewNop())
	s.opened = true
	s.newTab = func() (context.Context, context.CancelFunc) {
		return context.WithCancel(context.Background())
	}
	return s
}

func TestWithPageReleasesOnSuccess(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	err := s.WithPage(context.Background(), func(Driver) error {
		require.Equal(t, 1, s.ActivePages())
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0, s.ActivePages())
}

func TestWithPageReleasesOnError(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	wantErr := errors.New("probe blew up")
	err := s.WithPage(context.Background(), func(Driver) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 0, s.ActivePages())
}

func TestWithPageReleasesOnPanic(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	require.Panics(t, func() {
		_ = s.WithPage(context.Background(), func(Driver) error {
			panic("boom")
		})
	})
	require.Equal(t, 0, s.ActivePages())
}

func TestCloseReapsLeakedPages(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	_, err := s.NewPage()
	require.NoError(t, err)
	_, err = s.NewPage()
	require.NoError(t, err)
	require.Equal(t, 2, s.ActivePages())

	s.Close()
	require.Equal(t, 0, s.ActivePages())

	// Idempotent: a second close is a no-op.
	s.Close()
	require.Equal(t, 0, s.ActivePages())
}

func TestCloseAfterIndividualPageCloses(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	page, err := s.NewPage()
	require.NoError(t, err)
	page.Close()
	page.Close()
	require.Equal(t, 0, s.ActivePages())

	s.Close()
	require.Equal(t, 0, s.ActivePages())
}

func TestWithPageRequiresOpenSession(t *testing.T) {
	t.Parallel()

	metrics.Init()
	s := NewSession(Config{}, zap.NewNop())
	err := s.WithPage(context.Background(), func(Driver) error { return nil })
	require.Error(t, err)

	s = newTestSession(t)
	s.Close()
	err = s.WithPage(context.Background(), func(Driver) error { return nil })
	require.Error(t, err)
}

func TestConcurrentPagesGetDistinctHandles(t *testing.T) {
	t.Parallel()

	s := newTestSession(t)
	var mu sync.Mutex
	seen := map[string]bool{}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithPage(context.Background(), func(d Driver) error {
				page, ok := d.(*Page)
				require.True(t, ok)
				mu.Lock()
				require.False(t, seen[page.id])
				seen[page.id] = true
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	require.Len(t, seen, 8)
	require.Equal(t, 0, s.ActivePages())
}
