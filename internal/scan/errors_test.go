package scan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }

func TestIsTimeout(t *testing.T) {
	t.Parallel()
	require.True(t, IsTimeout(context.DeadlineExceeded))
	require.True(t, IsTimeout(fmt.Errorf("navigate: %w", context.DeadlineExceeded)))
	require.True(t, IsTimeout(timeoutErr{}))
	require.False(t, IsTimeout(errors.New("connection refused")))
	require.False(t, IsTimeout(nil))
}

func TestIsInfrastructure(t *testing.T) {
	t.Parallel()
	initErr := &InitializationError{Stage: "browser", Err: errors.New("no chrome binary")}
	storeErr := &StoreError{Op: "update", Err: errors.New("connection reset")}

	require.True(t, IsInfrastructure(initErr))
	require.True(t, IsInfrastructure(storeErr))
	require.True(t, IsInfrastructure(fmt.Errorf("run scan: %w", initErr)))

	require.False(t, IsInfrastructure(&ValidationError{Msg: "bad url"}))
	require.False(t, IsInfrastructure(&UnreachableError{URL: "https://example.com"}))
	require.False(t, IsInfrastructure(&AnalysisError{Source: "reviews", Err: errors.New("no place found")}))
	require.False(t, IsInfrastructure(nil))
}

func TestAnalysisErrorMentionsTimeouts(t *testing.T) {
	t.Parallel()
	err := &AnalysisError{Source: "website", Err: context.DeadlineExceeded}
	require.Contains(t, err.Error(), "website analysis timed out")

	err = &AnalysisError{Source: "google", Err: errors.New("quota exceeded")}
	require.Contains(t, err.Error(), "google analysis failed")
}

func TestErrorUnwrapChains(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")

	require.ErrorIs(t, &InitializationError{Stage: "browser", Err: cause}, cause)
	require.ErrorIs(t, &StoreError{Op: "get", Err: cause}, cause)
	require.ErrorIs(t, &UnreachableError{URL: "https://example.com", Err: cause}, cause)
	require.ErrorIs(t, &AnalysisError{Source: "ordering", Err: cause}, cause)
}
