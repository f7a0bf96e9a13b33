package reviews

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreNeutralForEmptyOrUnknownText(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 50.0, Score(""), 0.001)
	require.InDelta(t, 50.0, Score("   "), 0.001)
	require.InDelta(t, 50.0, Score("we ate lunch here on tuesday"), 0.001)
}

func TestScorePositiveReview(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 100.0, Score("Delicious food, friendly staff, would recommend!"), 0.001)
}

func TestScoreNegativeReview(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 0.0, Score("Terrible. Cold food and rude service."), 0.001)
}

func TestScoreMixedReview(t *testing.T) {
	t.Parallel()
	// One positive against one negative cancels out to neutral.
	require.InDelta(t, 50.0, Score("great tacos but slow service"), 0.001)

	// Two positives against one negative lands above neutral.
	got := Score("delicious and fresh, though slow")
	require.Greater(t, got, 50.0)
	require.Less(t, got, 100.0)
}

func TestScoreStripsPunctuation(t *testing.T) {
	t.Parallel()
	require.InDelta(t, 100.0, Score("Amazing!!!"), 0.001)
	require.InDelta(t, 0.0, Score("'worst'"), 0.001)
}

func TestScoreIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	require.Equal(t, Score("EXCELLENT"), Score("excellent"))
}
