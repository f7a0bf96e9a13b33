package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/places"
	sentiment "github.com/presencelab/presence-scanner/internal/reviews"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// ReviewAPI is the review fetch surface. *places.Client satisfies it.
// The profile lookup is needed too: the review feed is capped at a
// handful of entries, so the aggregate rating and total count come
// from the listing rather than from the feed.
type ReviewAPI interface {
	FindProfile(ctx context.Context, r scan.Restaurant) (places.Profile, error)
	FetchReviews(ctx context.Context, r scan.Restaurant) ([]scan.Review, error)
}

// Reviews analyzes customer reviews: fetches the feed, scores each
// entry for sentiment, and carries the aggregate rating/count.
type Reviews struct {
	places ReviewAPI
	logger *zap.Logger
}

// NewReviews constructs the reviews analyzer.
func NewReviews(api ReviewAPI, logger *zap.Logger) *Reviews {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviews{places: api, logger: logger}
}

// Analyze fetches and sentiment-scores the review feed. Failures
// produce the zero bag with Err set.
func (a *Reviews) Analyze(ctx context.Context, req Request) *scan.ReviewMetrics {
	m := &scan.ReviewMetrics{}
	if a.places == nil {
		m.Err = absorb(a.logger, SourceReviews, errNotConfigured)
		return m
	}

	fetched, err := a.places.FetchReviews(ctx, req.Restaurant)
	if err != nil {
		m.Err = absorb(a.logger, SourceReviews, err)
		return m
	}

	for i := range fetched {
		fetched[i].SentimentScore = sentiment.Score(fetched[i].Text)
	}
	m.Reviews = fetched
	m.AvgRating = meanRating(fetched)
	m.ReviewCount = len(fetched)

	// The feed is a sample; prefer the listing's aggregate numbers
	// when the lookup succeeds.
	if profile, err := a.places.FindProfile(ctx, req.Restaurant); err == nil {
		if profile.Rating > 0 {
			m.AvgRating = profile.Rating
		}
		if profile.ReviewCount > 0 {
			m.ReviewCount = profile.ReviewCount
		}
	} else {
		a.logger.Warn("review aggregate lookup failed",
			zap.String("restaurant", req.Restaurant.Name), zap.Error(err))
	}
	return m
}

func meanRating(reviews []scan.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews))
}
