package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/places"
	"github.com/presencelab/presence-scanner/internal/scan"
)

// ProfileAPI is the directory-profile lookup. *places.Client satisfies it.
type ProfileAPI interface {
	FindProfile(ctx context.Context, r scan.Restaurant) (places.Profile, error)
}

// Profile analyzes the restaurant's directory listing.
type Profile struct {
	places ProfileAPI
	logger *zap.Logger
}

// NewProfile constructs the directory-profile analyzer.
func NewProfile(api ProfileAPI, logger *zap.Logger) *Profile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Profile{places: api, logger: logger}
}

// Analyze resolves the listing and maps it onto the profile metrics
// bag. Lookup failures produce the zero bag with Err set.
func (a *Profile) Analyze(ctx context.Context, req Request) *scan.ProfileMetrics {
	m := &scan.ProfileMetrics{}
	if a.places == nil {
		m.Err = absorb(a.logger, SourceProfile, errNotConfigured)
		return m
	}

	profile, err := a.places.FindProfile(ctx, req.Restaurant)
	if err != nil {
		m.Err = absorb(a.logger, SourceProfile, err)
		return m
	}

	m.Verified = profile.Verified
	m.Completeness = profile.Completeness
	m.ResponseRate = profile.ResponseRate
	m.PostFrequency = profile.PostFrequency
	m.Rating = profile.Rating
	m.ReviewCount = profile.ReviewCount
	return m
}
