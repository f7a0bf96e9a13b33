// Package scoring maps analyzer metrics to category and composite
// scores. Everything here is pure and deterministic: no I/O, no clock
// reads, outputs clamped to [0,100].
package scoring

import (
	"math"
	"time"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// Category weights for the composite score.
const (
	websiteWeight  = 0.30
	profileWeight  = 0.30
	reviewsWeight  = 0.25
	orderingWeight = 0.15
)

// Summary is the scored view of one scan's joined results.
type Summary struct {
	Website   float64 `json:"website"`
	Profile   float64 `json:"google"`
	Reviews   float64 `json:"reviews"`
	Ordering  float64 `json:"ordering"`
	Composite float64 `json:"overall_score"`
	Grade     string  `json:"letter_grade"`
}

// Clamp bounds a score to [0,100].
func Clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

// Website scores website quality. The Lighthouse composite carries 60%
// of the weight; mobile friendliness, SSL, and ordering presence split
// the rest. A nil or empty bag scores 0.
func Website(m *scan.WebsiteMetrics) float64 {
	if m == nil {
		return 0
	}

	pagespeed := 0.0
	if m.HasPageSpeedData() {
		pagespeed = m.PerformanceScore*0.40 +
			m.AccessibilityScore*0.25 +
			m.SEOScore*0.20 +
			m.BestPracticesScore*0.15
	}

	return Clamp(pagespeed*0.60 +
		boolScore(m.MobileFriendly)*0.15 +
		boolScore(m.HasSSL)*0.15 +
		boolScore(hasOrdering(m))*0.10)
}

// Profile scores the directory profile: verification 30, completeness
// up to 30, response rate up to 20, post frequency up to 20.
func Profile(m *scan.ProfileMetrics) float64 {
	if m == nil {
		return 0
	}
	score := 0.0
	if m.Verified {
		score += 30
	}
	score += math.Min(m.Completeness*0.5, 30)
	score += math.Min(m.ResponseRate*2, 20)
	score += math.Min(m.PostFrequency*2, 20)
	return Clamp(score)
}

// Reviews scores rating (up to 40), volume (up to 30), and a blended
// recency/sentiment signal (up to 30). Reviews without dates do not
// contribute to the recency blend; if none carry dates it is 0.
func Reviews(m *scan.ReviewMetrics, now time.Time) float64 {
	if m == nil {
		return 0
	}
	score := math.Min(m.AvgRating*20, 40)
	score += math.Min(float64(m.ReviewCount)*0.3, 30)
	score += recencySentiment(m.Reviews, now)
	return Clamp(score)
}

func recencySentiment(reviews []scan.Review, now time.Time) float64 {
	blended := make([]float64, 0, len(reviews))
	for _, review := range reviews {
		if review.Date == nil {
			continue
		}
		days := now.Sub(*review.Date).Hours() / 24
		recency := math.Max(0, 100-days/30*100)
		blended = append(blended, (recency+review.SentimentScore)/2)
	}
	if len(blended) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range blended {
		sum += v
	}
	return math.Min(sum/float64(len(blended)), 30)
}

// Ordering scores online-ordering capability: system presence 40,
// platform breadth up to 30, direct ordering 20, button ease up to 10.
func Ordering(m *scan.OrderingMetrics) float64 {
	if m == nil {
		return 0
	}
	score := 0.0
	if m.HasSystem {
		score += 40
	}
	score += math.Min(float64(len(m.Platforms))*10, 30)
	if m.DirectOrdering {
		score += 20
	}
	score += math.Min(m.ButtonEase*10, 10)
	return Clamp(score)
}

// Composite combines category scores with the 30/30/25/15 weighting,
// rounded to two decimals.
func Composite(website, profile, reviews, ordering float64) float64 {
	total := website*websiteWeight +
		profile*profileWeight +
		reviews*reviewsWeight +
		ordering*orderingWeight
	return round2(Clamp(total))
}

// Grade bands a composite score into a letter grade.
func Grade(composite float64) string {
	switch {
	case composite >= 90:
		return "A"
	case composite >= 80:
		return "B"
	case composite >= 70:
		return "C"
	case composite >= 60:
		return "D"
	default:
		return "F"
	}
}

// Compose scores all four categories and the composite. Absent bags
// score 0; scoring never infers missing data from other categories.
func Compose(results scan.Results, now time.Time) Summary {
	s := Summary{
		Website:  round2(Website(results.Website)),
		Profile:  round2(Profile(results.Profile)),
		Reviews:  round2(Reviews(results.Reviews, now)),
		Ordering: round2(Ordering(results.Ordering)),
	}
	s.Composite = Composite(s.Website, s.Profile, s.Reviews, s.Ordering)
	s.Grade = Grade(s.Composite)
	return s
}

func hasOrdering(m *scan.WebsiteMetrics) bool {
	return m.OrderButton.Detected || m.OrderingLinks > 0 || len(m.Platforms) > 0
}

func boolScore(b bool) float64 {
	if b {
		return 100
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
