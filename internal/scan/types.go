// Package scan defines core types shared across subsystems.
package scan

import "time"

// Status represents the lifecycle state of a scan.
type Status string

// Scan status values persisted in the store.
const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusPartial    Status = "partial"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial:
		return true
	default:
		return false
	}
}

// Category selects which analyzers a scan runs.
type Category string

// Scan categories.
const (
	CategoryWebsiteOnly   Category = "website_only"
	CategoryComprehensive Category = "comprehensive"
)

// Restaurant describes the business being scanned.
type Restaurant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Website string `json:"website"`
	Email   string `json:"email,omitempty"`
}

// OrderButton holds the order-button detection outcome for one page.
type OrderButton struct {
	Detected bool   `json:"detected"`
	Text     string `json:"text,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// ProbeOutcome is the raw signal set extracted in one browser pass.
type ProbeOutcome struct {
	URL             string      `json:"url"`
	FinalURL        string      `json:"final_url"`
	HasSSL          bool        `json:"has_ssl"`
	MobileFriendly  bool        `json:"mobile_responsive"`
	PageTitle       string      `json:"page_title"`
	MetaDescription string      `json:"meta_description"`
	HasContactForm  bool        `json:"has_contact_form"`
	OrderingLinks   int         `json:"ordering_links_count"`
	OrderButton     OrderButton `json:"order_button"`
	Platforms       []string    `json:"platforms"`
	ScreenshotURI   string      `json:"screenshot_uri,omitempty"`
	LoadTime        time.Duration
	Error           string `json:"error,omitempty"`
}

// WebsiteMetrics is the website analyzer's result bag.
type WebsiteMetrics struct {
	URL                string      `json:"url"`
	HasSSL             bool        `json:"https_enabled"`
	MobileFriendly     bool        `json:"mobile_friendly"`
	PageTitle          string      `json:"page_title"`
	MetaDescription    string      `json:"meta_description"`
	HasContactForm     bool        `json:"has_contact_form"`
	OrderingLinks      int         `json:"online_ordering_links_count"`
	OrderButton        OrderButton `json:"order_button"`
	Platforms          []string    `json:"platforms,omitempty"`
	PerformanceScore   float64     `json:"performance_score"`
	AccessibilityScore float64     `json:"accessibility_score"`
	SEOScore           float64     `json:"seo_score"`
	BestPracticesScore float64     `json:"best_practices_score"`
	LoadTimeMs         float64     `json:"loading_time_ms"`
	ScreenshotURI      string      `json:"screenshot_uri,omitempty"`
	Err                string      `json:"error,omitempty"`
}

// HasPageSpeedData reports whether any Lighthouse sub-metric was captured.
func (m WebsiteMetrics) HasPageSpeedData() bool {
	return m.PerformanceScore > 0 || m.AccessibilityScore > 0 ||
		m.SEOScore > 0 || m.BestPracticesScore > 0
}

// ProfileMetrics is the directory-profile analyzer's result bag.
type ProfileMetrics struct {
	Verified      bool    `json:"is_verified"`
	Completeness  float64 `json:"profile_completeness"`
	ResponseRate  float64 `json:"response_rate"`
	PostFrequency float64 `json:"post_frequency"`
	Rating        float64 `json:"rating,omitempty"`
	ReviewCount   int     `json:"review_count,omitempty"`
	Err           string  `json:"error,omitempty"`
}

// Review is a single customer review with derived scores.
type Review struct {
	Rating         float64    `json:"rating"`
	Text           string     `json:"text"`
	Date           *time.Time `json:"date,omitempty"`
	SentimentScore float64    `json:"sentiment_score"`
}

// ReviewMetrics is the reviews analyzer's result bag.
type ReviewMetrics struct {
	AvgRating   float64  `json:"avg_rating"`
	ReviewCount int      `json:"review_count"`
	Reviews     []Review `json:"reviews,omitempty"`
	Err         string   `json:"error,omitempty"`
}

// OrderingMetrics is the ordering analyzer's result bag.
type OrderingMetrics struct {
	HasSystem          bool     `json:"has_ordering_system"`
	DirectLinks        []string `json:"direct_ordering_links,omitempty"`
	Platforms          []string `json:"third_party_platforms,omitempty"`
	DirectOrdering     bool     `json:"direct_ordering"`
	ButtonEase         float64  `json:"order_button_ease"`
	IntegrationQuality float64  `json:"integration_quality"`
	Err                string   `json:"error,omitempty"`
}

// Results joins the four per-source metric bags. A nil slot means the
// analyzer never ran and is treated as no evidence, not as an error.
type Results struct {
	Website  *WebsiteMetrics  `json:"website,omitempty"`
	Profile  *ProfileMetrics  `json:"google,omitempty"`
	Reviews  *ReviewMetrics   `json:"reviews,omitempty"`
	Ordering *OrderingMetrics `json:"ordering,omitempty"`
}

// Recommendation is one actionable improvement suggestion.
type Recommendation struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Record is the persisted representation of one scan.
type Record struct {
	ID           string     `json:"id"`
	Restaurant   Restaurant `json:"restaurant"`
	Category     Category   `json:"category"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Results      Results    `json:"analysis_data"`
	WebsiteScore float64    `json:"website_score"`
	Composite    float64    `json:"overall_score"`
	Grade        string     `json:"letter_grade,omitempty"`
	RetryOf      string     `json:"retry_of,omitempty"`
	ErrorText    string     `json:"error,omitempty"`
}

// QueueItem wraps a scan ready to run.
type QueueItem struct {
	ScanID    string
	Attempt   int
	Submitted int64
}
