package scoring

import (
	"sort"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// Recommendation priorities, highest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var priorityRank = map[string]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// maxRecommendations caps the list so the report stays actionable.
const maxRecommendations = 5

// Recommend derives improvement suggestions from website metrics. The
// list is ordered by priority and capped; within a priority the rule
// order above decides.
func Recommend(m *scan.WebsiteMetrics) []scan.Recommendation {
	if m == nil {
		return nil
	}

	var recs []scan.Recommendation
	add := func(priority, title, description string) {
		recs = append(recs, scan.Recommendation{
			Category:    "website",
			Priority:    priority,
			Title:       title,
			Description: description,
		})
	}

	if !m.HasSSL {
		add(PriorityHigh, "Enable HTTPS",
			"Secure your website with an SSL certificate. Unencrypted sites are penalized by search engines and scare customers away.")
	}
	if !m.MobileFriendly {
		add(PriorityHigh, "Optimize for Mobile Devices",
			"Most diners browse on their phones. Use a responsive layout that adapts to small screens.")
	}
	if m.HasPageSpeedData() {
		switch {
		case m.PerformanceScore < 50:
			add(PriorityHigh, "Improve Page Performance",
				"Your performance score is critically low. Compress images, defer scripts, and cut render-blocking resources.")
		case m.PerformanceScore < 75:
			add(PriorityMedium, "Improve Page Performance",
				"Your performance score has room to grow. Compress images and reduce script weight.")
		}
	}
	switch {
	case m.LoadTimeMs > 5000:
		add(PriorityHigh, "Reduce Page Load Time",
			"Pages taking over 5 seconds lose most visitors. Audit large assets and third-party scripts.")
	case m.LoadTimeMs > 3000:
		add(PriorityMedium, "Reduce Page Load Time",
			"Pages taking over 3 seconds frustrate visitors. Trim heavy assets.")
	}
	if m.OrderingLinks == 0 && !m.OrderButton.Detected {
		add(PriorityHigh, "Add Online Ordering Button",
			"No ordering link was found on your homepage. A prominent order button converts visits into sales.")
	}
	if m.HasPageSpeedData() {
		if m.BestPracticesScore < 80 {
			add(PriorityMedium, "Follow Web Best Practices",
				"Fix console errors, outdated libraries, and insecure resource loads flagged by Lighthouse.")
		}
		if m.SEOScore < 70 {
			add(PriorityMedium, "Improve Search Visibility",
				"Add structured data, descriptive titles, and crawlable links so diners can find you.")
		}
		if m.AccessibilityScore < 70 {
			add(PriorityMedium, "Improve Accessibility",
				"Add alt text, label form fields, and fix color contrast so all visitors can use the site.")
		}
	}
	if !m.HasContactForm {
		add(PriorityLow, "Add a Contact Form",
			"A simple contact form lets customers reach you for events and catering inquiries.")
	}
	if m.MetaDescription == "" {
		add(PriorityLow, "Add a Meta Description",
			"A meta description controls how your site appears in search results.")
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return priorityRank[recs[i].Priority] < priorityRank[recs[j].Priority]
	})
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}
