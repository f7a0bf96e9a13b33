package probe

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// Literal text patterns tried first, in order; first match wins.
var orderTextPatterns = []string{
	"order", "order now", "order online",
	"delivery", "pickup", "menu", "food",
}

// Selector patterns tried only when no text pattern matched.
var orderSelectorPatterns = []string{
	"a.order", ".order-button", "button.order",
	`a[href*="order"]`, `button[data-testid*="order"]`,
}

// Platform name -> domain substring looked for in the page source.
// Platform detection is orthogonal to button detection, not a tie-break.
var orderingPlatforms = map[string]string{
	"doordash":  "doordash",
	"ubereats":  "ubereats",
	"grubhub":   "grubhub",
	"postmates": "postmates",
	"seamless":  "seamless",
	"chownow":   "chownow",
	"toasttab":  "toasttab",
}

// Anchor keywords counted as direct ordering links.
var orderingLinkKeywords = []string{"order", "delivery"}

// DetectOrderButton runs the order-button heuristics over a DOM
// snapshot: visible interactive text first, then selector patterns,
// and independently a sweep for third-party platform substrings.
func DetectOrderButton(html string) (scan.OrderButton, []string) {
	button := scan.OrderButton{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return button, detectPlatforms(html)
	}

	interactive := doc.Find("a, button, [role=button], input[type=submit]")

	for _, pattern := range orderTextPatterns {
		var found *goquery.Selection
		interactive.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(elementText(sel)), pattern) {
				found = sel
				return false
			}
			return true
		})
		if found != nil {
			button.Detected = true
			button.Text = strings.TrimSpace(elementText(found))
			button.Selector = inferSelector(found)
			break
		}
	}

	if !button.Detected {
		for _, selector := range orderSelectorPatterns {
			sel := doc.Find(selector).First()
			if sel.Length() == 0 {
				continue
			}
			button.Detected = true
			button.Text = strings.TrimSpace(elementText(sel))
			if button.Text == "" {
				button.Text = selector
			}
			button.Selector = selector
			break
		}
	}

	return button, detectPlatforms(html)
}

func detectPlatforms(html string) []string {
	lower := strings.ToLower(html)
	found := make([]string, 0, len(orderingPlatforms))
	for name, substr := range orderingPlatforms {
		if strings.Contains(lower, substr) {
			found = append(found, name)
		}
	}
	sort.Strings(found)
	return found
}

// MatchPlatform reports which known third-party ordering platform, if
// any, a URL or snippet belongs to.
func MatchPlatform(s string) (string, bool) {
	lower := strings.ToLower(s)
	for name, substr := range orderingPlatforms {
		if strings.Contains(lower, substr) {
			return name, true
		}
	}
	return "", false
}

// IsOrderingLink reports whether an anchor's href/text reads like a
// direct ordering link.
func IsOrderingLink(href, text string) bool {
	haystack := strings.ToLower(href + " " + text)
	for _, kw := range orderingLinkKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func elementText(sel *goquery.Selection) string {
	if goquery.NodeName(sel) == "input" {
		value, _ := sel.Attr("value")
		return value
	}
	return sel.Text()
}

// inferSelector builds a CSS-like selector from the element's own
// attributes: id wins, then classes, then the bare tag name.
func inferSelector(sel *goquery.Selection) string {
	if id, ok := sel.Attr("id"); ok && id != "" {
		return "#" + id
	}
	if class, ok := sel.Attr("class"); ok && strings.TrimSpace(class) != "" {
		return "." + strings.Join(strings.Fields(class), ".")
	}
	return goquery.NodeName(sel)
}

// MetaDescription extracts <meta name="description"> content.
func MetaDescription(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	content, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

// HasContactForm reports whether the page carries a contact form or an
// email capture input.
func HasContactForm(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	return doc.Find(`form[name*="contact"], input[type="email"]`).Length() > 0
}

// CountOrderingLinks counts anchors whose href or text mentions an
// ordering keyword.
func CountOrderingLinks(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}
	count := 0
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if IsOrderingLink(href, sel.Text()) {
			count++
		}
	})
	return count
}
