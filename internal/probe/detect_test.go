package probe

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectOrderButtonPrefersVisibleText(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<a href="/about">About Us</a>
		<a id="cta" href="/order">Order Now</a>
		<button class="order">Order</button>
	</body></html>`

	button, platforms := DetectOrderButton(html)
	require.True(t, button.Detected)
	require.Equal(t, "Order Now", button.Text)
	require.Equal(t, "#cta", button.Selector)
	require.Empty(t, platforms)
}

func TestDetectOrderButtonFallsBackToSelectors(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<a href="/about">About Us</a>
		<a class="order" href="/o">Start</a>
	</body></html>`

	button, _ := DetectOrderButton(html)
	require.True(t, button.Detected)
	require.Equal(t, "a.order", button.Selector)
}

func TestDetectOrderButtonReadsSubmitInputValue(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<form><input type="submit" value="Order pickup"></form>
	</body></html>`

	button, _ := DetectOrderButton(html)
	require.True(t, button.Detected)
	require.Equal(t, "Order pickup", button.Text)
}

func TestDetectOrderButtonNothingToFind(t *testing.T) {
	t.Parallel()
	button, platforms := DetectOrderButton(`<html><body><p>Hours: 9-5</p></body></html>`)
	require.False(t, button.Detected)
	require.Empty(t, button.Text)
	require.Empty(t, platforms)
}

func TestDetectPlatformsAreSorted(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<a href="https://www.ubereats.com/store/x">Uber Eats</a>
		<a href="https://www.doordash.com/store/x">DoorDash</a>
		<script src="https://widget.chownow.com/embed.js"></script>
	</body></html>`

	_, platforms := DetectOrderButton(html)
	require.Equal(t, []string{"chownow", "doordash", "ubereats"}, platforms)
}

func TestMatchPlatform(t *testing.T) {
	t.Parallel()
	name, ok := MatchPlatform("https://order.toasttab.com/online/my-place")
	require.True(t, ok)
	require.Equal(t, "toasttab", name)

	_, ok = MatchPlatform("https://example.com/menu")
	require.False(t, ok)
}

func TestIsOrderingLink(t *testing.T) {
	t.Parallel()
	require.True(t, IsOrderingLink("/order-online", "Start"))
	require.True(t, IsOrderingLink("/food", "Delivery options"))
	require.False(t, IsOrderingLink("/about", "Our story"))
}

func TestMetaDescription(t *testing.T) {
	t.Parallel()
	html := `<html><head>
		<meta name="description" content=" Best tacos in town. ">
	</head><body></body></html>`
	require.Equal(t, "Best tacos in town.", MetaDescription(html))
	require.Empty(t, MetaDescription(`<html><head></head></html>`))
}

func TestHasContactForm(t *testing.T) {
	t.Parallel()
	require.True(t, HasContactForm(`<form name="contact-us"><input type="text"></form>`))
	require.True(t, HasContactForm(`<form><input type="email"></form>`))
	require.False(t, HasContactForm(`<form><input type="text" name="search"></form>`))
}

func TestCountOrderingLinks(t *testing.T) {
	t.Parallel()
	html := `<html><body>
		<a href="/order">Order</a>
		<a href="/contact">Delivery FAQ</a>
		<a href="/about">About</a>
	</body></html>`
	require.Equal(t, 2, CountOrderingLinks(html))
	require.Equal(t, 0, CountOrderingLinks(`<p>no links</p>`))
}
