package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/browser"
	"github.com/presencelab/presence-scanner/internal/probe"
	"github.com/presencelab/presence-scanner/internal/scan"
)

func orderingServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func orderingRequest(website string, pager probe.Pager) Request {
	return Request{
		Restaurant: scan.Restaurant{ID: "r-1", Name: "Taqueria Uno", Website: website},
		Pager:      pager,
	}
}

func TestOrderingAnalyzeCombinesSweeps(t *testing.T) {
	srv := orderingServer(t, `<html><body>
		<a href="/order">Order Pickup</a>
		<a href="/order-delivery">Delivery</a>
		<a href="https://www.doordash.com/store/uno">DoorDash</a>
		<a href="https://www.grubhub.com/restaurant/uno">Grubhub</a>
	</body></html>`)

	pager := &fakePager{driver: &fakeDriver{snap: browser.Snapshot{
		FinalURL:   srv.URL + "/",
		HTML:       `<html><body><a href="/order">Order Now</a> ubereats</body></html>`,
		InnerWidth: 375,
	}}}

	a := NewOrdering(probe.New(probe.Config{}, nil, zap.NewNop()), "", 5*time.Second, zap.NewNop())
	m := a.Analyze(context.Background(), orderingRequest(srv.URL, pager))

	require.Empty(t, m.Err)
	require.True(t, m.HasSystem)
	require.True(t, m.DirectOrdering)
	require.Len(t, m.DirectLinks, 2)
	require.ElementsMatch(t, []string{"doordash", "grubhub", "ubereats"}, m.Platforms)
	require.Equal(t, 1.0, m.ButtonEase)
	// 2 direct links (20) + 3 platforms (30) + multi-channel bonus (10).
	require.Equal(t, 60.0, m.IntegrationQuality)
}

func TestOrderingAnalyzeSurvivesBrowserFailure(t *testing.T) {
	srv := orderingServer(t, `<html><body><a href="/order">Order</a></body></html>`)
	pager := &fakePager{pageErr: context.DeadlineExceeded}

	a := NewOrdering(probe.New(probe.Config{}, nil, zap.NewNop()), "", 5*time.Second, zap.NewNop())
	m := a.Analyze(context.Background(), orderingRequest(srv.URL, pager))

	require.Empty(t, m.Err)
	require.True(t, m.HasSystem)
	require.True(t, m.DirectOrdering)
	require.Zero(t, m.ButtonEase)
}

func TestOrderingAnalyzeAbsorbsTotalFailure(t *testing.T) {
	srv := orderingServer(t, "")
	srv.Close()
	pager := &fakePager{pageErr: context.DeadlineExceeded}

	a := NewOrdering(probe.New(probe.Config{}, nil, zap.NewNop()), "", time.Second, zap.NewNop())
	m := a.Analyze(context.Background(), orderingRequest(srv.URL, pager))

	require.NotEmpty(t, m.Err)
	require.False(t, m.HasSystem)
	require.Zero(t, m.IntegrationQuality)
}

func TestOrderingAnalyzeNoOrderingPresence(t *testing.T) {
	srv := orderingServer(t, `<html><body><a href="/about">About Us</a></body></html>`)
	pager := &fakePager{driver: &fakeDriver{snap: browser.Snapshot{
		FinalURL: srv.URL + "/",
		HTML:     `<html><body><a href="/about">About Us</a></body></html>`,
	}}}

	a := NewOrdering(probe.New(probe.Config{}, nil, zap.NewNop()), "", 5*time.Second, zap.NewNop())
	m := a.Analyze(context.Background(), orderingRequest(srv.URL, pager))

	require.Empty(t, m.Err)
	require.False(t, m.HasSystem)
	require.Empty(t, m.DirectLinks)
	require.Empty(t, m.Platforms)
	require.Zero(t, m.IntegrationQuality)
}
