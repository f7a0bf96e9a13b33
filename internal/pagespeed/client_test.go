package pagespeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

const lighthousePayload = `{
	"lighthouseResult": {
		"categories": {
			"performance": {"score": 0.82},
			"accessibility": {"score": 0.91},
			"seo": {"score": 0.77},
			"best-practices": {"score": 0.65}
		},
		"audits": {
			"interactive": {"numericValue": 3470.5}
		}
	}
}`

func TestAnalyzeScalesCategoryScores(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "https://example.com", r.URL.Query().Get("url"))
		require.Equal(t, "MOBILE", r.URL.Query().Get("strategy"))
		require.Equal(t, "secret", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(lighthousePayload))
	}))
	defer srv.Close()

	client := New(Config{APIKey: "secret", Endpoint: srv.URL}, srv.Client())
	result, err := client.Analyze(context.Background(), "https://example.com", true)
	require.NoError(t, err)

	require.InDelta(t, 82.0, result.Performance, 0.001)
	require.InDelta(t, 91.0, result.Accessibility, 0.001)
	require.InDelta(t, 77.0, result.SEO, 0.001)
	require.InDelta(t, 65.0, result.BestPractices, 0.001)
	require.InDelta(t, 3470.5, result.InteractiveMs, 0.001)
}

func TestAnalyzeDesktopStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "DESKTOP", r.URL.Query().Get("strategy"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL}, srv.Client())
	_, err := client.Analyze(context.Background(), "https://example.com", false)
	require.NoError(t, err)
}

func TestAnalyzeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(Config{Endpoint: srv.URL}, srv.Client())
	_, err := client.Analyze(context.Background(), "https://example.com", true)
	require.ErrorContains(t, err, "pagespeed status 429")
}

func TestAnalyzeRespectsCanceledContextViaLimiter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	// 1 QPS with a burst of 1: the second call must wait, and a
	// canceled context aborts that wait before any request is sent.
	client := New(Config{Endpoint: srv.URL, QPS: 1}, srv.Client())
	_, err := client.Analyze(context.Background(), "https://example.com", true)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Analyze(ctx, "https://example.com", true)
	require.ErrorContains(t, err, "rate limit")
	require.Equal(t, int32(1), hits.Load())
}
