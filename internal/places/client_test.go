package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/presencelab/presence-scanner/internal/scan"
)

const detailsPayload = `{
	"result": {
		"name": "Taqueria Uno",
		"business_status": "OPERATIONAL",
		"rating": 4.6,
		"user_ratings_total": 212,
		"formatted_phone_number": "(555) 010-0100",
		"website": "https://example.com",
		"opening_hours": {"open_now": true},
		"photos": [{"photo_reference": "ref-1"}],
		"reviews": [
			{"rating": 5, "text": "Delicious tacos, friendly staff.", "time": 1754000000},
			{"rating": 2, "text": "Slow service.", "time": 0}
		]
	}
}`

func placesServer(t *testing.T, detailsBody string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/textsearch/"):
			require.Contains(t, r.URL.Query().Get("query"), "Taqueria Uno")
			_, _ = w.Write([]byte(`{"results": [{"place_id": "place-1"}]}`))
		case strings.Contains(r.URL.Path, "/details/"):
			require.Equal(t, "place-1", r.URL.Query().Get("place_id"))
			_, _ = w.Write([]byte(detailsBody))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
}

func testRestaurant() scan.Restaurant {
	return scan.Restaurant{ID: "r-1", Name: "Taqueria Uno", Address: "1 Main St"}
}

func TestFindProfileMapsPlaceDetails(t *testing.T) {
	srv := placesServer(t, detailsPayload)
	defer srv.Close()
	client := New(Config{Endpoint: srv.URL}, srv.Client())

	profile, err := client.FindProfile(context.Background(), testRestaurant())
	require.NoError(t, err)

	require.True(t, profile.Verified)
	require.InDelta(t, 100.0, profile.Completeness, 0.001)
	require.InDelta(t, 4.6, profile.Rating, 0.001)
	require.Equal(t, 212, profile.ReviewCount)
}

func TestFindProfilePartialDetails(t *testing.T) {
	srv := placesServer(t, `{"result": {"name": "Taqueria Uno", "business_status": "CLOSED_TEMPORARILY"}}`)
	defer srv.Close()
	client := New(Config{Endpoint: srv.URL}, srv.Client())

	profile, err := client.FindProfile(context.Background(), testRestaurant())
	require.NoError(t, err)

	require.False(t, profile.Verified)
	require.InDelta(t, 20.0, profile.Completeness, 0.001)
}

func TestFetchReviewsKeepsUndatedEntries(t *testing.T) {
	srv := placesServer(t, detailsPayload)
	defer srv.Close()
	client := New(Config{Endpoint: srv.URL}, srv.Client())

	reviews, err := client.FetchReviews(context.Background(), testRestaurant())
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	require.InDelta(t, 5.0, reviews[0].Rating, 0.001)
	require.NotNil(t, reviews[0].Date)
	require.Equal(t, time.Unix(1754000000, 0).UTC(), *reviews[0].Date)

	// A zero timestamp means the platform withheld the date.
	require.Nil(t, reviews[1].Date)
}

func TestFindProfileNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()
	client := New(Config{Endpoint: srv.URL}, srv.Client())

	_, err := client.FindProfile(context.Background(), testRestaurant())
	require.ErrorContains(t, err, "no place found")
}

func TestFindProfileUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	client := New(Config{Endpoint: srv.URL}, srv.Client())

	_, err := client.FindProfile(context.Background(), testRestaurant())
	require.ErrorContains(t, err, "places status 429")
}
