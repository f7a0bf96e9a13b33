// Package places wraps the directory-profile and review lookups.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/presencelab/presence-scanner/internal/scan"
)

const defaultEndpoint = "https://maps.googleapis.com/maps/api/place"

// Config controls the places client.
type Config struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Profile carries the directory-profile signals used by scoring.
type Profile struct {
	Verified      bool
	Completeness  float64
	ResponseRate  float64
	PostFrequency float64
	Rating        float64
	ReviewCount   int
}

// Client resolves a restaurant to its directory profile and reviews.
type Client struct {
	cfg  Config
	http *http.Client
}

// New constructs a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, http: httpClient}
}

// FindProfile looks a restaurant up by name/address and maps the
// place details onto Profile signals. A place that cannot be found is
// an error; the analyzer above absorbs it into a default result.
func (c *Client) FindProfile(ctx context.Context, r scan.Restaurant) (Profile, error) {
	details, err := c.details(ctx, r)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		Verified:      details.BusinessStatus == "OPERATIONAL",
		Completeness:  completeness(details),
		ResponseRate:  details.ResponseRate,
		PostFrequency: details.PostFrequency,
		Rating:        details.Rating,
		ReviewCount:   details.UserRatingsTotal,
	}, nil
}

// FetchReviews returns the place's recent reviews, without sentiment;
// the reviews analyzer scores them.
func (c *Client) FetchReviews(ctx context.Context, r scan.Restaurant) ([]scan.Review, error) {
	details, err := c.details(ctx, r)
	if err != nil {
		return nil, err
	}
	reviews := make([]scan.Review, 0, len(details.Reviews))
	for _, raw := range details.Reviews {
		review := scan.Review{
			Rating: raw.Rating,
			Text:   raw.Text,
		}
		if raw.Time > 0 {
			ts := time.Unix(raw.Time, 0).UTC()
			review.Date = &ts
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

func (c *Client) details(ctx context.Context, r scan.Restaurant) (placeDetails, error) {
	placeID, err := c.findPlaceID(ctx, r)
	if err != nil {
		return placeDetails{}, err
	}
	if placeID == "" {
		return placeDetails{}, fmt.Errorf("no place found for %q", r.Name)
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	params.Set("fields", "name,rating,user_ratings_total,formatted_phone_number,website,opening_hours,photos,reviews,business_status")

	var payload detailsResponse
	if err := c.getJSON(ctx, c.cfg.Endpoint+"/details/json?"+params.Encode(), &payload); err != nil {
		return placeDetails{}, err
	}
	return payload.Result, nil
}

func (c *Client) findPlaceID(ctx context.Context, r scan.Restaurant) (string, error) {
	params := url.Values{}
	params.Set("query", r.Name+" "+r.Address)
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}

	var payload searchResponse
	if err := c.getJSON(ctx, c.cfg.Endpoint+"/textsearch/json?"+params.Encode(), &payload); err != nil {
		return "", err
	}
	if len(payload.Results) == 0 {
		return "", nil
	}
	return payload.Results[0].PlaceID, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build places request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("places request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("places status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode places response: %w", err)
	}
	return nil
}

// completeness is the share of core profile fields that are filled.
func completeness(d placeDetails) float64 {
	fields := []bool{
		d.Name != "",
		d.FormattedPhoneNumber != "",
		d.Website != "",
		d.OpeningHours != nil,
		len(d.Photos) > 0,
	}
	filled := 0
	for _, ok := range fields {
		if ok {
			filled++
		}
	}
	return float64(filled) / float64(len(fields)) * 100
}

type searchResponse struct {
	Results []struct {
		PlaceID string `json:"place_id"`
	} `json:"results"`
}

type detailsResponse struct {
	Result placeDetails `json:"result"`
}

type placeDetails struct {
	Name                 string          `json:"name"`
	BusinessStatus       string          `json:"business_status"`
	Rating               float64         `json:"rating"`
	UserRatingsTotal     int             `json:"user_ratings_total"`
	FormattedPhoneNumber string          `json:"formatted_phone_number"`
	Website              string          `json:"website"`
	OpeningHours         json.RawMessage `json:"opening_hours"`
	Photos               []struct {
		Reference string `json:"photo_reference"`
	} `json:"photos"`
	Reviews []struct {
		Rating float64 `json:"rating"`
		Text   string  `json:"text"`
		Time   int64   `json:"time"`
	} `json:"reviews"`
	ResponseRate  float64 `json:"response_rate"`
	PostFrequency float64 `json:"post_frequency"`
}
