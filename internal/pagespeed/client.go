// Package pagespeed wraps the PageSpeed Insights v5 API.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"

// Config controls the PageSpeed client.
type Config struct {
	APIKey   string
	Endpoint string
	QPS      float64
	Timeout  time.Duration
}

// Result carries the Lighthouse category scores on a 0-100 scale plus
// the time-to-interactive audit in milliseconds.
type Result struct {
	Performance   float64
	Accessibility float64
	SEO           float64
	BestPractices float64
	InteractiveMs float64
}

// Client calls the PageSpeed Insights API with a QPS budget so bulk
// scans stay inside the API quota.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// New constructs a Client. httpClient may be nil.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}
	return &Client{cfg: cfg, http: httpClient, limiter: limiter}
}

// Analyze fetches Lighthouse scores for the URL. strategy is MOBILE
// unless mobile is false.
func (c *Client) Analyze(ctx context.Context, pageURL string, mobile bool) (Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("pagespeed rate limit: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("url", pageURL)
	if c.cfg.APIKey != "" {
		params.Set("key", c.cfg.APIKey)
	}
	strategy := "MOBILE"
	if !mobile {
		strategy = "DESKTOP"
	}
	params.Set("strategy", strategy)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build pagespeed request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("pagespeed request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("pagespeed status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode pagespeed response: %w", err)
	}

	lr := payload.LighthouseResult
	return Result{
		Performance:   lr.Categories.Performance.Score * 100,
		Accessibility: lr.Categories.Accessibility.Score * 100,
		SEO:           lr.Categories.SEO.Score * 100,
		BestPractices: lr.Categories.BestPractices.Score * 100,
		InteractiveMs: lr.Audits.Interactive.NumericValue,
	}, nil
}

type apiResponse struct {
	LighthouseResult struct {
		Categories struct {
			Performance   category `json:"performance"`
			Accessibility category `json:"accessibility"`
			SEO           category `json:"seo"`
			BestPractices category `json:"best-practices"`
		} `json:"categories"`
		Audits struct {
			Interactive struct {
				NumericValue float64 `json:"numericValue"`
			} `json:"interactive"`
		} `json:"audits"`
	} `json:"lighthouseResult"`
}

type category struct {
	Score float64 `json:"score"`
}
