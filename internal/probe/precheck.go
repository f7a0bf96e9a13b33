package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// DefaultAvailabilityTimeout bounds the pre-flight HEAD request.
const DefaultAvailabilityTimeout = 10 * time.Second

// CheckAvailability performs the pre-flight reachability check used
// before any scan record is created. It returns a
// *scan.UnreachableError when the site cannot be reached or answers
// with a client/server error.
func CheckAvailability(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration) error {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultAvailabilityTimeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, rawURL, nil)
	if err != nil {
		return &scan.UnreachableError{URL: rawURL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &scan.UnreachableError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		return &scan.UnreachableError{
			URL: rawURL,
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	}
	return nil
}
