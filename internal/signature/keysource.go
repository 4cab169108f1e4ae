package signature

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Key fetch policy. The platform keyserver is occasionally flaky, so fetches
// are retried a small bounded number of times with exponential backoff.
const (
	fetchTimeout    = 5 * time.Second
	fetchAttempts   = 5
	fetchBackoffMin = 250 * time.Millisecond
	fetchBackoffMax = 2 * time.Second
)

// KeySource resolves a key id to PEM-encoded public key material. It may be
// invoked concurrently for different key ids.
type KeySource interface {
	FetchKey(ctx context.Context, keyID string) (string, error)
}

// HTTPKeySource fetches public keys from the platform keyserver over HTTPS.
type HTTPKeySource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPKeySource builds a key source for the given keyserver base URL.
func NewHTTPKeySource(baseURL string) *HTTPKeySource {
	return &HTTPKeySource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

// FetchKey downloads the PEM body for a key id, retrying transient failures
// with backoff. Key ids are URL-safe per the platform spec, so no encoding is
// applied; a leading slash is tolerated.
func (s *HTTPKeySource) FetchKey(ctx context.Context, keyID string) (string, error) {
	url := s.baseURL + "/" + strings.TrimLeft(keyID, "/")

	var lastErr error
	backoff := fetchBackoffMin
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, fetchBackoffMax)
		}

		body, err := s.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("key fetch failed after %d attempts: %w", fetchAttempts, lastErr)
}

func (s *HTTPKeySource) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keyserver returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
