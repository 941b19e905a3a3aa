// Package proteins fetches variation features from the EBI Proteins API.
package proteins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pathovar/internal/cache"
	"pathovar/internal/variant"
)

// DefaultBaseURL is the public Proteins API root.
const DefaultBaseURL = "https://www.ebi.ac.uk/proteins/api"

const userAgent = "pathovar/1.0 (+https://www.ebi.ac.uk/proteins/api/doc/)"

// ErrNotFound is returned when the API has no variation entry for an accession.
var ErrNotFound = errors.New("no variant data")

// Client looks up variation entries by accession. The zero value is not
// usable; call New.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Cache      cache.Store
	// Attempts bounds retries on 429/503 and transport errors.
	Attempts int
	// Backoff is the base delay between attempts when the server does not
	// send Retry-After.
	Backoff time.Duration
}

// New returns a client for baseURL (DefaultBaseURL when empty). A nil store
// disables caching.
func New(baseURL string, store cache.Store) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if store == nil {
		store = cache.Nop{}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		Cache:      store,
		Attempts:   3,
		Backoff:    300 * time.Millisecond,
	}
}

// Features returns the variation features of accession.
func (c *Client) Features(ctx context.Context, accession string) ([]variant.Feature, error) {
	e, err := c.Entry(ctx, accession)
	if err != nil {
		return nil, err
	}
	return e.Features, nil
}

// Entry returns the full variation entry of accession, from cache when fresh.
func (c *Client) Entry(ctx context.Context, accession string) (*variant.Entry, error) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return nil, fmt.Errorf("empty accession: %w", ErrNotFound)
	}
	if body, ok := c.Cache.Get(accession); ok {
		if e, err := decode(body); err == nil {
			return e, nil
		}
	}

	body, err := c.fetch(ctx, accession)
	if err != nil {
		return nil, err
	}
	e, err := decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode variation %s: %w", accession, err)
	}
	// cache write errors are not fatal
	_ = c.Cache.Put(accession, body)
	return e, nil
}

func decode(body []byte) (*variant.Entry, error) {
	var e variant.Entry
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *Client) fetch(ctx context.Context, accession string) ([]byte, error) {
	u := fmt.Sprintf("%s/variation/%s?format=json", c.BaseURL, url.PathEscape(accession))
	attempts := c.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)

		wait := time.Duration(attempt) * c.Backoff
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			data, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case resp.StatusCode == http.StatusOK:
				if rerr != nil {
					return nil, rerr
				}
				return data, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%s: %w", accession, ErrNotFound)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
				lastErr = fmt.Errorf("proteins api returned %d for %s", resp.StatusCode, accession)
				if ra, ok := retryAfter(resp.Header.Get("Retry-After")); ok {
					wait = ra
				}
			default:
				return nil, fmt.Errorf("proteins api returned status %d for %s: %s", resp.StatusCode, accession, snippet(data))
			}
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func retryAfter(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
