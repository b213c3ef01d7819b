package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ragserver/internal/retry"
)

const maxBodyBytes = 10 << 20 // 10MB

// HTTPFetcher fetches pages with a shared politeness rate limit and bounded
// retries on transient failures.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	policy    retry.Policy
	limiter   *rate.Limiter
}

type FetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	Policy    retry.Policy
	// RequestsPerSecond bounds how hard we hit a host. Zero means 2 rps.
	RequestsPerSecond float64
}

func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = 2
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: cfg.UserAgent,
		policy:    cfg.Policy,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*SourceDocument, error) {
	var doc *SourceDocument

	err := f.policy.Do(ctx, func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return retry.Permanent(fmt.Errorf("fetch %s: status %d", url, resp.StatusCode))
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return err
		}

		doc = &SourceDocument{
			URL:       url,
			RawMarkup: string(body),
			FetchedAt: time.Now().UTC(),
			Status:    resp.StatusCode,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
