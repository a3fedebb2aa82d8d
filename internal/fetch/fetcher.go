package fetch

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/pkg/httpclient"
)

const (
	defaultTimeout   = 10 * time.Second
	maxHTMLBodyBytes = 1 << 20 // 1 MiB
)

// userAgents is cycled per request so consecutive fetches present different
// browser identities. Anti-bot-block measure, not a correctness requirement.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
}

// Fetcher resolves candidate links to their final destination and retrieves
// the raw page content. It never retries; retry policy belongs to the caller.
type Fetcher struct {
	client  httpclient.Client
	counter atomic.Uint64
}

// NewFetcher constructs a fetcher with the provided HTTP client (or default).
func NewFetcher(client httpclient.Client) *Fetcher {
	if client == nil {
		client = httpclient.NewRestyClient(defaultTimeout)
	}
	return &Fetcher{client: client}
}

// Resolve follows redirects from sourceURL and returns the final URL with
// the page body. On timeout, non-2xx status, or network error the result
// degrades to (sourceURL, nil): no content, not a pipeline error.
func (f *Fetcher) Resolve(ctx context.Context, sourceURL string) (domain.FetchResult, error) {
	result := domain.FetchResult{FinalURL: sourceURL}

	if strings.TrimSpace(sourceURL) == "" {
		return result, fmt.Errorf("source url is empty")
	}

	resp, err := f.client.Get(ctx, sourceURL, f.headers())
	if err != nil {
		return result, fmt.Errorf("fetch %s: %w", sourceURL, err)
	}

	if final := strings.TrimSpace(resp.FinalURL()); final != "" {
		result.FinalURL = final
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return result, fmt.Errorf("fetch %s: status %d", sourceURL, resp.StatusCode())
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}
	result.Body = body

	return result, nil
}

// headers builds a plausible browser request header set with a rotating
// User-Agent.
func (f *Fetcher) headers() map[string]string {
	idx := f.counter.Add(1) % uint64(len(userAgents))
	return map[string]string{
		"User-Agent":                userAgents[idx],
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Referer":                   "https://www.google.com/",
		"Upgrade-Insecure-Requests": "1",
	}
}
