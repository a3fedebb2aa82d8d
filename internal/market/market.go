package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
	"github.com/pulsefeed-hq/pulse-news-radar/pkg/httpclient"
)

const fetchTimeout = 10 * time.Second

// Snapshot is the single market/reference document refreshed once per run,
// decoupled from the news pipeline.
type Snapshot struct {
	USD     string `json:"usd"`
	Updated string `json:"updated"`
}

// fallbackSnapshot is written when the rate cannot be determined.
func fallbackSnapshot() Snapshot {
	return Snapshot{USD: "N/A", Updated: "--:--"}
}

// Client scrapes a reference page for the USD rate and persists a snapshot.
type Client struct {
	client httpclient.Client
	url    string
	path   string
	now    func() time.Time
	log    logger.Logger
}

// NewClient builds a market client with the provided HTTP client (or default).
func NewClient(rateURL, path string, client httpclient.Client, log logger.Logger) *Client {
	if client == nil {
		client = httpclient.NewRestyClient(fetchTimeout)
	}
	return &Client{
		client: client,
		url:    rateURL,
		path:   path,
		now:    time.Now,
		log:    logger.Ensure(log),
	}
}

// Refresh fetches the current rate and writes the snapshot document. Any
// scrape failure degrades to the fallback snapshot; only a persistence
// failure is reported.
func (c *Client) Refresh(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("market client is not initialized")
	}

	snapshot := fallbackSnapshot()
	if rate, err := c.fetchRate(ctx); err != nil {
		c.log.WarnObj("market rate fetch failed; writing fallback", "market_error", map[string]any{
			"url":   c.url,
			"error": err.Error(),
		})
	} else {
		snapshot = Snapshot{
			USD:     groupDigits(rate),
			Updated: c.now().Format("15:04"),
		}
	}

	return c.write(snapshot)
}

// fetchRate scrapes the page's rate input element and converts the quoted
// value to the published unit.
func (c *Client) fetchRate(ctx context.Context) (int64, error) {
	if strings.TrimSpace(c.url) == "" {
		return 0, fmt.Errorf("market url is empty")
	}

	resp, err := c.client.Get(ctx, c.url, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch market page: %w", err)
	}
	if resp.StatusCode() != 200 {
		return 0, fmt.Errorf("market page returned status %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return 0, fmt.Errorf("parse market page: %w", err)
	}

	node := doc.Find(`input[data-curr="tmn"]`).First()
	if node.Length() == 0 {
		return 0, fmt.Errorf("rate element not found")
	}

	raw, ok := node.Attr("data-price")
	if !ok || strings.TrimSpace(raw) == "" {
		raw, _ = node.Attr("value")
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return 0, fmt.Errorf("rate element has no value")
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse rate value %q: %w", raw, err)
	}

	// The page quotes the subunit; the snapshot publishes the main unit.
	rate := value / 10
	if rate <= 0 {
		return 0, fmt.Errorf("non-positive rate %d", rate)
	}
	return rate, nil
}

// write persists the snapshot with write-then-rename.
func (c *Client) write(snapshot Snapshot) error {
	dir := filepath.Dir(c.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create market directory: %w", err)
		}
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode market snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp market file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp market file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp market file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace market file: %w", err)
	}
	return nil
}

// groupDigits renders 1234567 as "1,234,567".
func groupDigits(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var out strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(digit)
	}

	if neg {
		return "-" + out.String()
	}
	return out.String()
}
