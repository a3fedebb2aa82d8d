package discovery

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
)

const (
	googleNewsSearchURL = "https://news.google.com/rss/search"
	searchUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// Source supplies discovered candidates for a topic. Failure here is fatal
// for the topic's run: there is nothing to process.
type Source interface {
	Search(ctx context.Context, topic Topic) ([]domain.Candidate, error)
}

// googleNewsSource searches the Google News RSS endpoint for a topic query.
type googleNewsSource struct {
	parser  *gofeed.Parser
	baseURL string
}

// NewGoogleNewsSource builds the default Google News RSS discovery source.
func NewGoogleNewsSource() Source {
	return NewGoogleNewsSourceWithBase(googleNewsSearchURL)
}

// NewGoogleNewsSourceWithBase builds a source against a custom endpoint.
// Used by tests to point at a local server.
func NewGoogleNewsSourceWithBase(baseURL string) Source {
	parser := gofeed.NewParser()
	parser.UserAgent = searchUserAgent
	return &googleNewsSource{
		parser:  parser,
		baseURL: baseURL,
	}
}

// Search queries the RSS search endpoint and maps entries to candidates.
func (g *googleNewsSource) Search(ctx context.Context, topic Topic) ([]domain.Candidate, error) {
	feedURL := g.searchURL(topic)

	feed, err := g.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("search topic %q: %w", topic.ID, err)
	}

	limit := topic.MaxResults
	candidates := make([]domain.Candidate, 0, limit)
	for _, entry := range feed.Items {
		if len(candidates) >= limit {
			break
		}

		link := strings.TrimSpace(entry.Link)
		if link == "" {
			continue
		}

		title, publisher := splitTitlePublisher(entry.Title)
		if title == "" {
			continue
		}

		published := time.Time{}
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}

		candidates = append(candidates, domain.Candidate{
			Title:       title,
			SourceURL:   link,
			Publisher:   publisher,
			PublishedAt: strings.TrimSpace(entry.Published),
			Published:   published,
			Description: strings.TrimSpace(entry.Description),
		})
	}

	return candidates, nil
}

// searchURL assembles the RSS search URL for a topic. The recency window is
// expressed through the query's when: operator.
func (g *googleNewsSource) searchURL(topic Topic) string {
	query := topic.Query
	if topic.Period != "" {
		query += " when:" + topic.Period
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", topic.Language+"-"+topic.Country)
	params.Set("gl", topic.Country)
	params.Set("ceid", topic.Country+":"+topic.Language)

	return g.baseURL + "?" + params.Encode()
}

// splitTitlePublisher separates the publisher suffix Google News appends to
// entry titles ("Headline - Publisher").
func splitTitlePublisher(raw string) (title, publisher string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}

	idx := strings.LastIndex(raw, " - ")
	if idx <= 0 {
		return raw, ""
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+3:])
}
