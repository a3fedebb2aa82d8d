package domain

import "time"

// Domain contains core models shared across the pipeline.

// Candidate is a discovered news entry before any fetching or enrichment.
// It lives for a single run.
type Candidate struct {
	Title       string
	SourceURL   string
	Publisher   string
	PublishedAt string
	Published   time.Time
	Description string
}

// FetchResult carries the resolved destination of a candidate link and the
// raw page content. Body is nil when retrieval failed; FinalURL falls back
// to the requested URL when resolution failed.
type FetchResult struct {
	FinalURL string
	Body     []byte
}

// ExtractedArticle is the best-effort structured content of a page. Both
// fields may be empty when extraction degraded.
type ExtractedArticle struct {
	Text     string
	ImageURL string
}

// Enrichment holds the localized/annotated fields produced for one item.
// Fallback marks the deterministic degraded result used when the backend
// was unavailable or returned an unparseable response.
type Enrichment struct {
	TitleLocal string
	Body       string
	Summary    []string
	Impact     string
	Sentiment  float64
	Tag        string
	Fallback   bool
}

// Item is the stored atom of the radar: one enriched news entry. It is
// created once by the pipeline and never mutated afterwards.
type Item struct {
	TitleLocal string   `json:"title_local"`
	TitleOrig  string   `json:"title_orig"`
	Body       string   `json:"body,omitempty"`
	Summary    []string `json:"summary,omitempty"`
	Impact     string   `json:"impact,omitempty"`
	Sentiment  float64  `json:"sentiment"`
	Tag        string   `json:"tag,omitempty"`
	Source     string   `json:"source"`
	URL        string   `json:"url"`
	Image      string   `json:"image,omitempty"`
	Date       string   `json:"date"`
	Timestamp  int64    `json:"timestamp"`
}
