package pipeline

import (
	"context"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
)

// Fetcher resolves a candidate link to its final destination and raw content.
type Fetcher interface {
	Resolve(ctx context.Context, sourceURL string) (domain.FetchResult, error)
}

// Extractor turns raw page content into structured article content.
type Extractor interface {
	Extract(finalURL string, body []byte) domain.ExtractedArticle
}

// Enricher produces the localized/annotated fields for one item.
type Enricher interface {
	Enrich(ctx context.Context, title, text string) domain.Enrichment
}

// Illustrator synthesizes an image reference when extraction found none.
type Illustrator interface {
	Generate(title string) string
}

// Deduper answers whether a URL identity was already processed. Mutation of
// the history happens outside the pipeline, after a successful store commit.
type Deduper interface {
	SeenURL(url string) (bool, error)
}
