package enrich

import (
	"context"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
)

// Enricher produces a localized/annotated representation of extracted
// content. Implementations must always return usable fields: backend
// failure triggers a deterministic fallback, never an error.
type Enricher interface {
	Enrich(ctx context.Context, title, text string) domain.Enrichment
}

const (
	fallbackTag    = "general"
	fallbackImpact = "No analysis available"
)

var fallbackSummary = []string{
	"Full article text could not be retrieved",
	"AI analysis is not available for this item",
}

// Fallback is the deterministic degraded enrichment: the original title,
// generic summary fields, and neutral sentiment.
func Fallback(title string) domain.Enrichment {
	return domain.Enrichment{
		TitleLocal: title,
		Summary:    append([]string(nil), fallbackSummary...),
		Impact:     fallbackImpact,
		Sentiment:  0,
		Tag:        fallbackTag,
		Fallback:   true,
	}
}
