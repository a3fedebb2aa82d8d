package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
)

// Batch is the outcome of one pipeline pass: the enriched items and the URL
// identities (discovery plus resolved form) belonging to them. Identities
// must only be committed to the history after the items were stored.
type Batch struct {
	Items      []domain.Item
	Identities []string
}

// Pipeline runs Fetch→Extract→Enrich per candidate across a bounded pool of
// workers. Individual failures never abort the batch.
type Pipeline struct {
	fetcher     Fetcher
	extractor   Extractor
	enricher    Enricher
	illustrator Illustrator
	deduper     Deduper
	workers     int
	now         func() time.Time
	log         logger.Logger
}

// New wires the per-item pipeline with a fixed worker pool size.
func New(fetcher Fetcher, extractor Extractor, enricher Enricher, illustrator Illustrator, deduper Deduper, workers int, log logger.Logger) *Pipeline {
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		fetcher:     fetcher,
		extractor:   extractor,
		enricher:    enricher,
		illustrator: illustrator,
		deduper:     deduper,
		workers:     workers,
		now:         time.Now,
		log:         logger.Ensure(log),
	}
}

// ProcessBatch filters already-seen candidates and processes the rest
// concurrently. Results are collected as workers complete; order is not
// preserved and callers must not rely on it.
func (p *Pipeline) ProcessBatch(ctx context.Context, candidates []domain.Candidate) Batch {
	fresh := p.filterSeen(candidates)
	if len(fresh) == 0 {
		return Batch{}
	}

	workers := p.workers
	if workers > len(fresh) {
		workers = len(fresh)
	}

	jobs := make(chan domain.Candidate)
	results := make(chan workerResult)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for cand := range jobs {
				if res, ok := p.processOne(ctx, cand); ok {
					results <- res
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, cand := range fresh {
			select {
			case <-ctx.Done():
				return
			case jobs <- cand:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var batch Batch
	for res := range results {
		batch.Items = append(batch.Items, res.item)
		batch.Identities = append(batch.Identities, res.identities...)
	}
	return batch
}

// filterSeen drops candidates whose discovery URL is already in the history
// before any network work happens. A history lookup error keeps the
// candidate: reprocessing is cheaper than silently losing an item.
func (p *Pipeline) filterSeen(candidates []domain.Candidate) []domain.Candidate {
	if p.deduper == nil {
		return candidates
	}

	fresh := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		seen, err := p.deduper.SeenURL(cand.SourceURL)
		if err != nil {
			p.log.WarnObj("history lookup failed; keeping candidate", "history_error", map[string]any{
				"url":   cand.SourceURL,
				"error": err.Error(),
			})
			fresh = append(fresh, cand)
			continue
		}
		if !seen {
			fresh = append(fresh, cand)
		}
	}
	return fresh
}

type workerResult struct {
	item       domain.Item
	identities []string
}

// processOne runs the full per-item pipeline. A panic anywhere inside is
// confined to this item: the worker drops it and moves on.
func (p *Pipeline) processOne(ctx context.Context, cand domain.Candidate) (res workerResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorObj("item processing panicked; dropping item", "item_panic", map[string]any{
				"url":   cand.SourceURL,
				"panic": r,
			})
			ok = false
		}
	}()

	fetched, err := p.fetcher.Resolve(ctx, cand.SourceURL)
	if err != nil {
		// Unreachable pages still yield an item from the headline alone.
		p.log.DebugObj("fetch degraded to headline-only", "fetch_degraded", map[string]any{
			"url":   cand.SourceURL,
			"error": err.Error(),
		})
	}

	// The resolved URL may be a known identity even when the discovery URL
	// was not: the same article can be discovered under multiple links.
	if p.deduper != nil && fetched.FinalURL != cand.SourceURL {
		if seen, err := p.deduper.SeenURL(fetched.FinalURL); err == nil && seen {
			p.log.DebugObj("resolved url already processed; dropping item", "duplicate_item", map[string]any{
				"source_url": cand.SourceURL,
				"final_url":  fetched.FinalURL,
			})
			return workerResult{}, false
		}
	}

	article := p.extractor.Extract(fetched.FinalURL, fetched.Body)
	enrichment := p.enricher.Enrich(ctx, cand.Title, article.Text)

	image := article.ImageURL
	if image == "" && p.illustrator != nil {
		image = p.illustrator.Generate(cand.Title)
	}

	item := p.assemble(cand, fetched.FinalURL, image, enrichment)

	identities := []string{cand.SourceURL}
	if fetched.FinalURL != cand.SourceURL {
		identities = append(identities, fetched.FinalURL)
	}

	return workerResult{item: item, identities: identities}, true
}

// assemble builds the immutable stored item from the pipeline stages.
func (p *Pipeline) assemble(cand domain.Candidate, finalURL, image string, enrichment domain.Enrichment) domain.Item {
	source := cand.Publisher
	if source == "" {
		source = "Source"
	}

	timestamp := cand.Published
	if timestamp.IsZero() {
		timestamp = parsePublished(cand.PublishedAt, p.now)
	}

	return domain.Item{
		TitleLocal: enrichment.TitleLocal,
		TitleOrig:  cand.Title,
		Body:       enrichment.Body,
		Summary:    enrichment.Summary,
		Impact:     enrichment.Impact,
		Sentiment:  enrichment.Sentiment,
		Tag:        enrichment.Tag,
		Source:     source,
		URL:        finalURL,
		Image:      image,
		Date:       cand.PublishedAt,
		Timestamp:  timestamp.Unix(),
	}
}

// publishedLayouts covers the date formats discovery feeds emit.
var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parsePublished derives the item timestamp, defaulting to now when the
// published date is absent or unparseable.
func parsePublished(raw string, now func() time.Time) time.Time {
	for _, layout := range publishedLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return now()
}
