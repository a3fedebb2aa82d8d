package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/enrich"
)

// stubFetcher resolves every URL through a mapping function.
type stubFetcher struct {
	calls   atomic.Int64
	resolve func(sourceURL string) (domain.FetchResult, error)
}

func (s *stubFetcher) Resolve(_ context.Context, sourceURL string) (domain.FetchResult, error) {
	s.calls.Add(1)
	if s.resolve != nil {
		return s.resolve(sourceURL)
	}
	return domain.FetchResult{FinalURL: sourceURL, Body: []byte("<html></html>")}, nil
}

// stubExtractor returns fixed content.
type stubExtractor struct {
	article domain.ExtractedArticle
	panics  map[string]bool
}

func (s *stubExtractor) Extract(finalURL string, _ []byte) domain.ExtractedArticle {
	if s.panics[finalURL] {
		panic("extractor blew up")
	}
	return s.article
}

// stubEnricher echoes the title.
type stubEnricher struct{}

func (stubEnricher) Enrich(_ context.Context, title, _ string) domain.Enrichment {
	return domain.Enrichment{TitleLocal: "local: " + title, Sentiment: 0.1, Tag: "political"}
}

// stubIllustrator returns a constant reference.
type stubIllustrator struct{}

func (stubIllustrator) Generate(string) string { return "https://img.example/generated.png" }

// memoryDeduper answers membership from a set; thread safe.
type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (m *memoryDeduper) SeenURL(url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.seen[url], nil
}

func candidates(urls ...string) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(urls))
	for _, u := range urls {
		out = append(out, domain.Candidate{
			Title:     "title " + u,
			SourceURL: u,
			Publisher: "Example Times",
			Published: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		})
	}
	return out
}

func TestProcessBatchSkipsSeenCandidatesBeforeFetch(t *testing.T) {
	fetcher := &stubFetcher{}
	deduper := &memoryDeduper{seen: map[string]bool{"https://a.example": true, "https://b.example": true}}

	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, deduper, 2, nil)
	batch := p.ProcessBatch(context.Background(), candidates("https://a.example", "https://b.example"))

	if len(batch.Items) != 0 {
		t.Fatalf("expected no items for seen candidates, got %d", len(batch.Items))
	}
	if fetcher.calls.Load() != 0 {
		t.Fatalf("seen candidates must not reach the fetcher, got %d calls", fetcher.calls.Load())
	}
}

func TestProcessBatchSecondRunYieldsNothing(t *testing.T) {
	fetcher := &stubFetcher{}
	deduper := &memoryDeduper{seen: map[string]bool{}}
	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, deduper, 2, nil)

	cands := candidates("https://a.example", "https://b.example")
	first := p.ProcessBatch(context.Background(), cands)
	if len(first.Items) != 2 {
		t.Fatalf("expected 2 items on first run, got %d", len(first.Items))
	}

	// Identities are committed outside the pipeline after a store commit.
	deduper.mu.Lock()
	for _, id := range first.Identities {
		deduper.seen[id] = true
	}
	deduper.mu.Unlock()

	second := p.ProcessBatch(context.Background(), cands)
	if len(second.Items) != 0 {
		t.Fatalf("expected idempotent second run, got %d items", len(second.Items))
	}
}

func TestProcessBatchUnreachablePageStillYieldsItem(t *testing.T) {
	fetcher := &stubFetcher{resolve: func(sourceURL string) (domain.FetchResult, error) {
		return domain.FetchResult{FinalURL: sourceURL}, errors.New("connection refused")
	}}
	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, &memoryDeduper{}, 1, nil)

	batch := p.ProcessBatch(context.Background(), candidates("https://down.example"))
	if len(batch.Items) != 1 {
		t.Fatalf("expected headline-only item, got %d items", len(batch.Items))
	}

	item := batch.Items[0]
	if item.TitleOrig != "title https://down.example" {
		t.Fatalf("unexpected title %q", item.TitleOrig)
	}
	if item.Image != "https://img.example/generated.png" {
		t.Fatalf("expected generated image fallback, got %q", item.Image)
	}
	if item.URL != "https://down.example" {
		t.Fatalf("expected source url kept, got %q", item.URL)
	}
}

func TestProcessBatchDropsKnownResolvedURL(t *testing.T) {
	fetcher := &stubFetcher{resolve: func(string) (domain.FetchResult, error) {
		return domain.FetchResult{FinalURL: "https://publisher.example/article", Body: []byte("x")}, nil
	}}
	deduper := &memoryDeduper{seen: map[string]bool{"https://publisher.example/article": true}}
	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, deduper, 1, nil)

	batch := p.ProcessBatch(context.Background(), candidates("https://news.google.example/x"))
	if len(batch.Items) != 0 {
		t.Fatalf("expected resolved duplicate dropped, got %d items", len(batch.Items))
	}
}

func TestProcessBatchRecordsBothIdentities(t *testing.T) {
	fetcher := &stubFetcher{resolve: func(string) (domain.FetchResult, error) {
		return domain.FetchResult{FinalURL: "https://publisher.example/article", Body: []byte("x")}, nil
	}}
	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, &memoryDeduper{}, 1, nil)

	batch := p.ProcessBatch(context.Background(), candidates("https://news.google.example/x"))
	if len(batch.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(batch.Items))
	}
	if len(batch.Identities) != 2 {
		t.Fatalf("expected both identities recorded, got %v", batch.Identities)
	}
	got := append([]string(nil), batch.Identities...)
	sort.Strings(got)
	if got[0] != "https://news.google.example/x" || got[1] != "https://publisher.example/article" {
		t.Fatalf("unexpected identities %v", got)
	}
}

func TestProcessBatchPanicConfinedToOneItem(t *testing.T) {
	fetcher := &stubFetcher{}
	extractor := &stubExtractor{panics: map[string]bool{"https://bad.example": true}}
	p := New(fetcher, extractor, stubEnricher{}, stubIllustrator{}, &memoryDeduper{}, 2, nil)

	batch := p.ProcessBatch(context.Background(), candidates("https://bad.example", "https://good.example"))
	if len(batch.Items) != 1 {
		t.Fatalf("expected panicking item dropped and sibling kept, got %d items", len(batch.Items))
	}
	if batch.Items[0].URL != "https://good.example" {
		t.Fatalf("unexpected survivor %q", batch.Items[0].URL)
	}
}

func TestProcessBatchLookupErrorKeepsCandidate(t *testing.T) {
	fetcher := &stubFetcher{}
	deduper := &memoryDeduper{err: errors.New("db locked")}
	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, deduper, 1, nil)

	batch := p.ProcessBatch(context.Background(), candidates("https://a.example"))
	if len(batch.Items) != 1 {
		t.Fatalf("lookup failure must not drop candidates, got %d items", len(batch.Items))
	}
}

func TestProcessBatchProcessesAllWithMoreCandidatesThanWorkers(t *testing.T) {
	fetcher := &stubFetcher{}
	p := New(fetcher, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, &memoryDeduper{}, 2, nil)

	cands := candidates(
		"https://1.example", "https://2.example", "https://3.example",
		"https://4.example", "https://5.example", "https://6.example",
	)
	batch := p.ProcessBatch(context.Background(), cands)
	if len(batch.Items) != len(cands) {
		t.Fatalf("expected all %d candidates processed, got %d", len(cands), len(batch.Items))
	}

	urls := make(map[string]bool, len(batch.Items))
	for _, item := range batch.Items {
		urls[item.URL] = true
	}
	if len(urls) != len(cands) {
		t.Fatalf("expected unique urls, got %d distinct", len(urls))
	}
}

func TestAssembleUsesPublishedTimestamp(t *testing.T) {
	p := New(&stubFetcher{}, &stubExtractor{}, stubEnricher{}, stubIllustrator{}, nil, 1, nil)

	published := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	cand := domain.Candidate{Title: "t", SourceURL: "https://a.example", Published: published}
	item := p.assemble(cand, "https://a.example", "", enrich.Fallback("t"))

	if item.Timestamp != published.Unix() {
		t.Fatalf("expected published timestamp, got %d", item.Timestamp)
	}
	if item.Source != "Source" {
		t.Fatalf("expected default source label, got %q", item.Source)
	}
}

func TestParsePublishedFallsBackToNow(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	if got := parsePublished("Fri, 28 Aug 2026 10:15:00 +0000", clock); got.Unix() == now.Unix() {
		t.Fatalf("expected layout parse, got now fallback")
	}
	if got := parsePublished("not a date", clock); !got.Equal(now) {
		t.Fatalf("expected now fallback, got %v", got)
	}
}
