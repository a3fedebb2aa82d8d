package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/config"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/discovery"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/enrich"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/pipeline"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/storage"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/store"
)

// fakeSource serves canned candidates per topic id.
type fakeSource struct {
	candidates map[string][]domain.Candidate
	err        error
}

func (f *fakeSource) Search(_ context.Context, topic discovery.Topic) ([]domain.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[topic.ID], nil
}

// fakeFetcher resolves every URL to itself with static content.
type fakeFetcher struct{}

func (fakeFetcher) Resolve(_ context.Context, sourceURL string) (domain.FetchResult, error) {
	return domain.FetchResult{FinalURL: sourceURL, Body: []byte("<html><body></body></html>")}, nil
}

// fakeExtractor returns empty content.
type fakeExtractor struct{}

func (fakeExtractor) Extract(string, []byte) domain.ExtractedArticle {
	return domain.ExtractedArticle{}
}

// fallbackEnricher always degrades.
type fallbackEnricher struct{}

func (fallbackEnricher) Enrich(_ context.Context, title, _ string) domain.Enrichment {
	return enrich.Fallback(title)
}

type staticIllustrator struct{}

func (staticIllustrator) Generate(string) string { return "https://img.example/x.png" }

func testRegistry(t *testing.T, ids ...string) *discovery.Registry {
	t.Helper()
	content := "topics:\n"
	for _, id := range ids {
		content += "  - id: " + id + "\n    query: " + id + "\n"
	}
	file := filepath.Join(t.TempDir(), "topics.yaml")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write topics: %v", err)
	}
	reg, err := discovery.LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	return reg
}

func testRadar(t *testing.T, source discovery.Source) *Radar {
	t.Helper()
	dir := t.TempDir()

	history, err := storage.NewStore("file", filepath.Join(dir, "seen.txt"), storage.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { history.Close() })

	return &Radar{
		cfg:      &config.Config{StoreCapacity: 10},
		log:      logger.Ensure(nil),
		topics:   testRegistry(t, "iran"),
		source:   source,
		pipeline: pipeline.New(fakeFetcher{}, fakeExtractor{}, fallbackEnricher{}, staticIllustrator{}, history, 2, nil),
		history:  history,
		store:    store.NewManager(filepath.Join(dir, "news.json"), 10, nil),
	}
}

func TestRunOnceCommitsItemsAndIdentities(t *testing.T) {
	source := &fakeSource{candidates: map[string][]domain.Candidate{
		"iran": {
			{Title: "first", SourceURL: "https://example.com/1", Published: time.Unix(100, 0)},
			{Title: "second", SourceURL: "https://example.com/2", Published: time.Unix(200, 0)},
		},
	}}
	radar := testRadar(t, source)

	if err := radar.runOnce(context.Background()); err != nil {
		t.Fatalf("runOnce: %v", err)
	}

	items := radar.store.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 stored items, got %d", len(items))
	}
	if items[0].URL != "https://example.com/2" {
		t.Fatalf("expected newest first, got %q", items[0].URL)
	}

	seen, err := radar.history.SeenURL("https://example.com/1")
	if err != nil || !seen {
		t.Fatalf("expected identity committed, seen=%v err=%v", seen, err)
	}
}

func TestRunOnceIsIdempotent(t *testing.T) {
	source := &fakeSource{candidates: map[string][]domain.Candidate{
		"iran": {{Title: "first", SourceURL: "https://example.com/1", Published: time.Unix(100, 0)}},
	}}
	radar := testRadar(t, source)

	if err := radar.runOnce(context.Background()); err != nil {
		t.Fatalf("first runOnce: %v", err)
	}
	if err := radar.runOnce(context.Background()); err != nil {
		t.Fatalf("second runOnce: %v", err)
	}

	items := radar.store.Items()
	if len(items) != 1 {
		t.Fatalf("expected no duplicates across runs, got %d items", len(items))
	}
}

func TestRunOnceDiscoveryFailureAbortsWithoutPersisting(t *testing.T) {
	source := &fakeSource{err: errors.New("feed unreachable")}
	radar := testRadar(t, source)

	if err := radar.runOnce(context.Background()); err == nil {
		t.Fatalf("expected discovery failure to abort the run")
	}
	if items := radar.store.Items(); len(items) != 0 {
		t.Fatalf("expected nothing persisted, got %d items", len(items))
	}
}

func TestBuildEnricherModeSelection(t *testing.T) {
	cfg := &config.Config{EnrichMode: config.EnrichModeTranslate, TranslateTarget: "fa", TranslateAttempts: 1}
	if _, ok := buildEnricher(cfg, nil, nil).(*enrich.Translator); !ok {
		t.Fatalf("expected translator for translate mode")
	}

	cfg = &config.Config{EnrichMode: config.EnrichModeAnalysis, AnalysisModel: "openai"}
	if _, ok := buildEnricher(cfg, nil, nil).(*enrich.Analyst); !ok {
		t.Fatalf("expected analyst for analysis mode")
	}
}
