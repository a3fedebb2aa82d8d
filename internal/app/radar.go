package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/config"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/discovery"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/enrich"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/extract"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/fetch"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/market"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/pipeline"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/storage"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/store"
	"github.com/pulsefeed-hq/pulse-news-radar/pkg/httpclient"
	"github.com/pulsefeed-hq/pulse-news-radar/pkg/publishers"
)

// Radar owns the assembled pipeline and drives recurring runs.
type Radar struct {
	cfg      *config.Config
	log      logger.Logger
	topics   *discovery.Registry
	source   discovery.Source
	pipeline *pipeline.Pipeline
	history  storage.Store
	store    *store.Manager
	fanout   *publishers.Fanout
	market   *market.Client
}

// NewRadar wires every component from configuration.
func NewRadar(ctx context.Context, cfg *config.Config, log logger.Logger) (*Radar, error) {
	log = logger.Ensure(log)

	topics, err := discovery.LoadRegistry(cfg.TopicsFile)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}

	history, err := openHistory(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	client := httpclient.NewRestyClient(cfg.FetchTimeout)
	fetcher := fetch.NewFetcher(client)
	extractor := extract.NewExtractor()
	enricher := buildEnricher(cfg, client, log)
	illustrator := enrich.NewIllustrator(enrich.IllustratorConfig{
		Endpoint:    cfg.ImageEndpoint,
		Placeholder: cfg.ImagePlaceholder,
	})

	r := &Radar{
		cfg:      cfg,
		log:      log,
		topics:   topics,
		source:   discovery.NewGoogleNewsSource(),
		pipeline: pipeline.New(fetcher, extractor, enricher, illustrator, history, cfg.Workers, log),
		history:  history,
		store:    store.NewManager(cfg.StorePath, cfg.StoreCapacity, log),
	}

	if cfg.PublishersFile != "" {
		reg, err := publishers.LoadRegistry(cfg.PublishersFile)
		if err != nil {
			history.Close()
			return nil, fmt.Errorf("load publishers: %w", err)
		}
		pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), reg.Enabled(), log)
		if err != nil {
			history.Close()
			return nil, fmt.Errorf("build publishers: %w", err)
		}
		r.fanout = publishers.NewFanout(pubs)
	}

	if cfg.MarketEnabled && cfg.MarketURL != "" {
		r.market = market.NewClient(cfg.MarketURL, cfg.MarketPath, client, log)
	}

	return r, nil
}

// openHistory builds the seen-identity store from configuration.
func openHistory(cfg *config.Config) (storage.Store, error) {
	path := cfg.HistoryPath
	if cfg.HistoryType == "bbolt" {
		path = cfg.BBoltPath
	}
	return storage.NewStore(cfg.HistoryType, path, storage.Options{
		URLTTL:          cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
}

// buildEnricher selects the enrichment backend from configuration.
func buildEnricher(cfg *config.Config, client httpclient.Client, log logger.Logger) pipeline.Enricher {
	if cfg.EnrichMode == config.EnrichModeTranslate {
		return enrich.NewTranslator(enrich.TranslatorConfig{
			Target:     cfg.TranslateTarget,
			Attempts:   cfg.TranslateAttempts,
			ChunkDelay: cfg.TranslateChunkDelay,
		}, client, log)
	}
	return enrich.NewAnalyst(enrich.AnalystConfig{
		Endpoint:       cfg.AnalysisEndpoint,
		APIKey:         cfg.AnalysisAPIKey,
		Model:          cfg.AnalysisModel,
		TargetLanguage: cfg.TranslateTarget,
	}, log)
}

// Run executes runs until the context is canceled. With a zero interval the
// radar runs once and returns.
func (r *Radar) Run(ctx context.Context) error {
	if r.cfg.RunInterval <= 0 {
		return r.runOnce(ctx)
	}

	r.log.InfoObj("radar loop starting", "interval", r.cfg.RunInterval.String())

	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	if err := r.runOnce(ctx); err != nil {
		r.log.ErrorObj("run failed", "run_error", err.Error())
	}

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("radar loop stopping", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				r.log.ErrorObj("run failed", "run_error", err.Error())
			}
		}
	}
}

// topicBatch pairs a processed batch with the topic it came from.
type topicBatch struct {
	topicID string
	batch   pipeline.Batch
}

// runOnce performs a single discovery → pipeline → commit pass over all
// configured topics. Any topic failing discovery aborts the run before
// anything is persisted, so the next run retries the same candidates.
func (r *Radar) runOnce(ctx context.Context) error {
	started := time.Now()

	if r.market != nil {
		if err := r.market.Refresh(ctx); err != nil {
			r.log.WarnObj("market refresh failed", "market_error", err.Error())
		}
	}

	var (
		batches    []topicBatch
		items      []domain.Item
		identities []string
		candidates int
	)
	for _, topic := range r.topics.All() {
		found, err := r.source.Search(ctx, topic)
		if err != nil {
			return fmt.Errorf("discover topic %q: %w", topic.ID, err)
		}
		r.log.DebugObj("topic discovered", "discovery", map[string]any{
			"topic": topic.ID,
			"found": len(found),
		})
		candidates += len(found)

		batch := r.pipeline.ProcessBatch(ctx, found)
		if len(batch.Items) == 0 {
			continue
		}
		batches = append(batches, topicBatch{topicID: topic.ID, batch: batch})
		items = append(items, batch.Items...)
		identities = append(identities, batch.Identities...)
	}

	if len(items) == 0 {
		r.log.InfoObj("no new items this run", "candidates", candidates)
		return nil
	}

	if err := r.store.Commit(items); err != nil {
		return fmt.Errorf("commit items: %w", err)
	}

	// Identities are only recorded once the store write succeeded, so a
	// failed run retries the same candidates next time.
	if err := r.history.MarkURLs(identities); err != nil {
		r.log.ErrorObj("history commit failed", "history_error", err.Error())
	}

	r.publish(ctx, batches)

	r.log.InfoObj("run completed", "run", map[string]any{
		"candidates": candidates,
		"items":      len(items),
		"elapsed":    time.Since(started).String(),
	})
	return nil
}

// publish fans processed items out to the configured sinks. Delivery
// failures are logged; the run itself already succeeded.
func (r *Radar) publish(ctx context.Context, batches []topicBatch) {
	if r.fanout == nil || r.fanout.Size() == 0 {
		return
	}

	for _, tb := range batches {
		for _, item := range tb.batch.Items {
			delivered, err := r.fanout.Publish(ctx, publishers.NewEvent(tb.topicID, item))
			if err != nil {
				r.log.WarnObj("publish incomplete", "publish_error", map[string]any{
					"url":       item.URL,
					"delivered": delivered,
					"error":     err.Error(),
				})
			}
		}
	}
}

// Close releases resources held by the radar.
func (r *Radar) Close() error {
	if r.history != nil {
		return r.history.Close()
	}
	return nil
}
