package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/retry"
	"github.com/pulsefeed-hq/pulse-news-radar/pkg/httpclient"
)

const (
	translateEndpoint = "https://translate.googleapis.com/translate_a/single"
	translateTimeout  = 15 * time.Second
	// maxChunkLen keeps each translation request under the backend's size
	// limit.
	maxChunkLen = 4000
)

// TranslatorConfig wires the translation-mode enricher.
type TranslatorConfig struct {
	Target     string // target language code, e.g. "fa"
	Attempts   int    // bounded retry per request
	ChunkDelay time.Duration
	Endpoint   string // override for tests
}

// Translator localizes titles and bodies through the public translate
// endpoint. Total failure falls back to the original untranslated text.
type Translator struct {
	client     httpclient.Client
	endpoint   string
	target     string
	policy     retry.Policy
	chunkDelay time.Duration
	log        logger.Logger
}

// NewTranslator builds the translation-mode enricher with the provided HTTP
// client (or default).
func NewTranslator(cfg TranslatorConfig, client httpclient.Client, log logger.Logger) *Translator {
	if client == nil {
		client = httpclient.NewRestyClient(translateTimeout)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = translateEndpoint
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 2
	}
	target := cfg.Target
	if target == "" {
		target = "fa"
	}

	return &Translator{
		client:   client,
		endpoint: endpoint,
		target:   target,
		policy: retry.Policy{
			MaxAttempts: attempts,
			Delay:       time.Second,
		},
		chunkDelay: cfg.ChunkDelay,
		log:        logger.Ensure(log),
	}
}

// Enrich translates the title and body independently. A failed translation
// keeps the original text; the result is always usable.
func (t *Translator) Enrich(ctx context.Context, title, text string) domain.Enrichment {
	titleLocal, titleErr := t.translateWithRetry(ctx, title)
	if titleErr != nil {
		t.log.WarnObj("title translation failed; keeping original", "translate_error", map[string]any{
			"title": title,
			"error": titleErr.Error(),
		})
		titleLocal = title
	}

	body := ""
	bodyFellBack := false
	if text != "" {
		body, bodyFellBack = t.translateChunked(ctx, text)
	}

	return domain.Enrichment{
		TitleLocal: titleLocal,
		Body:       body,
		Sentiment:  0,
		Fallback:   titleErr != nil && (text == "" || bodyFellBack),
	}
}

// translateChunked splits an over-long body on paragraph boundaries,
// translates each chunk independently preserving order, and rejoins. A small
// inter-chunk delay respects backend rate limits.
func (t *Translator) translateChunked(ctx context.Context, text string) (string, bool) {
	chunks := SplitChunks(text, maxChunkLen)

	translated := make([]string, 0, len(chunks))
	failures := 0
	for i, chunk := range chunks {
		out, err := t.translateWithRetry(ctx, chunk)
		if err != nil {
			failures++
			out = chunk
		}
		translated = append(translated, out)

		if t.chunkDelay > 0 && i < len(chunks)-1 {
			timer := time.NewTimer(t.chunkDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				translated = append(translated, chunks[i+1:]...)
				return strings.Join(translated, "\n\n"), true
			case <-timer.C:
			}
		}
	}

	return strings.Join(translated, "\n\n"), failures == len(chunks)
}

func (t *Translator) translateWithRetry(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	var out string
	err := retry.Do(ctx, t.policy, func() error {
		translated, err := t.translate(ctx, text)
		if err != nil {
			return err
		}
		out = translated
		return nil
	})
	return out, err
}

// translate performs one request against the translate endpoint.
func (t *Translator) translate(ctx context.Context, text string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", "auto")
	params.Set("tl", t.target)
	params.Set("dt", "t")
	params.Set("q", text)

	resp, err := t.client.Get(ctx, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("translate request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return "", fmt.Errorf("translate endpoint returned status %d", resp.StatusCode())
	}

	translated, err := parseTranslateResponse(resp.Body())
	if err != nil {
		return "", fmt.Errorf("parse translate response: %w", err)
	}
	return translated, nil
}

// parseTranslateResponse decodes the endpoint's nested-array payload: the
// first element holds segment arrays whose first entry is translated text.
func parseTranslateResponse(body []byte) (string, error) {
	var payload []interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	if len(payload) == 0 {
		return "", errors.New("empty translate payload")
	}

	segments, ok := payload[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected translate payload shape")
	}

	var out strings.Builder
	for _, segment := range segments {
		parts, ok := segment.([]interface{})
		if !ok || len(parts) == 0 {
			continue
		}
		if text, ok := parts[0].(string); ok {
			out.WriteString(text)
		}
	}

	if out.Len() == 0 {
		return "", errors.New("translate payload contained no text")
	}
	return out.String(), nil
}

// SplitChunks breaks text into ordered pieces no longer than max bytes,
// preferring paragraph boundaries, then sentence boundaries, then a hard
// cut. Rejoining the pieces with blank lines preserves the original order.
func SplitChunks(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, para := range strings.Split(text, "\n\n") {
		for _, piece := range splitOversized(para, max) {
			if current.Len() > 0 && current.Len()+len(piece)+2 > max {
				flush()
			}
			if current.Len() > 0 {
				current.WriteString("\n\n")
			}
			current.WriteString(piece)
		}
	}
	flush()

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// splitOversized cuts a single paragraph that exceeds max, preferring
// sentence boundaries.
func splitOversized(para string, max int) []string {
	if len(para) <= max {
		return []string{para}
	}

	var pieces []string
	rest := para
	for len(rest) > max {
		cut := strings.LastIndex(rest[:max], ". ")
		if cut < max/4 {
			cut = max - 1
		}
		pieces = append(pieces, strings.TrimSpace(rest[:cut+1]))
		rest = strings.TrimSpace(rest[cut+1:])
	}
	if rest != "" {
		pieces = append(pieces, rest)
	}
	return pieces
}
