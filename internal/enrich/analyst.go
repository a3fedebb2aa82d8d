package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
)

// headlineOnlyThreshold: below this many characters of article text the
// analyst works from the headline alone.
const headlineOnlyThreshold = 100

// analysisTags is the closed category set the backend must choose from.
var analysisTags = []string{"military", "nuclear", "economic", "political", "social"}

// AnalystConfig wires the structured-analysis backend.
type AnalystConfig struct {
	Endpoint       string // OpenAI-compatible base URL
	APIKey         string
	Model          string
	TargetLanguage string // language of the generated fields
}

// Analyst asks an OpenAI-compatible chat backend for a structured analysis
// of one news item. Missing credentials or any backend/parse failure
// degrade to the deterministic fallback.
type Analyst struct {
	client *openai.Client
	model  string
	lang   string
	log    logger.Logger
}

// NewAnalyst builds the analysis-mode enricher. A nil client (no API key)
// is valid and yields fallback enrichments.
func NewAnalyst(cfg AnalystConfig, log logger.Logger) *Analyst {
	a := &Analyst{
		model: cfg.Model,
		lang:  cfg.TargetLanguage,
		log:   logger.Ensure(log),
	}
	if a.lang == "" {
		a.lang = "Persian"
	}

	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			clientCfg.BaseURL = cfg.Endpoint
		}
		a.client = openai.NewClientWithConfig(clientCfg)
	}

	return a
}

// analystResponse mirrors the strict JSON contract requested from the backend.
type analystResponse struct {
	TitleLocal string   `json:"title_local"`
	Summary    []string `json:"summary"`
	Impact     string   `json:"impact"`
	Sentiment  float64  `json:"sentiment"`
	Tag        string   `json:"tag"`
}

// Enrich submits title+text for analysis. The result is always usable;
// Fallback is set when the backend was skipped or failed.
func (a *Analyst) Enrich(ctx context.Context, title, text string) domain.Enrichment {
	if a == nil || a.client == nil {
		return Fallback(title)
	}

	parsed, err := a.analyze(ctx, title, text)
	if err != nil {
		a.log.WarnObj("analysis backend failed; using fallback", "analysis_error", map[string]any{
			"title": title,
			"error": err.Error(),
		})
		return Fallback(title)
	}

	return domain.Enrichment{
		TitleLocal: firstNonEmpty(parsed.TitleLocal, title),
		Summary:    parsed.Summary,
		Impact:     parsed.Impact,
		Sentiment:  clampSentiment(parsed.Sentiment),
		Tag:        normalizeTag(parsed.Tag),
	}
}

func (a *Analyst) analyze(ctx context.Context, title, text string) (analystResponse, error) {
	contextText := text
	if len(contextText) < headlineOnlyThreshold {
		contextText = title
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("HEADLINE: %s\n\nTEXT: %s", title, contextText)},
		},
	})
	if err != nil {
		return analystResponse{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return analystResponse{}, fmt.Errorf("chat completion returned no choices")
	}

	return parseAnalystResponse(resp.Choices[0].Message.Content)
}

func (a *Analyst) systemPrompt() string {
	return fmt.Sprintf(
		"You are an intelligence analyst reading one news item. "+
			"Output a strictly valid JSON object with these fields:\n"+
			"1. 'title_local': the headline translated to %[1]s.\n"+
			"2. 'summary': an array of 3 short bullet-point strings in %[1]s summarizing the event.\n"+
			"3. 'impact': a single sentence in %[1]s explaining the strategic impact.\n"+
			"4. 'sentiment': a float from -1.0 (critical/negative) to 1.0 (positive).\n"+
			"5. 'tag': one category of [%[2]s].\n"+
			"Do not use markdown code blocks. Just the JSON.",
		a.lang, strings.Join(analysisTags, ", "))
}

// parseAnalystResponse strips incidental formatting fences the backend may
// wrap around its output and decodes the JSON payload strictly.
func parseAnalystResponse(raw string) (analystResponse, error) {
	cleaned := stripFences(raw)

	var parsed analystResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return analystResponse{}, fmt.Errorf("decode analysis response: %w", err)
	}
	return parsed, nil
}

func stripFences(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}

func clampSentiment(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, known := range analysisTags {
		if tag == known {
			return tag
		}
	}
	return fallbackTag
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
