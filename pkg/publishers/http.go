package publishers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pulsefeed-hq/pulse-news-radar/pkg/httpclient"
)

const httpBodySnippetLen = 256

// httpPublisher delivers events to an arbitrary HTTP endpoint as JSON.
type httpPublisher struct {
	id     string
	url    string
	method string
	header map[string]string
	client *resty.Client
	log    Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("http config missing for publisher %q", cfg.ID)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	return &httpPublisher{
		id:     cfg.ID,
		url:    cfg.HTTP.URL,
		method: cfg.HTTP.Method,
		header: cfg.HTTP.Headers,
		client: httpclient.NewRestyHTTPClient(timeout),
		log:    ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return TypeHTTP }

// Publish sends the event as a JSON body to the configured endpoint.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(evt)

	for k, v := range p.header {
		req.SetHeader(k, v)
	}

	resp, err := req.Execute(p.method, p.url)
	if err != nil {
		return fmt.Errorf("http publisher %q: %w", p.id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("http publisher %q: status %d: %s", p.id, resp.StatusCode(), readBodySnippet(resp.Body()))
	}

	p.log.DebugObj("event published", "publisher", map[string]any{
		"id":     p.id,
		"status": resp.StatusCode(),
		"url":    evt.Item.URL,
	})
	return nil
}

// readBodySnippet truncates response bodies destined for error messages.
func readBodySnippet(body []byte) string {
	if len(body) > httpBodySnippetLen {
		body = body[:httpBodySnippetLen]
	}
	return string(body)
}
