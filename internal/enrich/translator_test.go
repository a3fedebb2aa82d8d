package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pulsefeed-hq/pulse-news-radar/pkg/httpclient"
)

// stubResponse implements httpclient.Response.
type stubResponse struct {
	body       []byte
	statusCode int
}

func (s stubResponse) Body() []byte     { return s.body }
func (s stubResponse) StatusCode() int  { return s.statusCode }
func (s stubResponse) FinalURL() string { return "" }

// stubTranslateClient answers every request with the same payload.
type stubTranslateClient struct {
	resp  httpclient.Response
	err   error
	calls int
}

func (s *stubTranslateClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func translatePayload(text string) []byte {
	return []byte(`[[["` + text + `", "orig", null, null]], null, "en"]`)
}

func TestTranslatorEnrichTranslatesTitleAndBody(t *testing.T) {
	client := &stubTranslateClient{resp: stubResponse{
		body:       translatePayload("ترجمه"),
		statusCode: 200,
	}}
	tr := NewTranslator(TranslatorConfig{Target: "fa", Attempts: 1}, client, nil)

	got := tr.Enrich(context.Background(), "Headline", "Body text")
	if got.TitleLocal != "ترجمه" {
		t.Fatalf("unexpected title %q", got.TitleLocal)
	}
	if got.Body != "ترجمه" {
		t.Fatalf("unexpected body %q", got.Body)
	}
	if got.Fallback {
		t.Fatalf("expected successful enrichment")
	}
}

func TestTranslatorEnrichKeepsOriginalOnTotalFailure(t *testing.T) {
	client := &stubTranslateClient{err: errors.New("connection reset")}
	tr := NewTranslator(TranslatorConfig{Target: "fa", Attempts: 1}, client, nil)

	got := tr.Enrich(context.Background(), "Headline", "Body text")
	if got.TitleLocal != "Headline" {
		t.Fatalf("expected original title kept, got %q", got.TitleLocal)
	}
	if got.Body != "Body text" {
		t.Fatalf("expected original body kept, got %q", got.Body)
	}
	if !got.Fallback {
		t.Fatalf("expected fallback flag set")
	}
}

func TestTranslatorRetriesUpToAttempts(t *testing.T) {
	client := &stubTranslateClient{err: errors.New("unavailable")}
	tr := NewTranslator(TranslatorConfig{Target: "fa", Attempts: 2}, client, nil)
	tr.policy.Delay = 0

	if _, err := tr.translateWithRetry(context.Background(), "text"); err == nil {
		t.Fatalf("expected error after exhausted retries")
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", client.calls)
	}
}

func TestParseTranslateResponseJoinsSegments(t *testing.T) {
	body := []byte(`[[["Hello ", "a", null], ["world", "b", null]], null, "en"]`)
	got, err := parseTranslateResponse(body)
	if err != nil {
		t.Fatalf("parseTranslateResponse: %v", err)
	}
	if got != "Hello world" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestParseTranslateResponseRejectsUnexpectedShape(t *testing.T) {
	if _, err := parseTranslateResponse([]byte(`{"error": "bad request"}`)); err == nil {
		t.Fatalf("expected error for object payload")
	}
	if _, err := parseTranslateResponse([]byte(`[]`)); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestSplitChunksPreservesOrder(t *testing.T) {
	paras := []string{
		strings.Repeat("a", 30),
		strings.Repeat("b", 30),
		strings.Repeat("c", 30),
	}
	text := strings.Join(paras, "\n\n")

	chunks := SplitChunks(text, 40)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, chunk := range chunks {
		if len(chunk) > 40 {
			t.Fatalf("chunk exceeds max: %d bytes", len(chunk))
		}
	}
	if joined := strings.Join(chunks, "\n\n"); joined != text {
		t.Fatalf("rejoined chunks differ from input:\n%q\n%q", joined, text)
	}
}

func TestSplitChunksShortTextUntouched(t *testing.T) {
	chunks := SplitChunks("short", 100)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("unexpected chunks %#v", chunks)
	}
}

func TestSplitOversizedPrefersSentences(t *testing.T) {
	para := strings.Repeat("One sentence here. ", 20)
	pieces := splitOversized(strings.TrimSpace(para), 100)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces")
	}
	for _, p := range pieces[:len(pieces)-1] {
		if !strings.HasSuffix(p, ".") {
			t.Fatalf("expected sentence-boundary cut, got %q", p)
		}
	}
}
