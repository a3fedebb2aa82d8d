package extract

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
)

const (
	// minSegmentLen discriminates real paragraphs from captions and
	// boilerplate.
	minSegmentLen = 60
	// maxTextLen respects downstream enrichment size limits.
	maxTextLen = 4000
)

// clutterSelector matches non-content markup removed before text extraction.
const clutterSelector = "script, style, nav, footer, header, aside"

// Extractor turns raw page content into a best-effort structured article.
type Extractor struct{}

// NewExtractor constructs the extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract produces a best-effort structured article from raw page content.
// It never fails: absent or unparseable content degrades to an empty result.
func (e *Extractor) Extract(finalURL string, body []byte) domain.ExtractedArticle {
	if len(body) == 0 {
		return domain.ExtractedArticle{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.ExtractedArticle{}
	}

	article := domain.ExtractedArticle{
		ImageURL: leadImage(doc, finalURL),
	}

	doc.Find(clutterSelector).Remove()

	var segments []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if len(text) >= minSegmentLen {
			segments = append(segments, text)
		}
	})

	text := strings.Join(segments, " ")
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}
	article.Text = text

	return article
}

// leadImage reads the page's social-preview image metadata, resolving
// relative references against the canonical URL.
func leadImage(doc *goquery.Document, finalURL string) string {
	node := doc.Find(`meta[property="og:image"]`).First()
	if node.Length() == 0 {
		return ""
	}

	raw, ok := node.Attr("content")
	if !ok {
		return ""
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	return resolveURL(raw, finalURL)
}

// resolveURL joins a possibly relative reference with its base page URL.
func resolveURL(ref, base string) string {
	if ref == "" {
		return ""
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if refURL.IsAbs() {
		return refURL.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
