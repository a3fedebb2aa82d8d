package enrich

import (
	"net/url"
	"strings"
)

// IllustratorConfig wires the fallback image synthesis.
type IllustratorConfig struct {
	Endpoint    string // generated-image service base URL
	Placeholder string // static reference used when synthesis is impossible
}

// Illustrator synthesizes a deterministic illustration reference for items
// whose pages exposed no usable image. It never fails: any problem yields
// the static placeholder.
type Illustrator struct {
	endpoint    string
	placeholder string
}

// NewIllustrator builds the image synthesizer.
func NewIllustrator(cfg IllustratorConfig) *Illustrator {
	return &Illustrator{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		placeholder: cfg.Placeholder,
	}
}

// Generate returns an illustration URL derived from the title.
func (i *Illustrator) Generate(title string) string {
	title = strings.TrimSpace(title)
	if i == nil || i.endpoint == "" || title == "" {
		return i.placeholderURL()
	}

	prompt := "Editorial illustration, " + title + ", dark style, news context, highly detailed, 4k"

	params := url.Values{}
	params.Set("model", "flux")
	params.Set("width", "800")
	params.Set("height", "600")
	params.Set("nologo", "true")

	return i.endpoint + "/" + url.PathEscape(prompt) + "?" + params.Encode()
}

func (i *Illustrator) placeholderURL() string {
	if i == nil || i.placeholder == "" {
		return "https://placehold.co/800x600?text=News"
	}
	return i.placeholder
}
