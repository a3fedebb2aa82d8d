package publishers

import (
	"context"
	"fmt"
)

// Builder constructs a publisher from its configuration entry.
type Builder func(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error)

// Registry maps publisher types to builders.
type Registry map[string]Builder

// DefaultRegistry returns the registry with the built-in publisher types.
func DefaultRegistry() Registry {
	return Registry{
		TypeHTTP: newHTTPPublisher,
		TypeSQS:  newSQSPublisher,
	}
}

// BuildAll builds every enabled publisher from the given configs.
func BuildAll(ctx context.Context, reg Registry, cfgs []PublisherConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	out := make([]Publisher, 0, len(cfgs))
	for _, cfg := range cfgs {
		if !cfg.EnabledValue() {
			continue
		}
		builder, ok := reg[cfg.Type]
		if !ok {
			return nil, fmt.Errorf("unknown publisher type %q for publisher %q", cfg.Type, cfg.ID)
		}
		pub, err := builder(ctx, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("build publisher %q: %w", cfg.ID, err)
		}
		out = append(out, pub)
	}
	return out, nil
}
