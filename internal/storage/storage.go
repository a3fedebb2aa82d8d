package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides the persistent seen-URL history used for
// deduplication across runs.

// Store tracks URL identities already processed. An identity present in the
// store is never re-fetched or re-enriched by a later run.
type Store interface {
	Close() error
	SeenURL(url string) (bool, error)
	MarkURLs(urls []string) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	// URLTTL expires identities after the given duration. Zero keeps them
	// forever (append-only history, the default).
	URLTTL          time.Duration
	CleanupInterval time.Duration
}

const defaultCleanupInterval = 12 * time.Hour

// NewStore creates the configured history backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "file":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("file history requires a path")
		}
		return openFileStore(path)
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt history requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported history type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.URLTTL < 0 {
		opts.URLTTL = 0
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                 { return nil }
func (noopStore) SeenURL(string) (bool, error) { return false, nil }
func (noopStore) MarkURLs([]string) error      { return nil }
