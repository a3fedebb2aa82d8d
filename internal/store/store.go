package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
	"github.com/pulsefeed-hq/pulse-news-radar/internal/logger"
)

// Manager maintains the bounded, time-ordered item store persisted as a
// single JSON document.
type Manager struct {
	path     string
	capacity int
	log      logger.Logger
}

// NewManager builds a store manager writing to path with the given capacity.
func NewManager(path string, capacity int, log logger.Logger) *Manager {
	return &Manager{
		path:     path,
		capacity: capacity,
		log:      logger.Ensure(log),
	}
}

// Commit merges new items into the persisted store, deduplicates by final
// URL (new items win), sorts by timestamp descending, trims to capacity,
// and atomically replaces the store document. An empty input leaves the
// store untouched.
func (m *Manager) Commit(newItems []domain.Item) error {
	if m == nil {
		return fmt.Errorf("store manager is not initialized")
	}
	if len(newItems) == 0 {
		return nil
	}

	existing := m.load()
	merged := Merge(newItems, existing, m.capacity)

	if err := m.write(merged); err != nil {
		return fmt.Errorf("persist store: %w", err)
	}

	m.log.InfoObj("store committed", "store_result", map[string]any{
		"new_items":   len(newItems),
		"total_items": len(merged),
		"path":        m.path,
	})
	return nil
}

// Items returns the currently persisted items. Missing or corrupt store
// content is treated as empty.
func (m *Manager) Items() []domain.Item {
	if m == nil {
		return nil
	}
	return m.load()
}

// Merge combines new items ahead of existing ones, deduplicates by URL with
// the new-first bias, sorts by timestamp descending (stable, so new items
// win ties), and trims to capacity.
func Merge(newItems, existing []domain.Item, capacity int) []domain.Item {
	combined := make([]domain.Item, 0, len(newItems)+len(existing))
	combined = append(combined, newItems...)
	combined = append(combined, existing...)

	seen := make(map[string]struct{}, len(combined))
	unique := combined[:0]
	for _, item := range combined {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		unique = append(unique, item)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Timestamp > unique[j].Timestamp
	})

	if capacity > 0 && len(unique) > capacity {
		unique = unique[:capacity]
	}

	out := make([]domain.Item, len(unique))
	copy(out, unique)
	return out
}

// load reads the persisted store; missing or corrupt content yields empty.
func (m *Manager) load() []domain.Item {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.WarnObj("store read failed; treating as empty", "store_error", map[string]any{
				"path":  m.path,
				"error": err.Error(),
			})
		}
		return nil
	}

	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		m.log.WarnObj("store decode failed; treating as empty", "store_error", map[string]any{
			"path":  m.path,
			"error": err.Error(),
		})
		return nil
	}
	return items
}

// write persists the items with write-then-rename so a failure mid-write
// never leaves a truncated store.
func (m *Manager) write(items []domain.Item) error {
	dir := filepath.Dir(m.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}

	payload, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(m.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
