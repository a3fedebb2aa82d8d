package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Topic is a single topical query the radar watches.
type Topic struct {
	ID         string `json:"id" yaml:"id"`
	Query      string `json:"query" yaml:"query"`
	Language   string `json:"language" yaml:"language"`
	Country    string `json:"country" yaml:"country"`
	Period     string `json:"period" yaml:"period"`
	MaxResults int    `json:"max_results" yaml:"max_results"`
}

// topicsFile represents the structure of the topics configuration file.
type topicsFile struct {
	Topics []Topic `json:"topics" yaml:"topics"`
}

const (
	defaultLanguage   = "en"
	defaultCountry    = "US"
	defaultPeriod     = "4h"
	defaultMaxResults = 15
)

// Registry materializes topic definitions loaded from config files.
type Registry struct {
	mu     sync.RWMutex
	topics []Topic
	idx    map[string]Topic
}

// LoadRegistry loads the topic registry from a YAML/JSON file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("topics file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open topics file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}

	parsed, err := parseTopicsFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(parsed.Topics) == 0 {
		return nil, errors.New("topics file contains no topic entries")
	}

	reg := &Registry{
		topics: make([]Topic, len(parsed.Topics)),
		idx:    make(map[string]Topic, len(parsed.Topics)),
	}

	for i := range parsed.Topics {
		topic := sanitizeTopic(parsed.Topics[i])
		if err := validateTopic(topic); err != nil {
			return nil, fmt.Errorf("topics[%d]: %w", i, err)
		}
		if _, exists := reg.idx[topic.ID]; exists {
			return nil, fmt.Errorf("duplicate topic id %q", topic.ID)
		}
		reg.topics[i] = topic
		reg.idx[topic.ID] = topic
	}

	return reg, nil
}

// parseTopicsFile attempts to decode the topics file content.
func parseTopicsFile(data []byte, ext string) (topicsFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var parsed topicsFile
		if err := d.fn(data, &parsed); err == nil {
			return parsed, nil
		}
	}

	return topicsFile{}, errors.New("topics file format not recognized (expected YAML or JSON)")
}

// sanitizeTopic trims fields and fills in defaults.
func sanitizeTopic(t Topic) Topic {
	t.ID = strings.TrimSpace(t.ID)
	t.Query = strings.TrimSpace(t.Query)
	t.Language = strings.TrimSpace(t.Language)
	t.Country = strings.TrimSpace(t.Country)
	t.Period = strings.TrimSpace(t.Period)

	if t.Language == "" {
		t.Language = defaultLanguage
	}
	if t.Country == "" {
		t.Country = defaultCountry
	}
	if t.Period == "" {
		t.Period = defaultPeriod
	}
	if t.MaxResults <= 0 {
		t.MaxResults = defaultMaxResults
	}

	return t
}

// validateTopic checks that required fields are present.
func validateTopic(t Topic) error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Query == "" {
		return fmt.Errorf("query is required for topic %q", t.ID)
	}
	return nil
}

// ByID returns the topic entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Topic, bool) {
	if r == nil {
		return Topic{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Topic{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.idx[id]
	return t, ok
}

// All returns a copy of the loaded topics.
func (r *Registry) All() []Topic {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Topic, len(r.topics))
	copy(out, r.topics)
	return out
}
