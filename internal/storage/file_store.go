package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// fileStore implements a Store backed by an append-only line-oriented text
// file, one URL per line. The full history is loaded into memory at open
// for O(1) membership checks.
type fileStore struct {
	mu   sync.RWMutex
	path string
	seen map[string]struct{}
}

// openFileStore loads (or creates) the history file.
func openFileStore(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	store := &fileStore{
		path: path,
		seen: make(map[string]struct{}),
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return store, nil
		}
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url != "" {
			store.seen[url] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	return store, nil
}

func (f *fileStore) Close() error { return nil }

// SeenURL checks membership against the in-memory set.
func (f *fileStore) SeenURL(url string) (bool, error) {
	if f == nil {
		return false, nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.seen[url]
	return ok, nil
}

// MarkURLs appends new identities to the history file and the in-memory set.
func (f *fileStore) MarkURLs(urls []string) error {
	if f == nil || len(urls) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	fresh := make([]string, 0, len(urls))
	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		if _, ok := f.seen[url]; ok {
			continue
		}
		fresh = append(fresh, url)
	}
	if len(fresh) == 0 {
		return nil
	}

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file for append: %w", err)
	}
	defer file.Close()

	for _, url := range fresh {
		if _, err := file.WriteString(url + "\n"); err != nil {
			return fmt.Errorf("append history entry: %w", err)
		}
		f.seen[url] = struct{}{}
	}

	return nil
}
