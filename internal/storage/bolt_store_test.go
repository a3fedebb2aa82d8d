package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func TestBoltStoreMarksAndExpiresURLs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	opts := Options{
		URLTTL:          1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(path, opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	seen, err := store.SeenURL("https://example.com/a")
	if err != nil || seen {
		t.Fatalf("expected unseen url, seen=%v err=%v", seen, err)
	}

	if err := store.MarkURLs([]string{"https://example.com/a"}); err != nil {
		t.Fatalf("MarkURLs: %v", err)
	}

	seen, err = store.SeenURL("https://example.com/a")
	if err != nil || !seen {
		t.Fatalf("expected url marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenURL("https://example.com/a")
	if err != nil {
		t.Fatalf("SeenURL after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestBoltStoreZeroTTLKeepsURLsForever(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	storeRaw, err := openBolt(path, Options{CleanupInterval: time.Second})
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	if err := store.MarkURLs([]string{"https://example.com/a"}); err != nil {
		t.Fatalf("MarkURLs: %v", err)
	}

	// Even with cleanup cadence elapsed, zero-TTL entries never expire.
	store.lastCleanup.Store(time.Now().Add(-time.Hour).Unix())

	seen, err := store.SeenURL("https://example.com/a")
	if err != nil || !seen {
		t.Fatalf("expected url retained forever, seen=%v err=%v", seen, err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkURLs([]string{"x"}); err != nil {
		t.Fatalf("noop store MarkURLs: %v", err)
	}
	if seen, err := store.SeenURL("x"); err != nil || seen {
		t.Fatalf("noop store must never see, seen=%v err=%v", seen, err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
