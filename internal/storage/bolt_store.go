package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	urlBucket        = "urls"
	expiryValueBytes = 8
)

// boltStore implements a Store backed by BoltDB. Unlike the file backend it
// supports optional expiry of identities, bounding history growth.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	urlTTL          time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(urlBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		urlTTL:          opts.URLTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SeenURL checks if the given URL identity has been recorded.
func (b *boltStore) SeenURL(url string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return false, err
	}

	var exists bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(urlBucket))
		if bucket == nil {
			return fmt.Errorf("url bucket missing")
		}

		key := []byte(url)
		value := bucket.Get(key)
		if value == nil {
			exists = false
			return nil
		}

		expiry, ok := decodeExpiry(value)
		if !ok {
			exists = false
			return bucket.Delete(key)
		}
		if !expiry.IsZero() && !expiry.After(time.Now()) {
			exists = false
			return bucket.Delete(key)
		}

		exists = true
		return nil
	})
	return exists, err
}

// MarkURLs records the given URL identities.
func (b *boltStore) MarkURLs(urls []string) error {
	if b == nil || b.db == nil || len(urls) == 0 {
		return nil
	}

	now := time.Now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(urlBucket))
		if bucket == nil {
			return fmt.Errorf("url bucket missing")
		}

		value := encodeExpiry(now, b.urlTTL)
		for _, url := range urls {
			if url == "" {
				continue
			}
			if err := bucket.Put([]byte(url), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// maybeCleanupExpired removes expired identities on a fixed cadence. With a
// zero TTL nothing ever expires and the scan is skipped.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil || b.urlTTL <= 0 {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(urlBucket))
		if bucket == nil {
			return fmt.Errorf("url bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || (!expiry.IsZero() && !expiry.After(now)) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// encodeExpiry stores the expiry instant, or zero for entries that never expire.
func encodeExpiry(now time.Time, ttl time.Duration) []byte {
	buf := make([]byte, expiryValueBytes)
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf, uint64(now.Add(ttl).Unix()))
	}
	return buf
}

// decodeExpiry decodes the expiry time; a zero value means no expiry.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix == 0 {
		return time.Time{}, true
	}
	if unix < 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
