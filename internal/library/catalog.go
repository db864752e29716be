package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/attacca/attacca/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketSongs    = []byte("songs")
	bucketSetlists = []byte("setlists")
	bucketMeta     = []byte("meta")
)

// Catalog persists the synced song and setlist lists in bbolt so the
// library stays browsable offline. Hot reads are promoted to a memory map.
type Catalog struct {
	db *bolt.DB
	mu sync.RWMutex

	cache map[string][]byte
}

// NewCatalog opens (or creates) the catalog database under dir
func NewCatalog(dir string) (*Catalog, error) {
	if dir == "" {
		// Memory-only mode (no persistence)
		return &Catalog{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "catalog.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSongs, bucketSetlists, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Catalog{db: db, cache: make(map[string][]byte)}, nil
}

func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (c *Catalog) get(bucket []byte, key string, dest interface{}) bool {
	cacheKey := string(bucket) + ":" + key

	c.mu.RLock()
	if data, ok := c.cache[cacheKey]; ok {
		c.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	c.mu.RUnlock()

	if c.db == nil {
		return false
	}

	var data []byte
	c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})

	if data == nil {
		return false
	}

	// Promote to memory cache
	c.mu.Lock()
	c.cache[cacheKey] = data
	c.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (c *Catalog) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	cacheKey := string(bucket) + ":" + key

	c.mu.Lock()
	c.cache[cacheKey] = data
	c.mu.Unlock()

	if c.db == nil {
		return nil // Memory-only mode
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

// === Songs ===

func (c *Catalog) GetSongs() ([]*domain.ContentItem, bool) {
	var songs []*domain.ContentItem
	ok := c.get(bucketSongs, "list", &songs)
	return songs, ok
}

func (c *Catalog) SaveSongs(songs []*domain.ContentItem, serverTS int64) error {
	if err := c.set(bucketSongs, "list", songs); err != nil {
		return err
	}
	return c.set(bucketMeta, "ts", serverTS)
}

// === Setlists ===

func (c *Catalog) GetSetlists() ([]*domain.Setlist, bool) {
	var lists []*domain.Setlist
	ok := c.get(bucketSetlists, "list", &lists)
	return lists, ok
}

func (c *Catalog) SaveSetlists(lists []*domain.Setlist) error {
	return c.set(bucketSetlists, "list", lists)
}

// IsValid checks if the stored server timestamp >= serverTS
func (c *Catalog) IsValid(serverTS int64) bool {
	var storedTS int64
	if !c.get(bucketMeta, "ts", &storedTS) {
		return false
	}
	return storedTS >= serverTS
}

// InvalidateAll wipes the catalog
func (c *Catalog) InvalidateAll() {
	c.mu.Lock()
	c.cache = make(map[string][]byte)
	c.mu.Unlock()

	if c.db == nil {
		return
	}

	c.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketSongs, bucketSetlists, bucketMeta} {
			b := tx.Bucket(bucket)
			if b == nil {
				continue
			}
			cur := b.Cursor()
			for k, _ := cur.First(); k != nil; k, _ = cur.Next() {
				if err := b.Delete(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
