package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/attacca/attacca/internal/domain"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var bucketEntries = []byte("cache_entries")

// Superseder releases a handle once it is no longer displayed anywhere
// (consumer-defined interface; the performance session supplies one)
type Superseder interface {
	Supersede(h domain.FileHandle)
}

// Handle is an open lease on a cache file. It implements domain.FileHandle.
type Handle struct {
	path      string
	mediaType string

	mu       sync.Mutex
	released bool
}

// Path returns the location of the backing cache file
func (h *Handle) Path() string { return h.path }

// MediaType returns the recorded media type
func (h *Handle) MediaType() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mediaType
}

// setMediaType records a type learned after the handle was armed
func (h *Handle) setMediaType(mediaType string) {
	h.mu.Lock()
	h.mediaType = mediaType
	h.mu.Unlock()
}

// Open returns a reader over the cache file. Fails after release.
func (h *Handle) Open() (io.ReadCloser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, domain.ErrHandleReleased
	}
	f, err := os.Open(h.path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	return f, nil
}

// Release ends the lease. Releasing twice is a no-op.
func (h *Handle) Release() {
	h.mu.Lock()
	h.released = true
	h.mu.Unlock()
}

// Released reports whether the lease has ended
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

// Entry is one cached file keyed by content item ID
type Entry struct {
	ID        string    `json:"id"`
	FileName  string    `json:"fileName"`
	MediaType string    `json:"mediaType"`
	Size      int64     `json:"size"`
	FetchedAt time.Time `json:"fetchedAt"`

	// Live lease, re-armed lazily on Get. Not persisted.
	handle *Handle
}

// Handle returns the entry's current live lease
func (e *Entry) Handle() *Handle { return e.handle }

// Store maps content IDs to locally materialized cache files. The bbolt
// index persists entry metadata across restarts; the in-memory map backs
// constant-time synchronous Get.
type Store struct {
	db       *bolt.DB
	dir      string
	filesDir string
	logger   *slog.Logger

	mu         sync.Mutex
	entries    map[string]*Entry
	superseder Superseder
}

// New opens (or creates) a cache store rooted at dir
func New(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	filesDir := filepath.Join(dir, "files")
	if err := os.MkdirAll(filesDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, "cache.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:       db,
		dir:      dir,
		filesDir: filesDir,
		logger:   logger,
		entries:  make(map[string]*Entry),
	}

	if err := s.loadEntries(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// SetSuperseder wires the lifecycle manager that releases replaced handles.
// Without one, replaced handles are released directly.
func (s *Store) SetSuperseder(sup Superseder) {
	s.mu.Lock()
	s.superseder = sup
	s.mu.Unlock()
}

// loadEntries fills the memory map from the bbolt index, dropping entries
// whose backing file has vanished
func (s *Store) loadEntries() error {
	var stale []string

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		return b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				stale = append(stale, string(k))
				return nil
			}
			path := filepath.Join(s.filesDir, e.FileName)
			if _, err := os.Stat(path); err != nil {
				stale = append(stale, string(k))
				return nil
			}
			s.entries[e.ID] = &e
			return nil
		})
	})
	if err != nil {
		return err
	}

	if len(stale) > 0 {
		s.logger.Warn("dropping cache entries with missing files", "count", len(stale))
		s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucketEntries)
			for _, k := range stale {
				b.Delete([]byte(k))
			}
			return nil
		})
	}

	return nil
}

// Put materializes src as a cache file for id and installs the entry,
// replacing any previous one. The file is written to a unique name and
// moved into place atomically, so a partially written entry is never
// visible and a replaced entry's old handle still reads the old bytes
// until released. The old handle is superseded only after the new entry
// is installed.
func (s *Store) Put(id string, src io.Reader, mediaType string) (*Entry, error) {
	name := cacheFileName(id, mediaType)
	path := filepath.Join(s.filesDir, name)

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return nil, fmt.Errorf("create pending cache file: %w", err)
	}
	defer pending.Cleanup()

	size, err := io.Copy(pending, src)
	if err != nil {
		return nil, fmt.Errorf("write cache file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return nil, fmt.Errorf("install cache file: %w", err)
	}

	entry := &Entry{
		ID:        id,
		FileName:  name,
		MediaType: mediaType,
		Size:      size,
		FetchedAt: time.Now(),
		handle:    &Handle{path: path, mediaType: mediaType},
	}

	s.mu.Lock()
	prev := s.entries[id]
	s.entries[id] = entry
	sup := s.superseder
	s.mu.Unlock()

	if err := s.saveEntry(entry); err != nil {
		s.logger.Error("failed to persist cache entry", "error", err, "id", id)
	}

	// New entry is installed; now the old lease can go
	if prev != nil {
		s.releaseHandle(prev.handle, sup)
		if prev.FileName != name {
			os.Remove(filepath.Join(s.filesDir, prev.FileName))
		}
	}

	s.logger.Debug("cached file", "id", id, "bytes", size, "mediaType", mediaType)
	return entry, nil
}

// Get returns the entry for id. Synchronous, constant time, no network.
// A released handle is re-armed (the file is local; a fresh lease is cheap),
// and an entry whose backing file has vanished is evicted.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}

	path := filepath.Join(s.filesDir, entry.FileName)
	if _, err := os.Stat(path); err != nil {
		// Backing file gone; self-heal by evicting
		delete(s.entries, id)
		s.deleteEntry(id)
		return nil, false
	}

	if entry.handle == nil || entry.handle.Released() {
		entry.handle = &Handle{path: path, mediaType: entry.MediaType}
	}

	return entry, true
}

// SetMediaType records a media type discovered after install (a byte sniff),
// updating the live handle and the persisted entry so later visits resolve
// without another probe
func (s *Store) SetMediaType(id, mediaType string) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && entry.MediaType != mediaType {
		entry.MediaType = mediaType
		if entry.handle != nil {
			entry.handle.setMediaType(mediaType)
		}
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := s.saveEntry(entry); err != nil {
		s.logger.Error("failed to persist media type", "error", err, "id", id)
	}
}

// Contains reports whether id has a cache entry, without touching its handle
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	return ok
}

// Remove deletes the entry for id, releases its handle, and removes the file
func (s *Store) Remove(id string) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	sup := s.superseder
	s.mu.Unlock()

	if !ok {
		return
	}

	s.deleteEntry(id)
	s.releaseHandle(entry.handle, sup)
	os.Remove(filepath.Join(s.filesDir, entry.FileName))
	s.logger.Debug("removed cache entry", "id", id)
}

// Clear releases all handles, deletes all cache files, and wipes the index
func (s *Store) Clear() {
	s.mu.Lock()
	entries := s.entries
	s.entries = make(map[string]*Entry)
	sup := s.superseder
	s.mu.Unlock()

	for _, e := range entries {
		s.releaseHandle(e.handle, sup)
		os.Remove(filepath.Join(s.filesDir, e.FileName))
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})

	s.logger.Info("cleared cache", "entries", len(entries))
}

// Stats returns the entry count and total cached bytes
func (s *Store) Stats() (count int, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		count++
		bytes += e.Size
	}
	return count, bytes
}

// Close closes the index. Cache files and entries stay for the next session.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) releaseHandle(h *Handle, sup Superseder) {
	if h == nil {
		return
	}
	if sup != nil {
		sup.Supersede(h)
		return
	}
	h.Release()
}

func (s *Store) saveEntry(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Put([]byte(e.ID), data)
	})
}

func (s *Store) deleteEntry(id string) {
	s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketEntries).Delete([]byte(id))
	})
}

// cacheFileName builds a unique file name: content-id hash prefix for
// debuggability plus a short uuid so a replacement never collides with the
// file a still-live handle is reading.
func cacheFileName(id, mediaType string) string {
	hash := sha256.Sum256([]byte(id))
	return hex.EncodeToString(hash[:6]) + "-" + uuid.NewString()[:8] + extForMediaType(mediaType)
}

func extForMediaType(mediaType string) string {
	switch mediaType {
	case "application/pdf":
		return ".pdf"
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
