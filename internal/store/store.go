package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/perch/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	bucketEntries = []byte("entries")
	bucketMeta    = []byte("meta")
	bucketOutbox  = []byte("outbox")

	allBuckets = [][]byte{bucketEntries, bucketMeta, bucketOutbox}
)

const (
	keyEntryList = "list"
	keyServerTS  = "ts"
	keyOpSeq     = "seq"
	opKeyPrefix  = "op:"
)

// Store implements domain.EntryStore using BoltDB.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// writeMu serialises read-modify-write sequences (entry list, op sequence)
	writeMu sync.Mutex

	// In-memory cache for hot-path reads (promoted on access).
	// In memory-only mode it is the only copy.
	cache map[string][]byte
}

var _ domain.EntryStore = (*Store)(nil)

// NewStore opens the store for serverURL under baseCacheDir. An empty
// baseCacheDir keeps everything in memory.
func NewStore(baseCacheDir, serverURL string) (*Store, error) {
	if baseCacheDir == "" {
		// Memory-only mode (no persistence)
		return &Store{cache: make(map[string][]byte)}, nil
	}

	dir := baseCacheDir
	if serverURL != "" {
		dir = filepath.Join(baseCacheDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "perch.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	// Create buckets
	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
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

	return &Store{db: db, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func cacheKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

func (s *Store) get(bucket []byte, key string, dest interface{}) bool {
	ck := cacheKey(bucket, key)

	// Check memory cache first
	s.mu.RLock()
	if data, ok := s.cache[ck]; ok {
		s.mu.RUnlock()
		return json.Unmarshal(data, dest) == nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return false
	}

	var data []byte
	s.db.View(func(tx *bolt.Tx) error {
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
	s.mu.Lock()
	s.cache[ck] = data
	s.mu.Unlock()

	return json.Unmarshal(data, dest) == nil
}

func (s *Store) set(bucket []byte, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(bucket).Put([]byte(key), data)
		})
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.cache[cacheKey(bucket, key)] = data
	s.mu.Unlock()
	return nil
}

func (s *Store) delete(bucket []byte, key string) error {
	s.mu.Lock()
	delete(s.cache, cacheKey(bucket, key))
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// scanPrefix returns the raw values under prefix in key order.
func (s *Store) scanPrefix(bucket []byte, prefix string) [][]byte {
	if s.db == nil {
		cachePrefix := cacheKey(bucket, prefix)
		s.mu.RLock()
		keys := make([]string, 0)
		for k := range s.cache {
			if strings.HasPrefix(k, cachePrefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		values := make([][]byte, len(keys))
		for i, k := range keys {
			values[i] = s.cache[k]
		}
		s.mu.RUnlock()
		return values
	}

	var values [][]byte
	s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		prefixBytes := []byte(prefix)
		for k, v := c.Seek(prefixBytes); k != nil && strings.HasPrefix(string(k), prefix); k, v = c.Next() {
			dup := make([]byte, len(v))
			copy(dup, v)
			values = append(values, dup)
		}
		return nil
	})
	return values
}

// === Mirror ===

func (s *Store) GetEntries() ([]domain.Entry, bool) {
	var entries []domain.Entry
	ok := s.get(bucketEntries, keyEntryList, &entries)
	return entries, ok
}

func (s *Store) SaveEntries(entries []domain.Entry, serverTS int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if entries == nil {
		entries = []domain.Entry{}
	}
	if err := s.set(bucketEntries, keyEntryList, entries); err != nil {
		return err
	}
	// Save timestamp separately for freshness checks
	return s.set(bucketMeta, keyServerTS, serverTS)
}

// PutEntry inserts or replaces a single entry in the mirror.
func (s *Store) PutEntry(entry domain.Entry) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, _ := s.GetEntries()
	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return s.set(bucketEntries, keyEntryList, entries)
}

// DeleteEntry removes an entry from the mirror. Missing entries are ignored.
func (s *Store) DeleteEntry(id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entries, ok := s.GetEntries()
	if !ok {
		return nil
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return s.set(bucketEntries, keyEntryList, kept)
}

// === Validation ===

func (s *Store) IsFresh(serverTS int64) bool {
	var storedTS int64
	if !s.get(bucketMeta, keyServerTS, &storedTS) {
		return false
	}
	return storedTS >= serverTS
}

// === Outbox ===

// QueueOp appends op to the outbox and assigns its sequence number.
func (s *Store) QueueOp(op domain.PendingOp) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var seq uint64
	s.get(bucketMeta, keyOpSeq, &seq)
	seq++
	op.Seq = seq

	if err := s.set(bucketOutbox, opKey(seq), op); err != nil {
		return err
	}
	return s.set(bucketMeta, keyOpSeq, seq)
}

// PendingOps returns queued writes in enqueue order.
func (s *Store) PendingOps() []domain.PendingOp {
	raw := s.scanPrefix(bucketOutbox, opKeyPrefix)
	ops := make([]domain.PendingOp, 0, len(raw))
	for _, data := range raw {
		var op domain.PendingOp
		if json.Unmarshal(data, &op) == nil {
			ops = append(ops, op)
		}
	}
	return ops
}

// AckOp removes a pushed write from the outbox.
func (s *Store) AckOp(seq uint64) error {
	return s.delete(bucketOutbox, opKey(seq))
}

// opKey zero-pads so lexical key order matches enqueue order.
func opKey(seq uint64) string {
	return fmt.Sprintf("%s%020d", opKeyPrefix, seq)
}

// === Invalidation ===

// InvalidateAll wipes the mirror and freshness timestamp. Queued writes and
// the op sequence survive so local changes are not lost.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	for k := range s.cache {
		if strings.HasPrefix(k, string(bucketEntries)+":") || k == cacheKey(bucketMeta, keyServerTS) {
			delete(s.cache, k)
		}
	}
	s.mu.Unlock()

	if s.db == nil {
		return
	}

	s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketEntries); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(bucketEntries); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete([]byte(keyServerTS))
	})
}
