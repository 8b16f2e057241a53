// Package journal keeps a BoltDB record of every posted request.
//
// The batch runner consults the journal before posting: a request whose
// entry is already valid was fully posted by an earlier run and is skipped,
// which makes re-running an upload after a partial failure safe.
package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "postings"

// ErrNotFound is returned when no entry exists for a key.
var ErrNotFound = errors.New("journal entry not found")

// Step is one document created or attempted for a request.
type Step struct {
	Kind     string `json:"kind"`
	DocEntry int    `json:"doc_entry,omitempty"`
	Valid    bool   `json:"valid"`
	Message  string `json:"message"`
}

// Entry is the journal record of one request.
type Entry struct {
	Key         string    `json:"key"`
	Serial      string    `json:"serial"`
	Tab         string    `json:"tab"`
	RefNo       string    `json:"ref_no"`
	Valid       bool      `json:"valid"`
	Message     string    `json:"message"`
	Steps       []Step    `json:"steps"`
	Compensated bool      `json:"compensated"`
	PostedAt    time.Time `json:"posted_at"`

	// NeedsAttention marks a request whose rollback left documents in the
	// ERP. It is not posted again until the entry is cleared.
	NeedsAttention bool `json:"needs_attention,omitempty"`
}

// Blocked reports whether the request must not be posted again.
func (e *Entry) Blocked() bool {
	return e.Valid || e.NeedsAttention
}

// Key builds the journal key of a request.
func Key(serial, tab, refNo string) string {
	return strings.Join([]string{serial, tab, refNo}, "/")
}

// Store wraps a BoltDB database holding journal entries.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the journal at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry stored under key.
func (s *Store) Get(key string) (*Entry, error) {
	var e Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &e)
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// IsPosted reports whether key has a valid entry.
func (s *Store) IsPosted(key string) (bool, error) {
	e, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return e.Valid, nil
}

// Delete removes the entry stored under key so the request can be posted
// again. Deleting a missing key returns ErrNotFound.
func (s *Store) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b.Get([]byte(key)) == nil {
			return ErrNotFound
		}
		return b.Delete([]byte(key))
	})
}

// Put stores e under e.Key. Writing an entry identical to the stored one is
// skipped; the second result reports whether a write happened.
func (s *Store) Put(e *Entry) (bool, error) {
	if e.Key == "" {
		return false, errors.New("journal entry has no key")
	}
	data, err := json.Marshal(e)
	if err != nil {
		return false, err
	}

	written := false
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if existing := b.Get([]byte(e.Key)); existing != nil && bytes.Equal(existing, data) {
			return nil
		}
		written = true
		return b.Put([]byte(e.Key), data)
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

// List returns the entries whose key starts with prefix, in key order.
func (s *Store) List(prefix string) ([]Entry, error) {
	entries := []Entry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketName)).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode entry %s: %w", k, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
