// Package store is a small pebble-backed key/value store.
package store

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"routekit/pkg/logger"
)

// ErrNotFound is returned by Get for missing keys.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store closed")

// Store wraps a pebble database. It is safe for concurrent use.
type Store struct {
	db   *pebble.DB
	path string
}

// KV is one entry returned by List.
type KV struct {
	Key   string
	Value []byte
}

// Open opens (or creates) a pebble database at path.
func Open(path string) (*Store, error) {
	logger.Info("opening_pebble_db", "path", path)
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	logger.Info("pebble_opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// OpenInMemory opens a database backed by an in-memory filesystem.
func OpenInMemory() (*Store, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("open in-memory pebble: %w", err)
	}
	logger.Info("pebble_opened", "path", ":memory:")
	return &Store{db: db, path: ":memory:"}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return err
	}
	s.db = nil
	logger.Info("pebble_closed", "path", s.path)
	return nil
}

// Ready reports whether the store is open.
func (s *Store) Ready() bool {
	return s != nil && s.db != nil
}

// Path is where the database lives, or ":memory:".
func (s *Store) Path() string { return s.path }

// Put writes value under key and syncs.
func (s *Store) Put(key string, value []byte) error {
	if !s.Ready() {
		return ErrClosed
	}
	return s.db.Set([]byte(key), value, pebble.Sync)
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	if !s.Ready() {
		return nil, ErrClosed
	}
	v, closer, err := s.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), v...), nil
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if !s.Ready() {
		return ErrClosed
	}
	return s.db.Delete([]byte(key), pebble.Sync)
}

// List returns up to limit entries whose key starts with prefix, in key
// order. A limit of zero or less means no limit.
func (s *Store) List(prefix string, limit int) ([]KV, error) {
	if !s.Ready() {
		return nil, ErrClosed
	}
	opts := &pebble.IterOptions{LowerBound: []byte(prefix)}
	if ub := upperBound([]byte(prefix)); ub != nil {
		opts.UpperBound = ub
	}
	iter, err := s.db.NewIter(opts)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []KV
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, KV{
			Key:   string(iter.Key()),
			Value: append([]byte(nil), iter.Value()...),
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, iter.Error()
}

// upperBound returns the smallest key greater than every key with prefix,
// or nil when no such key exists.
func upperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
