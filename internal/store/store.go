// Package store provides a BadgerDB-backed ledger of uploads accepted by the server.
// Entries expire automatically after DataTTL.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	// TTL for upload records (30 days)
	DataTTL = 30 * 24 * time.Hour

	prefixUpload = "upload:"
)

// ErrNotFound is returned when no record exists for a file name.
var ErrNotFound = errors.New("upload not found")

// Store wraps BadgerDB with upload-specific operations.
type Store struct {
	db  *badger.DB
	now func() time.Time
}

// Upload describes the most recent write to one stored file.
type Upload struct {
	Name     string    `json:"name"`
	Size     int       `json:"size"`
	ConnID   string    `json:"conn_id"`
	StoredAt time.Time `json:"stored_at"`
	Writes   int       `json:"writes"` // times this name was written
}

// New opens a Store in dataDir. An empty dataDir opens an in-memory store.
func New(dataDir string) (*Store, error) {
	opts := badger.DefaultOptions(dataDir)
	if dataDir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable badger's internal logging
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs value log garbage collection until ctx is done.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrGCInMemoryMode) {
				slog.Warn("BadgerDB GC error", "error", err)
			}
		}
	}
}

// Record stores the outcome of an upload, replacing any previous record
// for the same name.
func (s *Store) Record(name string, size int, connID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixUpload + name)
		up := Upload{Name: name}

		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &up)
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		up.Size = size
		up.ConnID = connID
		up.StoredAt = s.now()
		up.Writes++

		data, err := json.Marshal(up)
		if err != nil {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(DataTTL))
	})
}

// List returns up to limit records, most recent first. A limit of zero
// returns everything.
func (s *Store) List(limit int) ([]*Upload, error) {
	var uploads []*Upload

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixUpload)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var up Upload
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &up)
			})
			if err != nil {
				continue
			}
			uploads = append(uploads, &up)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(uploads, func(i, j int) bool {
		return uploads[i].StoredAt.After(uploads[j].StoredAt)
	})
	if limit > 0 && len(uploads) > limit {
		uploads = uploads[:limit]
	}
	return uploads, nil
}

// Delete removes the record for name.
func (s *Store) Delete(name string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(prefixUpload + name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrNotFound, name)
			}
			return err
		}
		return txn.Delete(key)
	})
}

// Prune deletes every record for which keep returns false and reports how
// many were removed.
func (s *Store) Prune(keep func(name string) bool) (int, error) {
	uploads, err := s.List(0)
	if err != nil {
		return 0, err
	}

	pruned := 0
	for _, up := range uploads {
		if keep(up.Name) {
			continue
		}
		if err := s.Delete(up.Name); err != nil && !errors.Is(err, ErrNotFound) {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}
