// Package store is the client's read replica of the ledger. It is only
// ever replaced wholesale by Reload; workflows never patch it.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/client/gateway"
	"github.com/dmitrijs2005/moodkeeper/internal/client/models"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
)

var ErrNoReader = errors.New("ledger reader not configured")

// Cache persists snapshots between runs.
type Cache interface {
	Replace(ctx context.Context, entries []models.Entry) error
	Load(ctx context.Context) ([]models.Entry, error)
}

type EntryStore struct {
	mu         sync.RWMutex
	entries    []models.Entry
	reader     gateway.LedgerReader
	syncedAt   time.Time
	refreshing atomic.Bool

	cache Cache
	log   logging.Logger
	now   func() time.Time
}

// New returns an empty store. cache may be nil; a nil log discards output.
func New(cache Cache, log logging.Logger) *EntryStore {
	if log == nil {
		log = logging.Nop()
	}
	return &EntryStore{cache: cache, log: log, now: time.Now}
}

// SetReader binds the store to a ledger; nil unbinds it.
func (s *EntryStore) SetReader(r gateway.LedgerReader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reader = r
}

// Refreshing is true while a Reload is running.
func (s *EntryStore) Refreshing() bool {
	return s.refreshing.Load()
}

// Reload re-reads every entry from the ledger. A failure to list ids
// returns the error and keeps the previous snapshot; a failure on a single
// entry is logged and that entry is skipped.
func (s *EntryStore) Reload(ctx context.Context) error {
	s.mu.RLock()
	reader := s.reader
	s.mu.RUnlock()
	if reader == nil {
		return ErrNoReader
	}

	s.refreshing.Store(true)
	defer s.refreshing.Store(false)

	ids, err := reader.GetAllEntryIDs(ctx)
	if err != nil {
		return fmt.Errorf("list entry ids: %w", err)
	}

	now := s.now()
	entries := make([]models.Entry, 0, len(ids))
	for _, id := range ids {
		rec, err := reader.GetEntry(ctx, id)
		if err != nil {
			s.log.Warn(ctx, "failed to load entry", "entry_key", id, "error", err)
			continue
		}
		entries = append(entries, models.EntryFromRecord(id, rec, now))
	}

	s.mu.Lock()
	s.entries = entries
	s.syncedAt = now
	s.mu.Unlock()

	s.log.Debug(ctx, "entry store reloaded", "entries", len(entries), "skipped", len(ids)-len(entries))

	if s.cache != nil {
		if err := s.cache.Replace(ctx, entries); err != nil {
			s.log.Warn(ctx, "failed to persist snapshot", "error", err)
		}
	}
	return nil
}

// LoadCached seeds the store from the local cache. It does nothing once a
// Reload has succeeded.
func (s *EntryStore) LoadCached(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	entries, err := s.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cached snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.syncedAt.IsZero() {
		return nil
	}
	s.entries = entries
	return nil
}

// Snapshot returns a copy of the current entries in ledger order.
func (s *EntryStore) Snapshot() []models.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Entry(nil), s.entries...)
}

// Get looks an entry up by its ledger key.
func (s *EntryStore) Get(entryKey string) (models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.EntryKey == entryKey {
			return e, true
		}
	}
	return models.Entry{}, false
}

// SyncedAt is the time of the last successful Reload, zero if none.
func (s *EntryStore) SyncedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncedAt
}

// Len is the number of entries in the current snapshot.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
