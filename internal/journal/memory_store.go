package journal

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/matthewbaird/stationcu/internal/types"
)

// MemoryStore implements Store using an in-memory slice bounded by capacity.
// When full, the oldest entries are discarded.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []types.JournalEntry
	capacity int
}

// NewMemoryStore creates an empty store. A non-positive capacity means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []types.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	if s.capacity > 0 && len(s.entries) > s.capacity {
		s.entries = slices.Clone(s.entries[len(s.entries)-s.capacity:])
	}
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// DropSession removes every entry written for a session.
func (s *MemoryStore) DropSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = slices.DeleteFunc(s.entries, func(e types.JournalEntry) bool {
		return e.SessionID == sessionID
	})
}

func (s *MemoryStore) QueryByEntity(_ context.Context, entityType, entityID string, opts QueryOptions) ([]types.JournalEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []types.JournalEntry
	for _, e := range s.entries {
		if e.IndexedEntityType != entityType || e.IndexedEntityID != entityID {
			continue
		}
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, e.Category) {
			continue
		}
		matched = append(matched, e)
	}

	newestFirst(matched)

	totalCount := len(matched)
	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, totalCount, nil
}

func (s *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]types.JournalEntry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var matched []types.JournalEntry
	for _, e := range s.entries {
		if !strings.Contains(strings.ToLower(e.Summary), q) {
			continue
		}
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		if opts.EntityType != "" && e.IndexedEntityType != opts.EntityType {
			continue
		}
		matched = append(matched, e)
	}

	newestFirst(matched)

	totalCount := len(matched)
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, totalCount, nil
}

// newestFirst sorts by time descending; entries written in the same instant
// keep reverse insertion order.
func newestFirst(entries []types.JournalEntry) {
	slices.Reverse(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].OccurredAt.After(entries[j].OccurredAt)
	})
}
