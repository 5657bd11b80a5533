// Package journal keeps the in-memory edit journal of a running service:
// one entry per entity touched by each store mutation, queryable per
// station or line and searchable by summary text.
package journal

import (
	"context"
	"time"

	"github.com/matthewbaird/stationcu/internal/types"
)

// Store is the interface for reading and writing journal entries.
type Store interface {
	// WriteEntries writes one or more entries (one event → many entries).
	WriteEntries(ctx context.Context, entries []types.JournalEntry) error

	// QueryByEntity returns entries indexed under one entity, newest first.
	QueryByEntity(ctx context.Context, entityType, entityID string, opts QueryOptions) (entries []types.JournalEntry, totalCount int, err error)

	// Search matches summaries case-insensitively.
	Search(ctx context.Context, query string, opts SearchOptions) (entries []types.JournalEntry, totalCount int, err error)
}

// QueryOptions controls filtering for entity queries.
type QueryOptions struct {
	SessionID  string     // restrict to one session
	Since      *time.Time // inclusive lower bound
	Categories []string   // "load", "station", "line"
	Limit      int        // max results (default: 100, max: 500)
}

// SearchOptions controls filtering for text search.
type SearchOptions struct {
	SessionID  string
	EntityType string
	Limit      int // default: 20
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 100}
}
