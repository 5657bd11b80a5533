// Package event defines the domain events emitted by station store
// mutations. Events are fanned out into journal entries, then published to
// the in-process event bus for logging and metrics.
package event

import (
	"context"

	"github.com/matthewbaird/stationcu/internal/journal"
	"github.com/matthewbaird/stationcu/internal/types"
)

// Recorder persists a domain event.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// JournalRecorder implements Recorder by fanning out a DomainEvent into
// one JournalEntry per affected entity. If a Publisher is set, the event is
// also published after the journal write succeeds.
type JournalRecorder struct {
	store journal.Store
	bus   Publisher
}

// NewJournalRecorder creates a recorder backed by the given store.
func NewJournalRecorder(store journal.Store) *JournalRecorder {
	return &JournalRecorder{store: store}
}

// SetPublisher attaches an event bus.
func (r *JournalRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

func (r *JournalRecorder) Record(ctx context.Context, evt DomainEvent) error {
	if err := r.store.WriteEntries(ctx, Entries(evt)); err != nil {
		return err
	}
	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}

// Entries fans a DomainEvent out into journal rows.
func Entries(evt DomainEvent) []types.JournalEntry {
	entries := make([]types.JournalEntry, 0, len(evt.AffectedEntities))
	for _, ref := range evt.AffectedEntities {
		entries = append(entries, types.JournalEntry{
			EventID:           evt.ID,
			EventType:         evt.EventType,
			OccurredAt:        evt.OccurredAt,
			SessionID:         evt.SessionID,
			ActorID:           evt.Actor.ID,
			IndexedEntityType: ref.EntityType,
			IndexedEntityID:   ref.EntityID,
			EntityRole:        ref.Role,
			SourceRefs:        evt.AffectedEntities,
			Summary:           evt.Summary,
			Category:          evt.Category,
			Weight:            evt.Weight,
			Payload:           evt.Payload,
		})
	}
	return entries
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, evt DomainEvent) error

func (f RecorderFunc) Record(ctx context.Context, evt DomainEvent) error { return f(ctx, evt) }
