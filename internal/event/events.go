package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/stationcu/internal/types"
)

// Event type names.
const (
	TypeStationsLoaded     = "stations_loaded"
	TypeLineAdded          = "line_added"
	TypeLineFieldUpdated   = "line_field_updated"
	TypeLineQuantitySet    = "line_quantity_set"
	TypeLineDeletedToggled = "line_deleted_toggled"
	TypeQuantitiesCopied   = "quantities_copied"
	TypeStationCheckedOut  = "station_checked_out"
	TypeStationCompleted   = "station_completed"
	TypeStationReleased    = "station_released"
)

// DomainEvent carries the canonical shape of every store mutation event.
type DomainEvent struct {
	ID               string
	EventType        string
	OccurredAt       time.Time
	SessionID        string
	Actor            types.Actor
	AffectedEntities []types.SourceRef
	Summary          string
	Category         string // "load", "station", "line"
	Weight           string // "major", "minor", "info"
	Payload          json.RawMessage
}

// StationID returns the id of the station the event is about, if any.
func (e DomainEvent) StationID() string {
	for _, ref := range e.AffectedEntities {
		if ref.EntityType == "station" {
			return ref.EntityID
		}
	}
	return ""
}

// Meta carries the fields every constructor needs from the store.
type Meta struct {
	SessionID  string
	ActivityID string
	Actor      types.Actor
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func newEvent(m Meta, eventType, category, weight, summary string, refs []types.SourceRef, payload any) DomainEvent {
	if m.ActivityID != "" {
		refs = append(refs, types.SourceRef{EntityType: "activity", EntityID: m.ActivityID, Role: "context"})
	}
	return DomainEvent{
		ID:               newID(),
		EventType:        eventType,
		OccurredAt:       time.Now(),
		SessionID:        m.SessionID,
		Actor:            m.Actor,
		AffectedEntities: refs,
		Summary:          summary,
		Category:         category,
		Weight:           weight,
		Payload:          mustJSON(payload),
	}
}

func stationRef(id string) types.SourceRef {
	return types.SourceRef{EntityType: "station", EntityID: id, Role: "subject"}
}

func lineRefs(stationID, lineID string) []types.SourceRef {
	return []types.SourceRef{
		{EntityType: "line", EntityID: stationID + "/" + lineID, Role: "subject"},
		{EntityType: "station", EntityID: stationID, Role: "context"},
	}
}

// ── Load events ─────────────────────────────────────────────────────────────

// StationsLoadedPayload describes a snapshot replacement.
type StationsLoadedPayload struct {
	ActivityID   string `json:"activity_id"`
	StationCount int    `json:"station_count"`
	LineCount    int    `json:"line_count"`
	Source       string `json:"source"` // "payload", "open", "fixture"
}

func NewStationsLoaded(m Meta, p StationsLoadedPayload) DomainEvent {
	return newEvent(m, TypeStationsLoaded, "load", "major",
		fmt.Sprintf("Loaded %d stations with %d lines from %s", p.StationCount, p.LineCount, p.Source),
		nil, p)
}

// ── Line events ─────────────────────────────────────────────────────────────

// LineAddedPayload carries the new line id.
type LineAddedPayload struct {
	StationID string `json:"station_id"`
	LineID    string `json:"line_id"`
}

func NewLineAdded(m Meta, p LineAddedPayload) DomainEvent {
	return newEvent(m, TypeLineAdded, "line", "minor",
		fmt.Sprintf("Line %s added to station %s", p.LineID, p.StationID),
		lineRefs(p.StationID, p.LineID), p)
}

// LineFieldUpdatedPayload records a single field change.
type LineFieldUpdatedPayload struct {
	StationID string          `json:"station_id"`
	LineID    string          `json:"line_id"`
	Field     types.LineField `json:"field"`
	Old       any             `json:"old"`
	New       any             `json:"new"`
}

func NewLineFieldUpdated(m Meta, p LineFieldUpdatedPayload) DomainEvent {
	return newEvent(m, TypeLineFieldUpdated, "line", "info",
		fmt.Sprintf("Line %s %s set to %v", p.LineID, p.Field, p.New),
		lineRefs(p.StationID, p.LineID), p)
}

// LineQuantitySetPayload records an installed-quantity change.
type LineQuantitySetPayload struct {
	StationID string `json:"station_id"`
	LineID    string `json:"line_id"`
	Previous  int    `json:"previous"`
	Installed int    `json:"installed"`
}

func NewLineQuantitySet(m Meta, p LineQuantitySetPayload) DomainEvent {
	return newEvent(m, TypeLineQuantitySet, "line", "minor",
		fmt.Sprintf("Line %s installed quantity %d -> %d", p.LineID, p.Previous, p.Installed),
		lineRefs(p.StationID, p.LineID), p)
}

// LineDeletedToggledPayload records the new deleted flag.
type LineDeletedToggledPayload struct {
	StationID string `json:"station_id"`
	LineID    string `json:"line_id"`
	Deleted   bool   `json:"deleted"`
}

func NewLineDeletedToggled(m Meta, p LineDeletedToggledPayload) DomainEvent {
	verb := "restored"
	if p.Deleted {
		verb = "deleted"
	}
	return newEvent(m, TypeLineDeletedToggled, "line", "minor",
		fmt.Sprintf("Line %s %s", p.LineID, verb),
		lineRefs(p.StationID, p.LineID), p)
}

// QuantitiesCopiedPayload lists the lines whose required quantity was copied.
type QuantitiesCopiedPayload struct {
	StationID string   `json:"station_id"`
	LineIDs   []string `json:"line_ids"`
}

func NewQuantitiesCopied(m Meta, p QuantitiesCopiedPayload) DomainEvent {
	refs := []types.SourceRef{stationRef(p.StationID)}
	for _, id := range p.LineIDs {
		refs = append(refs, types.SourceRef{EntityType: "line", EntityID: p.StationID + "/" + id, Role: "target"})
	}
	return newEvent(m, TypeQuantitiesCopied, "line", "minor",
		fmt.Sprintf("Copied required to installed on %d lines of station %s", len(p.LineIDs), p.StationID),
		refs, p)
}

// ── Station events ──────────────────────────────────────────────────────────

// StationStatusPayload records a status transition.
type StationStatusPayload struct {
	StationID string              `json:"station_id"`
	From      types.StationStatus `json:"from"`
	To        types.StationStatus `json:"to"`
	Holder    *types.Actor        `json:"holder,omitempty"`
}

func NewStationCheckedOut(m Meta, p StationStatusPayload) DomainEvent {
	who := m.Actor.ID
	if p.Holder != nil {
		who = p.Holder.ID
	}
	return newEvent(m, TypeStationCheckedOut, "station", "major",
		fmt.Sprintf("Station %s checked out by %s", p.StationID, who),
		[]types.SourceRef{stationRef(p.StationID)}, p)
}

func NewStationCompleted(m Meta, p StationStatusPayload) DomainEvent {
	return newEvent(m, TypeStationCompleted, "station", "major",
		fmt.Sprintf("Station %s completed", p.StationID),
		[]types.SourceRef{stationRef(p.StationID)}, p)
}

func NewStationReleased(m Meta, p StationStatusPayload) DomainEvent {
	return newEvent(m, TypeStationReleased, "station", "minor",
		fmt.Sprintf("Station %s released", p.StationID),
		[]types.SourceRef{stationRef(p.StationID)}, p)
}
