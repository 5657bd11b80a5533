// Package types provides the Go structs shared by the station store, the
// host protocol and the renderer: activities handed over by the host,
// stations with their material lines, and catalog entries.
package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Activity is the work-order-like record the host sends on "open".
// Fields holds every property the host supplied; only an allow-list is displayed.
type Activity struct {
	ID     string         `json:"id"`
	Type   string         `json:"type,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Clone returns a copy whose Fields map can be mutated independently.
// Nested values are shared; activities are immutable once received.
func (a Activity) Clone() Activity {
	out := a
	if a.Fields != nil {
		out.Fields = make(map[string]any, len(a.Fields))
		for k, v := range a.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// Actor identifies the person working the stations.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// IsZero reports whether no identity is set.
func (a Actor) IsZero() bool { return a.ID == "" }

// StationStatus is the lifecycle state of a station.
type StationStatus string

const (
	StatusOpen       StationStatus = "Open"
	StatusCheckedOut StationStatus = "CheckedOut"
	StatusComplete   StationStatus = "Complete"
)

// AllStatuses lists statuses in display order.
var AllStatuses = []StationStatus{StatusOpen, StatusCheckedOut, StatusComplete}

// ParseStationStatus accepts the spellings found in host payloads
// ("Checked Out", "checked_out", "Completed", ...). Empty means Open.
func ParseStationStatus(s string) (StationStatus, error) {
	switch normalizeWord(s) {
	case "", "open":
		return StatusOpen, nil
	case "checkedout":
		return StatusCheckedOut, nil
	case "complete", "completed":
		return StatusComplete, nil
	}
	return "", fmt.Errorf("unknown station status %q", s)
}

// Label returns the human-readable badge text.
func (s StationStatus) Label() string {
	if s == StatusCheckedOut {
		return "Checked Out"
	}
	return string(s)
}

// Disposition is the planned handling of a material line.
type Disposition string

const (
	DispositionInstall  Disposition = "Install"
	DispositionScrap    Disposition = "Scrap"
	DispositionRemove   Disposition = "Remove"
	DispositionTransfer Disposition = "Transfer"
	DispositionKeeper   Disposition = "Keeper"
)

// AllDispositions lists dispositions in the order offered to the user.
var AllDispositions = []Disposition{
	DispositionInstall, DispositionScrap, DispositionRemove, DispositionTransfer, DispositionKeeper,
}

// ParseDisposition matches case-insensitively. Empty means Install.
func ParseDisposition(s string) (Disposition, error) {
	w := normalizeWord(s)
	if w == "" {
		return DispositionInstall, nil
	}
	for _, d := range AllDispositions {
		if strings.ToLower(string(d)) == w {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown disposition %q", s)
}

// MaterialLine is one CU (material usage entry) within a station.
type MaterialLine struct {
	ID                string      `json:"id"`
	StockNumber       string      `json:"stock_number"`
	Description       string      `json:"description"`
	Type              string      `json:"type"`
	QuantityRequired  int         `json:"quantity_required"`
	QuantityInstalled int         `json:"quantity_installed"`
	Disposition       Disposition `json:"disposition"`
	NotUsed           bool        `json:"not_used"`
	Deleted           bool        `json:"deleted"` // soft delete, excluded from totals
	IsNew             bool        `json:"is_new"`  // user-added, fully editable
}

// Station is one physical work location and its material lines.
type Station struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Location     string         `json:"location"`
	Status       StationStatus  `json:"status"`
	CheckedOutBy *Actor         `json:"checked_out_by,omitempty"` // set only while CheckedOut
	Lines        []MaterialLine `json:"lines"`
}

// Clone returns a deep copy of the station.
func (s Station) Clone() Station {
	out := s
	if s.CheckedOutBy != nil {
		a := *s.CheckedOutBy
		out.CheckedOutBy = &a
	}
	out.Lines = append([]MaterialLine(nil), s.Lines...)
	return out
}

// CheckedOutByOther reports whether another actor holds the checkout.
func (s Station) CheckedOutByOther(actorID string) bool {
	return s.Status == StatusCheckedOut && s.CheckedOutBy != nil && s.CheckedOutBy.ID != actorID
}

// Actionable reports whether actorID may edit the station's lines:
// not Complete and not checked out by someone else.
func (s Station) Actionable(actorID string) bool {
	if s.Status == StatusComplete {
		return false
	}
	return !s.CheckedOutByOther(actorID)
}

// LineField names a user-editable material line field.
type LineField string

const (
	FieldStockNumber       LineField = "stock_number"
	FieldDescription       LineField = "description"
	FieldType              LineField = "type"
	FieldDisposition       LineField = "disposition"
	FieldNotUsed           LineField = "not_used"
	FieldQuantityInstalled LineField = "quantity_installed"
	FieldQuantityRequired  LineField = "quantity_required"
)

// ParseLineField maps the external field names (snake or camel case) to a LineField.
func ParseLineField(s string) (LineField, error) {
	switch normalizeWord(s) {
	case "stocknumber", "stock":
		return FieldStockNumber, nil
	case "description", "desc":
		return FieldDescription, nil
	case "type":
		return FieldType, nil
	case "disposition", "planneddisposition":
		return FieldDisposition, nil
	case "notused", "materialwasnotused":
		return FieldNotUsed, nil
	case "quantityinstalled", "installed":
		return FieldQuantityInstalled, nil
	case "quantityrequired", "required":
		return FieldQuantityRequired, nil
	}
	return "", fmt.Errorf("unknown line field %q", s)
}

// CatalogEntry is a pre-validated stock number and its description.
type CatalogEntry struct {
	StockNumber string `json:"stock_number"`
	Description string `json:"description"`
}

func normalizeWord(s string) string {
	r := strings.NewReplacer(" ", "", "_", "", "-", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(s)))
}

// SourceRef points at an entity touched by a store mutation.
type SourceRef struct {
	EntityType string `json:"entity_type"` // "activity", "station", "line"
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "context", "target"
}

// JournalEntry is one row of the edit journal: a mutation event indexed
// under one of the entities it affected.
type JournalEntry struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	SessionID         string          `json:"session_id"`
	ActorID           string          `json:"actor_id,omitempty"`
	IndexedEntityType string          `json:"indexed_entity_type"`
	IndexedEntityID   string          `json:"indexed_entity_id"`
	EntityRole        string          `json:"entity_role"`
	SourceRefs        []SourceRef     `json:"source_refs"`
	Summary           string          `json:"summary"`
	Category          string          `json:"category"`
	Weight            string          `json:"weight"`
	Payload           json.RawMessage `json:"payload,omitempty"`
}
