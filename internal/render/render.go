// Package render turns a store snapshot into a view description. Render is
// pure: the same snapshot and status always produce the same View, and the
// web page, the terminal view and the tests all consume that description.
package render

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/matthewbaird/stationcu/internal/station"
	"github.com/matthewbaird/stationcu/internal/types"
)

// DefaultActivityFields is the display allow-list for activity properties.
var DefaultActivityFields = []string{"aid", "appt_number", "customer_number", "astatus", "resource_id"}

// View is the complete description of what the widget shows.
type View struct {
	Status         string              `json:"status"`
	Actor          types.Actor         `json:"actor"`
	ActivityID     string              `json:"activity_id,omitempty"`
	ActivityFields []Field             `json:"activity_fields"`
	Summary        Summary             `json:"summary"`
	Filters        Filters             `json:"filters"`
	Stations       []StationView       `json:"stations"`
	Search         *SearchView         `json:"search,omitempty"`
	LoadError      string              `json:"load_error,omitempty"`
	Dispositions   []types.Disposition `json:"dispositions"`
}

// Field is one displayed activity property.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Summary is derived from every station, regardless of filters.
type Summary struct {
	Stations     int                         `json:"stations"`
	Lines        int                         `json:"lines"`
	DeletedLines int                         `json:"deleted_lines"`
	ByStatus     map[types.StationStatus]int `json:"by_status"`
}

// Filters mirrors the filter checkboxes.
type Filters struct {
	HideComplete           bool `json:"hide_complete"`
	HideCheckedOutByOthers bool `json:"hide_checked_out_by_others"`
	Hidden                 int  `json:"hidden"` // stations removed by the filters
}

// StationView is one accordion entry.
type StationView struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Location     string              `json:"location"`
	Status       types.StationStatus `json:"status"`
	Badge        string              `json:"badge"`
	BadgeClass   string              `json:"badge_class"`
	CheckedOutBy *types.Actor        `json:"checked_out_by,omitempty"`
	Expanded     bool                `json:"expanded"`
	Actionable   bool                `json:"actionable"`
	CanCheckout  bool                `json:"can_checkout"`
	CanComplete  bool                `json:"can_complete"`
	CanRelease   bool                `json:"can_release"`
	Lines        []LineView          `json:"lines"`
	Totals       Totals              `json:"totals"`
}

// Totals exclude deleted lines.
type Totals struct {
	Lines     int `json:"lines"`
	Required  int `json:"required"`
	Installed int `json:"installed"`
}

// LineView is one grid row.
type LineView struct {
	types.MaterialLine
	Editable        bool              `json:"editable"`
	EditableFields  []types.LineField `json:"editable_fields"`
	CanToggleDelete bool              `json:"can_toggle_delete"`
	CanCopyRequired bool              `json:"can_copy_required"`
}

// SearchView describes the open search modal.
type SearchView struct {
	StationID string          `json:"station_id"`
	LineID    string          `json:"line_id"`
	Field     types.LineField `json:"field"`
}

// Options tunes rendering.
type Options struct {
	ActivityFields []string // nil uses DefaultActivityFields
}

// Render builds the view for snap. status is the host connection status line.
func Render(snap station.Snapshot, status string, opts Options) View {
	allow := opts.ActivityFields
	if allow == nil {
		allow = DefaultActivityFields
	}

	v := View{
		Status:         status,
		Actor:          snap.Actor,
		ActivityID:     snap.Activity.ID,
		ActivityFields: activityFields(snap.Activity, allow),
		Summary:        Summarize(snap.Stations),
		Filters: Filters{
			HideComplete:           snap.UI.HideComplete,
			HideCheckedOutByOthers: snap.UI.HideCheckedOutByOthers,
		},
		LoadError:    snap.LoadError,
		Dispositions: types.AllDispositions,
	}

	visible := station.Filter(snap.Stations, snap.UI.HideComplete, snap.UI.HideCheckedOutByOthers, snap.Actor.ID)
	v.Filters.Hidden = len(snap.Stations) - len(visible)
	v.Stations = make([]StationView, 0, len(visible))
	for _, st := range visible {
		v.Stations = append(v.Stations, stationView(st, snap.Actor.ID, snap.UI.Expanded == st.ID))
	}

	if snap.Search != nil {
		v.Search = &SearchView{StationID: snap.Search.StationID, LineID: snap.Search.LineID, Field: snap.Search.Field}
	}
	return v
}

// Summarize derives station and line counts. Every status has an entry.
func Summarize(stations []types.Station) Summary {
	sum := Summary{
		Stations: len(stations),
		ByStatus: make(map[types.StationStatus]int, len(types.AllStatuses)),
	}
	for _, s := range types.AllStatuses {
		sum.ByStatus[s] = 0
	}
	for _, st := range stations {
		sum.ByStatus[st.Status]++
		sum.Lines += len(st.Lines)
		for _, l := range st.Lines {
			if l.Deleted {
				sum.DeletedLines++
			}
		}
	}
	return sum
}

func stationView(st types.Station, actorID string, expanded bool) StationView {
	actionable := st.Actionable(actorID)
	sv := StationView{
		ID:          st.ID,
		Name:        st.Name,
		Location:    st.Location,
		Status:      st.Status,
		Badge:       st.Status.Label(),
		BadgeClass:  badgeClass(st.Status),
		Expanded:    expanded,
		Actionable:  actionable,
		CanCheckout: st.Status == types.StatusOpen,
		CanComplete: actionable,
		CanRelease:  st.Status == types.StatusCheckedOut && !st.CheckedOutByOther(actorID),
		Lines:       make([]LineView, 0, len(st.Lines)),
	}
	if st.CheckedOutBy != nil {
		holder := *st.CheckedOutBy
		sv.CheckedOutBy = &holder
	}
	for _, l := range st.Lines {
		sv.Lines = append(sv.Lines, lineView(l, actionable))
		if l.Deleted {
			continue
		}
		sv.Totals.Lines++
		sv.Totals.Required += l.QuantityRequired
		sv.Totals.Installed += l.QuantityInstalled
	}
	return sv
}

func lineView(l types.MaterialLine, actionable bool) LineView {
	editable := actionable && !l.Deleted
	lv := LineView{
		MaterialLine:    l,
		Editable:        editable,
		EditableFields:  []types.LineField{},
		CanToggleDelete: actionable,
		CanCopyRequired: editable && l.QuantityRequired > 0,
	}
	if !editable {
		return lv
	}
	if l.IsNew {
		lv.EditableFields = append(lv.EditableFields,
			types.FieldStockNumber, types.FieldDescription, types.FieldType,
			types.FieldDisposition, types.FieldNotUsed)
	}
	lv.EditableFields = append(lv.EditableFields, types.FieldQuantityInstalled)
	return lv
}

func badgeClass(s types.StationStatus) string {
	switch s {
	case types.StatusCheckedOut:
		return "status-checked-out"
	case types.StatusComplete:
		return "status-complete"
	default:
		return "status-open"
	}
}

func activityFields(a types.Activity, allow []string) []Field {
	fields := make([]Field, 0, len(allow))
	for _, name := range allow {
		val, ok := a.Fields[name]
		if !ok {
			if name != "aid" || a.ID == "" {
				continue
			}
			val = a.ID
		}
		fields = append(fields, Field{Name: name, Value: FormatValue(val)})
	}
	return fields
}

// FormatValue renders an activity property for display: nil as empty,
// objects and arrays as JSON, whole numbers without a fraction.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool, int, int64, json.Number:
		return fmt.Sprint(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
