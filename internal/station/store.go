// Package station holds the authoritative edit state of one session: the
// activity handed over by the host, its stations and material lines, and
// the transient UI state (expanded station, filters, pending search).
//
// Every operation validates its input against the station and line
// editability rules, mutates the snapshot, records a domain event and
// notifies the change hook. Rejected operations return an error and leave
// the snapshot untouched.
package station

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/catalog"
	"github.com/matthewbaird/stationcu/internal/event"
	"github.com/matthewbaird/stationcu/internal/source"
	"github.com/matthewbaird/stationcu/internal/types"
)

// UIState is the transient view state preserved across re-renders.
type UIState struct {
	Expanded               string `json:"expanded,omitempty"`
	HideComplete           bool   `json:"hide_complete"`
	HideCheckedOutByOthers bool   `json:"hide_checked_out_by_others"`
}

// PendingSearch identifies the line that opened the catalog search.
type PendingSearch struct {
	StationID string          `json:"station_id"`
	LineID    string          `json:"line_id"`
	Field     types.LineField `json:"field"`
}

// Snapshot is a deep copy of the store's state.
type Snapshot struct {
	Loaded    bool            `json:"loaded"`
	Activity  types.Activity  `json:"activity"`
	Stations  []types.Station `json:"stations"`
	Actor     types.Actor     `json:"actor"`
	UI        UIState         `json:"ui"`
	Search    *PendingSearch  `json:"search,omitempty"`
	LoadError string          `json:"load_error,omitempty"`
}

// Options configures a Store.
type Options struct {
	SessionID    string
	LineIDPrefix string // default "CU"
	LineIDWidth  int    // default 3
	Catalog      *catalog.Catalog
	Recorder     event.Recorder
	Logger       *zap.Logger

	// OnChange is called with a fresh snapshot after every state change,
	// while the store lock is held. It must not call back into the Store.
	OnChange func(Snapshot)
}

// Store is safe for concurrent use; operations are applied one at a time.
type Store struct {
	mu   sync.Mutex
	opts Options
	log  *zap.Logger

	loaded   bool
	activity types.Activity
	stations []types.Station
	actor    types.Actor
	ui       UIState
	search   *PendingSearch
	loadErr  string
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.LineIDPrefix == "" {
		opts.LineIDPrefix = "CU"
	}
	if opts.LineIDWidth <= 0 {
		opts.LineIDWidth = 3
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		opts: opts,
		log:  opts.Logger.With(zap.String("session", opts.SessionID)),
	}
}

// ── Identity ────────────────────────────────────────────────────────────────

// SetActor sets the identity used for editability checks and checkout.
func (s *Store) SetActor(a types.Actor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actor == a {
		return
	}
	s.actor = a
	s.changed()
}

// Actor returns the current identity.
func (s *Store) Actor() types.Actor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actor
}

// Editor applies edits on behalf of one actor. Editability and checkout
// ownership are checked against that actor, and recorded events carry it.
// A zero actor stands for the session actor, resolved under the store lock.
type Editor struct {
	s     *Store
	actor types.Actor
}

// As returns an Editor acting for actor.
func (s *Store) As(actor types.Actor) Editor {
	return Editor{s: s, actor: actor}
}

// ── Loading ─────────────────────────────────────────────────────────────────

// LoadFromSource parses raw (XML or JSON) and replaces the snapshot. On
// failure the prior snapshot is kept and the error is surfaced to the view.
func (s *Store) LoadFromSource(ctx context.Context, raw []byte) error {
	p, err := source.Parse(raw)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.loadErr = err.Error()
		s.log.Warn("payload rejected", zap.Error(err))
		s.changed()
		return err
	}
	s.replace(ctx, p.Activity, p.Stations, "payload")
	return nil
}

// SetLoadError surfaces a payload error decoded elsewhere, keeping the
// prior snapshot.
func (s *Store) SetLoadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err.Error()
	s.log.Warn("payload rejected", zap.Error(err))
	s.changed()
}

// LoadActivity replaces the snapshot with an already-parsed activity.
// origin names where the data came from ("open", "fixture").
func (s *Store) LoadActivity(ctx context.Context, activity types.Activity, stations []types.Station, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replace(ctx, activity, stations, origin)
}

func (s *Store) replace(ctx context.Context, activity types.Activity, stations []types.Station, origin string) {
	s.loaded = true
	s.loadErr = ""
	s.activity = activity.Clone()
	s.stations = make([]types.Station, len(stations))
	for i, st := range stations {
		s.stations[i] = st.Clone()
	}
	if s.ui.Expanded != "" && s.indexOf(s.ui.Expanded) < 0 {
		s.ui.Expanded = ""
	}
	s.search = nil

	lines := 0
	for _, st := range s.stations {
		lines += len(st.Lines)
	}
	s.record(ctx, event.NewStationsLoaded(s.meta(s.actor), event.StationsLoadedPayload{
		ActivityID:   activity.ID,
		StationCount: len(s.stations),
		LineCount:    lines,
		Source:       origin,
	}))
	s.changed()
}

// ── View state ──────────────────────────────────────────────────────────────

// Expand expands stationID and moves it to the front, collapsing any other
// station. Expanding the already-expanded station collapses it.
func (s *Store) Expand(stationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(stationID)
	if i < 0 {
		return notFound("station", stationID)
	}
	if s.ui.Expanded == stationID {
		s.ui.Expanded = ""
	} else {
		s.ui.Expanded = stationID
		moveToFront(s.stations, i)
	}
	s.changed()
	return nil
}

// SetFilters updates the display filters.
func (s *Store) SetFilters(hideComplete, hideCheckedOutByOthers bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui.HideComplete = hideComplete
	s.ui.HideCheckedOutByOthers = hideCheckedOutByOthers
	s.changed()
}

// FilterForDisplay returns the stations to show for actorID.
func (s *Store) FilterForDisplay(hideComplete, hideCheckedOutByOthers bool, actorID string) []types.Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Filter(cloneStations(s.stations), hideComplete, hideCheckedOutByOthers, actorID)
}

// ── Edits as the session actor ──────────────────────────────────────────────

// AddLine is As(session actor).AddLine.
func (s *Store) AddLine(ctx context.Context, stationID string) (types.MaterialLine, error) {
	return s.As(types.Actor{}).AddLine(ctx, stationID)
}

// UpdateLineField is As(session actor).UpdateLineField.
func (s *Store) UpdateLineField(ctx context.Context, stationID, lineID string, field types.LineField, value string) error {
	return s.As(types.Actor{}).UpdateLineField(ctx, stationID, lineID, field, value)
}

// UpdateInstalledQuantity is As(session actor).UpdateInstalledQuantity.
func (s *Store) UpdateInstalledQuantity(ctx context.Context, stationID, lineID, raw string) error {
	return s.As(types.Actor{}).UpdateInstalledQuantity(ctx, stationID, lineID, raw)
}

// ToggleDeleted is As(session actor).ToggleDeleted.
func (s *Store) ToggleDeleted(ctx context.Context, stationID, lineID string) (bool, error) {
	return s.As(types.Actor{}).ToggleDeleted(ctx, stationID, lineID)
}

// CopyRequiredToInstalled is As(session actor).CopyRequiredToInstalled.
func (s *Store) CopyRequiredToInstalled(ctx context.Context, stationID, lineID string) error {
	return s.As(types.Actor{}).CopyRequiredToInstalled(ctx, stationID, lineID)
}

// CopyAllRequiredToInstalled is As(session actor).CopyAllRequiredToInstalled.
func (s *Store) CopyAllRequiredToInstalled(ctx context.Context, stationID string) (int, error) {
	return s.As(types.Actor{}).CopyAllRequiredToInstalled(ctx, stationID)
}

// Checkout checks the station out to actor, or to the session actor when
// actor is zero.
func (s *Store) Checkout(ctx context.Context, stationID string, actor types.Actor) error {
	return s.As(actor).Checkout(ctx, stationID)
}

// Complete is As(session actor).Complete.
func (s *Store) Complete(ctx context.Context, stationID string) error {
	return s.As(types.Actor{}).Complete(ctx, stationID)
}

// Release is As(session actor).Release.
func (s *Store) Release(ctx context.Context, stationID string) error {
	return s.As(types.Actor{}).Release(ctx, stationID)
}

// BeginSearch is As(session actor).BeginSearch.
func (s *Store) BeginSearch(stationID, lineID string, field types.LineField) error {
	return s.As(types.Actor{}).BeginSearch(stationID, lineID, field)
}

// ApplySearchSelection is As(session actor).ApplySearchSelection.
func (s *Store) ApplySearchSelection(ctx context.Context, stationID, lineID string, field types.LineField, stockNumber, description string) error {
	return s.As(types.Actor{}).ApplySearchSelection(ctx, stationID, lineID, field, stockNumber, description)
}

// ── Lines ───────────────────────────────────────────────────────────────────

// AddLine appends a blank user-added line to an actionable station.
func (e Editor) AddLine(ctx context.Context, stationID string) (types.MaterialLine, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	st, err := s.actionableStation(stationID, actor.ID)
	if err != nil {
		return types.MaterialLine{}, err
	}
	line := types.MaterialLine{
		ID:          NextLineID(st.Lines, s.opts.LineIDPrefix, s.opts.LineIDWidth),
		Disposition: types.DispositionInstall,
		IsNew:       true,
	}
	st.Lines = append(st.Lines, line)
	s.record(ctx, event.NewLineAdded(s.meta(actor), event.LineAddedPayload{StationID: stationID, LineID: line.ID}))
	s.changed()
	return line, nil
}

// UpdateLineField sets one field of an editable line. Host-supplied lines
// only accept installed quantity; quantity required is never editable.
func (e Editor) UpdateLineField(ctx context.Context, stationID, lineID string, field types.LineField, value string) error {
	s := e.s
	if field == types.FieldQuantityInstalled {
		return e.UpdateInstalledQuantity(ctx, stationID, lineID, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	line, err := s.editableLine(stationID, lineID, actor.ID)
	if err != nil {
		return err
	}
	if field == types.FieldQuantityRequired {
		return fmt.Errorf("%w: %s is read-only", ErrNotEditable, field)
	}
	if !line.IsNew {
		return fmt.Errorf("%w: %s is read-only on host lines", ErrNotEditable, field)
	}

	var old, updated any
	switch field {
	case types.FieldStockNumber:
		old, line.StockNumber = line.StockNumber, strings.TrimSpace(value)
		updated = line.StockNumber
	case types.FieldDescription:
		old, line.Description = line.Description, strings.TrimSpace(value)
		updated = line.Description
	case types.FieldType:
		old, line.Type = line.Type, strings.TrimSpace(value)
		updated = line.Type
	case types.FieldDisposition:
		d, err := types.ParseDisposition(value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		old, line.Disposition = line.Disposition, d
		updated = d
	case types.FieldNotUsed:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: not used flag %q", ErrInvalidValue, value)
		}
		old, line.NotUsed = line.NotUsed, b
		updated = b
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidValue, field)
	}

	if old != updated {
		s.record(ctx, event.NewLineFieldUpdated(s.meta(actor), event.LineFieldUpdatedPayload{
			StationID: stationID, LineID: lineID, Field: field, Old: old, New: updated,
		}))
	}
	s.changed()
	return nil
}

// UpdateInstalledQuantity parses raw as a non-negative integer and sets the
// installed quantity. Invalid input keeps the previous value.
func (e Editor) UpdateInstalledQuantity(ctx context.Context, stationID, lineID, raw string) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	line, err := s.editableLine(stationID, lineID, actor.ID)
	if err != nil {
		return err
	}
	n, err := source.ParseQuantity(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	prev := line.QuantityInstalled
	line.QuantityInstalled = n
	if prev != n {
		s.record(ctx, event.NewLineQuantitySet(s.meta(actor), event.LineQuantitySetPayload{
			StationID: stationID, LineID: lineID, Previous: prev, Installed: n,
		}))
	}
	s.changed()
	return nil
}

// ToggleDeleted flips the soft-delete flag of a line on an actionable station.
func (e Editor) ToggleDeleted(ctx context.Context, stationID, lineID string) (bool, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	st, err := s.actionableStation(stationID, actor.ID)
	if err != nil {
		return false, err
	}
	line := findLine(st, lineID)
	if line == nil {
		return false, notFound("line", lineID)
	}
	line.Deleted = !line.Deleted
	if line.Deleted && s.search != nil && s.search.StationID == stationID && s.search.LineID == lineID {
		s.search = nil
	}
	s.record(ctx, event.NewLineDeletedToggled(s.meta(actor), event.LineDeletedToggledPayload{
		StationID: stationID, LineID: lineID, Deleted: line.Deleted,
	}))
	s.changed()
	return line.Deleted, nil
}

// CopyRequiredToInstalled sets installed = required on one editable line
// with a positive required quantity.
func (e Editor) CopyRequiredToInstalled(ctx context.Context, stationID, lineID string) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	line, err := s.editableLine(stationID, lineID, actor.ID)
	if err != nil {
		return err
	}
	if line.QuantityRequired <= 0 {
		return fmt.Errorf("%w: line %s has no required quantity", ErrNothingToCopy, lineID)
	}
	line.QuantityInstalled = line.QuantityRequired
	s.record(ctx, event.NewQuantitiesCopied(s.meta(actor), event.QuantitiesCopiedPayload{
		StationID: stationID, LineIDs: []string{lineID},
	}))
	s.changed()
	return nil
}

// CopyAllRequiredToInstalled applies CopyRequiredToInstalled to every
// non-deleted line with a positive required quantity. It returns the number
// of lines copied.
func (e Editor) CopyAllRequiredToInstalled(ctx context.Context, stationID string) (int, error) {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	st, err := s.actionableStation(stationID, actor.ID)
	if err != nil {
		return 0, err
	}
	var copied []string
	for i := range st.Lines {
		l := &st.Lines[i]
		if l.Deleted || l.QuantityRequired <= 0 {
			continue
		}
		l.QuantityInstalled = l.QuantityRequired
		copied = append(copied, l.ID)
	}
	if len(copied) > 0 {
		s.record(ctx, event.NewQuantitiesCopied(s.meta(actor), event.QuantitiesCopiedPayload{
			StationID: stationID, LineIDs: copied,
		}))
	}
	s.changed()
	return len(copied), nil
}

// ── Station lifecycle ───────────────────────────────────────────────────────

// Checkout marks the station as checked out by the editor's actor.
// Checking out a station the actor already holds is a no-op.
func (e Editor) Checkout(ctx context.Context, stationID string) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	if actor.IsZero() {
		return fmt.Errorf("%w: checkout requires an actor", ErrInvalidValue)
	}
	st := s.find(stationID)
	if st == nil {
		return notFound("station", stationID)
	}
	if st.CheckedOutByOther(actor.ID) {
		return fmt.Errorf("%w: %s is checked out by %s", ErrNotActionable, stationID, st.CheckedOutBy.ID)
	}
	if st.Status == types.StatusCheckedOut {
		return nil
	}
	if err := ValidateTransition(st.Status, types.StatusCheckedOut); err != nil {
		return err
	}
	from := st.Status
	holder := actor
	st.Status = types.StatusCheckedOut
	st.CheckedOutBy = &holder
	s.record(ctx, event.NewStationCheckedOut(s.meta(actor), event.StationStatusPayload{
		StationID: stationID, From: from, To: st.Status, Holder: &holder,
	}))
	s.changed()
	return nil
}

// Complete marks an open station, or one held by the editor's actor, Complete.
func (e Editor) Complete(ctx context.Context, stationID string) error {
	return e.transition(ctx, stationID, types.StatusComplete)
}

// Release returns a station held by the editor's actor to Open.
func (e Editor) Release(ctx context.Context, stationID string) error {
	return e.transition(ctx, stationID, types.StatusOpen)
}

func (e Editor) transition(ctx context.Context, stationID string, to types.StationStatus) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	st := s.find(stationID)
	if st == nil {
		return notFound("station", stationID)
	}
	if st.CheckedOutByOther(actor.ID) {
		return fmt.Errorf("%w: %s is checked out by %s", ErrNotActionable, stationID, st.CheckedOutBy.ID)
	}
	if err := ValidateTransition(st.Status, to); err != nil {
		return err
	}
	from := st.Status
	st.Status = to
	st.CheckedOutBy = nil

	p := event.StationStatusPayload{StationID: stationID, From: from, To: to}
	if to == types.StatusComplete {
		s.record(ctx, event.NewStationCompleted(s.meta(actor), p))
	} else {
		s.record(ctx, event.NewStationReleased(s.meta(actor), p))
	}
	s.changed()
	return nil
}

// ── Catalog search ──────────────────────────────────────────────────────────

// SearchCatalog queries the configured catalog.
func (s *Store) SearchCatalog(stockQuery, descQuery string) []types.CatalogEntry {
	if s.opts.Catalog == nil {
		return nil
	}
	return s.opts.Catalog.Search(stockQuery, descQuery)
}

// LookupCatalog finds the catalog entry with exactly this stock number.
func (s *Store) LookupCatalog(stockNumber string) (types.CatalogEntry, bool) {
	if s.opts.Catalog == nil {
		return types.CatalogEntry{}, false
	}
	return s.opts.Catalog.Lookup(stockNumber)
}

// SuggestCatalog completes a typed stock-number prefix.
func (s *Store) SuggestCatalog(prefix string, limit int) []types.CatalogEntry {
	if s.opts.Catalog == nil {
		return nil
	}
	return s.opts.Catalog.Suggest(prefix, limit)
}

// BeginSearch records that the search modal was opened from a line's stock
// number or description field. Only user-added lines can be searched.
func (e Editor) BeginSearch(stationID, lineID string, field types.LineField) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	if field != types.FieldStockNumber && field != types.FieldDescription {
		return fmt.Errorf("%w: search cannot fill %q", ErrInvalidValue, field)
	}
	line, err := s.editableLine(stationID, lineID, actor.ID)
	if err != nil {
		return err
	}
	if !line.IsNew {
		return fmt.Errorf("%w: host lines cannot be searched", ErrNotEditable)
	}
	s.search = &PendingSearch{StationID: stationID, LineID: lineID, Field: field}
	s.changed()
	return nil
}

// CancelSearch closes the search modal without applying a selection.
func (s *Store) CancelSearch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.search == nil {
		return
	}
	s.search = nil
	s.changed()
}

// ApplySearchSelection sets stock number and description together on the
// line that opened the search, then closes the search.
func (e Editor) ApplySearchSelection(ctx context.Context, stationID, lineID string, field types.LineField, stockNumber, description string) error {
	s := e.s
	s.mu.Lock()
	defer s.mu.Unlock()
	actor := s.resolve(e.actor)
	if s.search == nil || s.search.StationID != stationID || s.search.LineID != lineID {
		return fmt.Errorf("%w: %s/%s", ErrSearchMismatch, stationID, lineID)
	}
	if field != "" && field != s.search.Field {
		return fmt.Errorf("%w: opened from %s, not %s", ErrSearchMismatch, s.search.Field, field)
	}
	line, err := s.editableLine(stationID, lineID, actor.ID)
	if err != nil {
		return err
	}

	m := s.meta(actor)
	if line.StockNumber != stockNumber {
		s.record(ctx, event.NewLineFieldUpdated(m, event.LineFieldUpdatedPayload{
			StationID: stationID, LineID: lineID, Field: types.FieldStockNumber, Old: line.StockNumber, New: stockNumber,
		}))
	}
	if line.Description != description {
		s.record(ctx, event.NewLineFieldUpdated(m, event.LineFieldUpdatedPayload{
			StationID: stationID, LineID: lineID, Field: types.FieldDescription, Old: line.Description, New: description,
		}))
	}
	line.StockNumber = stockNumber
	line.Description = description
	s.search = nil
	s.changed()
	return nil
}

// ── Reads ───────────────────────────────────────────────────────────────────

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Station returns a copy of one station.
func (s *Store) Station(stationID string) (types.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.find(stationID)
	if st == nil {
		return types.Station{}, false
	}
	return st.Clone(), true
}

// StationLines returns a copy of one station's lines.
func (s *Store) StationLines(stationID string) ([]types.MaterialLine, bool) {
	st, ok := s.Station(stationID)
	return st.Lines, ok
}

// ── Internals (callers hold s.mu) ───────────────────────────────────────────

func (s *Store) snapshot() Snapshot {
	snap := Snapshot{
		Loaded:    s.loaded,
		Activity:  s.activity.Clone(),
		Stations:  cloneStations(s.stations),
		Actor:     s.actor,
		UI:        s.ui,
		LoadError: s.loadErr,
	}
	if s.search != nil {
		ps := *s.search
		snap.Search = &ps
	}
	return snap
}

func (s *Store) changed() {
	if s.opts.OnChange != nil {
		s.opts.OnChange(s.snapshot())
	}
}

func (s *Store) meta(actor types.Actor) event.Meta {
	return event.Meta{SessionID: s.opts.SessionID, ActivityID: s.activity.ID, Actor: actor}
}

// resolve falls back to the session actor when a request carries no identity.
func (s *Store) resolve(actor types.Actor) types.Actor {
	if actor.IsZero() {
		return s.actor
	}
	return actor
}

func (s *Store) record(ctx context.Context, evt event.DomainEvent) {
	if s.opts.Recorder == nil {
		return
	}
	if err := s.opts.Recorder.Record(ctx, evt); err != nil {
		s.log.Warn("recording event failed", zap.String("event", evt.EventType), zap.Error(err))
	}
}

func (s *Store) indexOf(stationID string) int {
	for i := range s.stations {
		if s.stations[i].ID == stationID {
			return i
		}
	}
	return -1
}

func (s *Store) find(stationID string) *types.Station {
	if i := s.indexOf(stationID); i >= 0 {
		return &s.stations[i]
	}
	return nil
}

func (s *Store) actionableStation(stationID, actorID string) (*types.Station, error) {
	st := s.find(stationID)
	if st == nil {
		return nil, notFound("station", stationID)
	}
	if !st.Actionable(actorID) {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotActionable, stationID, st.Status.Label())
	}
	return st, nil
}

func (s *Store) editableLine(stationID, lineID, actorID string) (*types.MaterialLine, error) {
	st, err := s.actionableStation(stationID, actorID)
	if err != nil {
		if st := s.find(stationID); st != nil && findLine(st, lineID) == nil {
			return nil, notFound("line", lineID)
		}
		return nil, err
	}
	line := findLine(st, lineID)
	if line == nil {
		return nil, notFound("line", lineID)
	}
	if line.Deleted {
		return nil, fmt.Errorf("%w: %s is deleted", ErrNotEditable, lineID)
	}
	return line, nil
}

func findLine(st *types.Station, lineID string) *types.MaterialLine {
	for i := range st.Lines {
		if st.Lines[i].ID == lineID {
			return &st.Lines[i]
		}
	}
	return nil
}

func cloneStations(in []types.Station) []types.Station {
	out := make([]types.Station, len(in))
	for i, st := range in {
		out[i] = st.Clone()
	}
	return out
}

func notFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}
