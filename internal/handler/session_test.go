package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/matthewbaird/stationcu/internal/catalog"
	"github.com/matthewbaird/stationcu/internal/event"
	"github.com/matthewbaird/stationcu/internal/hostproto"
	"github.com/matthewbaird/stationcu/internal/journal"
	"github.com/matthewbaird/stationcu/internal/render"
	"github.com/matthewbaird/stationcu/internal/session"
	"github.com/matthewbaird/stationcu/internal/types"
)

type countingSearches struct{ calls, results int }

func (c *countingSearches) ObserveSearch(n int) {
	c.calls++
	c.results += n
}

type testEnv struct {
	t        *testing.T
	router   chi.Router
	sessions *session.Manager
	journal  *journal.MemoryStore
	searches *countingSearches
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := catalog.Default(0)
	require.NoError(t, err)
	return newTestEnvWithCatalog(t, cat)
}

func newTestEnvWithCatalog(t *testing.T, cat *catalog.Catalog) *testEnv {
	t.Helper()
	log := zaptest.NewLogger(t)
	j := journal.NewMemoryStore(0)
	m := session.NewManager(session.ManagerConfig{}, session.Options{
		Catalog:  cat,
		Recorder: event.NewJournalRecorder(j),
		Logger:   log,
	})
	searches := &countingSearches{}
	r := chi.NewRouter()
	r.Use(Recovery(log), Logging(log, nil))
	NewSessionHandler(m, j, searches, log).Routes(r)
	return &testEnv{t: t, router: r, sessions: m, journal: j, searches: searches}
}

type viewBody struct {
	SessionID string      `json:"session_id"`
	View      render.View `json:"view"`
	Line      *types.MaterialLine
	Copied    int  `json:"copied"`
	Deleted   bool `json:"deleted"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (e *testEnv) do(method, path, actor string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != "" {
		req.Header.Set("X-Actor", actor)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// fixtureSession creates a session loaded with the sample activity.
func (e *testEnv) fixtureSession(actor string) string {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/v1/sessions?fixture=true", actor, nil)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[viewBody](e.t, rec).SessionID
}

func findStation(v render.View, id string) render.StationView {
	for _, st := range v.Stations {
		if st.ID == id {
			return st
		}
	}
	return render.StationView{}
}

func TestCreateAndListSessions(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/v1/sessions?fixture=true", "U1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode[viewBody](t, rec)
	assert.NotEmpty(t, body.SessionID)
	assert.Equal(t, "IB31319", body.View.ActivityID)
	assert.Equal(t, 4, body.View.Summary.Stations)
	assert.Equal(t, "U1", body.View.Actor.ID)

	rec = env.do(http.MethodGet, "/v1/sessions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Sessions   []sessionSummary `json:"sessions"`
		TotalCount int              `json:"total_count"`
	}](t, rec)
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, body.SessionID, list.Sessions[0].ID)
	assert.Equal(t, "IB31319", list.Sessions[0].ActivityID)
	assert.False(t, list.Sessions[0].HasHost)
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/v1/sessions/nope/view", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode[errorBody](t, rec).Code)
}

func TestCheckoutAddLineAndSetQuantity(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	base := "/v1/sessions/" + sid + "/stations/STN001"

	rec := env.do(http.MethodPost, base+"/checkout", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := findStation(decode[viewBody](t, rec).View, "STN001")
	assert.Equal(t, types.StatusCheckedOut, st.Status)
	require.NotNil(t, st.CheckedOutBy)
	assert.Equal(t, "U1", st.CheckedOutBy.ID)

	rec = env.do(http.MethodPost, base+"/lines", "U1", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[viewBody](t, rec)
	require.NotNil(t, added.Line)
	assert.Equal(t, "CU006", added.Line.ID)
	assert.True(t, added.Line.IsNew)

	rec = env.do(http.MethodPut, base+"/lines/CU006/installed", "U1", map[string]string{"value": "3"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st = findStation(decode[viewBody](t, rec).View, "STN001")
	require.Len(t, st.Lines, 6)
	assert.Equal(t, 3, st.Lines[5].QuantityInstalled)

	rec = env.do(http.MethodPut, base+"/lines/CU006/installed", "U1", map[string]string{"value": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_QUANTITY", decode[errorBody](t, rec).Code)
}

func TestRejectionsReturnConflict(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	prefix := "/v1/sessions/" + sid + "/stations/"

	// STN002 is checked out by someone else
	rec := env.do(http.MethodPost, prefix+"STN002/lines", "U1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "REJECTED", decode[errorBody](t, rec).Code)

	// STN003 is complete
	rec = env.do(http.MethodPost, prefix+"STN003/checkout", "U1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// host lines only take installed quantity
	rec = env.do(http.MethodPatch, prefix+"STN001/lines/CU001", "U1", map[string]string{"field": "description", "value": "x"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, prefix+"STN999/expand", "U1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, rec).Code)

	rec = env.do(http.MethodPatch, prefix+"STN001/lines/CU001", "U1", map[string]string{"field": "color", "value": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_VALUE", decode[errorBody](t, rec).Code)

	// state unchanged
	s, err := env.sessions.Get(sid)
	require.NoError(t, err)
	lines, _ := s.Store().StationLines("STN002")
	assert.Len(t, lines, 6)
}

func TestRequestActorDoesNotCarryOver(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("")
	base := "/v1/sessions/" + sid + "/stations/STN001"

	rec := env.do(http.MethodPost, base+"/checkout", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[viewBody](t, rec).View
	assert.Equal(t, "U1", v.Actor.ID)
	assert.True(t, findStation(v, "STN001").Actionable)

	// no header: the session has no actor, so U1's checkout blocks the edit
	rec = env.do(http.MethodPost, base+"/lines", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "REJECTED", decode[errorBody](t, rec).Code)

	rec = env.do(http.MethodGet, "/v1/sessions/"+sid+"/view", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decode[viewBody](t, rec).View
	assert.True(t, v.Actor.IsZero())
	assert.False(t, findStation(v, "STN001").Actionable)

	rec = env.do(http.MethodPost, base+"/lines", "U2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = env.do(http.MethodPost, base+"/release", "U2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s, err := env.sessions.Get(sid)
	require.NoError(t, err)
	assert.True(t, s.Store().Actor().IsZero())
	lines, _ := s.Store().StationLines("STN001")
	assert.Len(t, lines, 5)

	rec = env.do(http.MethodPost, base+"/lines", "U1", nil)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRequestActorOverridesSessionActor(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	base := "/v1/sessions/" + sid + "/stations/STN001"

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, base+"/checkout", "U1", nil).Code)

	// a header-less request acts as the session actor
	rec := env.do(http.MethodPost, base+"/lines", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, base+"/copy-required", "U2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	s, err := env.sessions.Get(sid)
	require.NoError(t, err)
	assert.Equal(t, "U1", s.Store().Actor().ID)

	entries, _, err := env.journal.QueryByEntity(context.Background(), "station", "STN001", journal.DefaultQueryOptions())
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "U1", e.ActorID, e.EventType)
	}
}

func TestUpdateFieldToggleAndCopy(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	base := "/v1/sessions/" + sid + "/stations/STN004"

	rec := env.do(http.MethodPost, base+"/lines", "U1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID := decode[viewBody](t, rec).Line.ID

	rec = env.do(http.MethodPatch, base+"/lines/"+lineID, "U1", map[string]string{"field": "disposition", "value": "Scrap"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, base+"/lines/"+lineID+"/toggle-deleted", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[viewBody](t, rec).Deleted)

	// deleted lines are not editable
	rec = env.do(http.MethodPatch, base+"/lines/"+lineID, "U1", map[string]string{"field": "type", "value": "Pole"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, base+"/copy-required", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[viewBody](t, rec)
	st := findStation(body.View, "STN004")
	for _, l := range st.Lines {
		if !l.Deleted && l.QuantityRequired > 0 {
			assert.Equal(t, l.QuantityRequired, l.QuantityInstalled, l.ID)
		}
	}
}

func TestCompleteAndRelease(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	prefix := "/v1/sessions/" + sid + "/stations/"

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, prefix+"STN001/checkout", "U1", nil).Code)
	rec := env.do(http.MethodPost, prefix+"STN001/release", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusOpen, findStation(decode[viewBody](t, rec).View, "STN001").Status)

	rec = env.do(http.MethodPost, prefix+"STN004/complete", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.StatusComplete, findStation(decode[viewBody](t, rec).View, "STN004").Status)

	rec = env.do(http.MethodPost, prefix+"STN004/release", "U1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestFiltersAndExpand(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")

	rec := env.do(http.MethodPut, "/v1/sessions/"+sid+"/filters", "U1",
		map[string]bool{"hide_complete": true, "hide_checked_out_by_others": true})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[viewBody](t, rec).View
	assert.True(t, v.Filters.HideComplete)
	assert.Len(t, v.Stations, 2)
	assert.Equal(t, 4, v.Summary.Stations)

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/stations/STN004/expand", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v = decode[viewBody](t, rec).View
	assert.Equal(t, "STN004", v.Stations[0].ID)
	assert.True(t, v.Stations[0].Expanded)
}

func TestCatalogSearchFlow(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	base := "/v1/sessions/" + sid + "/stations/STN001"

	rec := env.do(http.MethodGet, "/v1/sessions/"+sid+"/catalog/search?stock=1001243", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[struct {
		Results []types.CatalogEntry `json:"results"`
	}](t, rec).Results
	require.NotEmpty(t, results)
	assert.Equal(t, "1001243", results[0].StockNumber)
	assert.Equal(t, 1, env.searches.calls)

	rec = env.do(http.MethodPost, base+"/lines", "U1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID := decode[viewBody](t, rec).Line.ID

	// selecting before the search was opened is rejected
	rec = env.do(http.MethodPost, base+"/lines/"+lineID+"/search/select", "U1", map[string]string{"stock_number": "1001243"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, base+"/lines/"+lineID+"/search", "U1", map[string]string{"field": "description"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v := decode[viewBody](t, rec).View
	require.NotNil(t, v.Search)
	assert.Equal(t, lineID, v.Search.LineID)

	rec = env.do(http.MethodPost, base+"/lines/"+lineID+"/search/select", "U1", map[string]string{"stock_number": "1001243"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	v = decode[viewBody](t, rec).View
	assert.Nil(t, v.Search)
	st := findStation(v, "STN001")
	last := st.Lines[len(st.Lines)-1]
	assert.Equal(t, "1001243", last.StockNumber)
	assert.Contains(t, last.Description, "ARRESTER")

	// host lines cannot open the search
	rec = env.do(http.MethodPost, base+"/lines/CU001/search", "U1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodDelete, "/v1/sessions/"+sid+"/search", "U1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSelectSearchResultLooksUpExactStockNumber(t *testing.T) {
	// the exact entry sits behind more substring matches than a search returns
	var entries []types.CatalogEntry
	for i := 0; i < 60; i++ {
		entries = append(entries, types.CatalogEntry{StockNumber: fmt.Sprintf("77%03d", i), Description: "FILLER"})
	}
	entries = append(entries, types.CatalogEntry{StockNumber: "77", Description: "CONNECTOR,COMPRESSION,H-TAP"})
	env := newTestEnvWithCatalog(t, catalog.New(entries, 50))

	sid := env.fixtureSession("U1")
	base := "/v1/sessions/" + sid + "/stations/STN001"
	rec := env.do(http.MethodPost, base+"/lines", "U1", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	lineID := decode[viewBody](t, rec).Line.ID

	rec = env.do(http.MethodPost, base+"/lines/"+lineID+"/search", "U1", map[string]string{"field": "stock_number"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, base+"/lines/"+lineID+"/search/select", "U1", map[string]string{"stock_number": "77"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	st := findStation(decode[viewBody](t, rec).View, "STN001")
	last := st.Lines[len(st.Lines)-1]
	assert.Equal(t, "77", last.StockNumber)
	assert.Equal(t, "CONNECTOR,COMPRESSION,H-TAP", last.Description)
}

func TestSuggestStockNumbers(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")

	rec := env.do(http.MethodGet, "/v1/sessions/"+sid+"/catalog/suggest?prefix=2313&limit=2", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[struct {
		Results []types.CatalogEntry `json:"results"`
	}](t, rec).Results
	require.Len(t, results, 2)
	for _, e := range results {
		assert.True(t, strings.HasPrefix(e.StockNumber, "2313"), e.StockNumber)
	}
	assert.LessOrEqual(t, results[0].StockNumber, results[1].StockNumber)

	rec = env.do(http.MethodGet, "/v1/sessions/"+sid+"/catalog/suggest", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[],"total_count":0}`, rec.Body.String())
}

func TestHostRequestsWithoutHost(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")

	rec := env.do(http.MethodPost, "/v1/sessions/"+sid+"/close", "U1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_HOST", decode[errorBody](t, rec).Code)

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/update", "U1", map[string]any{"activity": map[string]any{"astatus": "done"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/update", "U1", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/refresh", "U1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "NO_DATA", decode[errorBody](t, rec).Code)
}

// brokenSendChannel receives normally but fails every send once broken.
type brokenSendChannel struct {
	*hostproto.MemoryChannel
	broken atomic.Bool
}

func (c *brokenSendChannel) Send(ctx context.Context, v any) error {
	if c.broken.Load() {
		return errors.New("write: broken pipe")
	}
	return c.MemoryChannel.Send(ctx, v)
}

func TestHostRequestsWithFailingHost(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	sess, err := env.sessions.Get(sid)
	require.NoError(t, err)

	ch := &brokenSendChannel{MemoryChannel: hostproto.NewMemoryChannel()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.RunHost(ctx, ch) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	ch.Deliver([]byte(`{"method":"init"}`))
	require.Eventually(t, func() bool { return sess.HostState() == hostproto.StateConnected }, time.Second, 5*time.Millisecond)
	ch.broken.Store(true)

	rec := env.do(http.MethodPost, "/v1/sessions/"+sid+"/close", "U1", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "HOST_UNAVAILABLE", decode[errorBody](t, rec).Code)

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/update", "U1", map[string]any{"activity": map[string]any{"astatus": "done"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "HOST_UNAVAILABLE", decode[errorBody](t, rec).Code)

	assert.True(t, sess.HasHost())
}

func TestLoadPayload(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/v1/sessions", "U1", nil)
	sid := decode[viewBody](t, rec).SessionID

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/load", "U1", `[{"stationId":"S1"},{"stationId":"S2","status":"Complete"}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[viewBody](t, rec).View.Summary.Stations)

	rec = env.do(http.MethodPost, "/v1/sessions/"+sid+"/load", "U1", `<activity><stations>`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MALFORMED_PAYLOAD", decode[errorBody](t, rec).Code)

	rec = env.do(http.MethodGet, "/v1/sessions/"+sid+"/view", "U1", nil)
	v := decode[viewBody](t, rec).View
	assert.Equal(t, 2, v.Summary.Stations)
	assert.NotEmpty(t, v.LoadError)
}

func TestJournal(t *testing.T) {
	env := newTestEnv(t)
	sid := env.fixtureSession("U1")
	base := "/v1/sessions/" + sid

	require.Equal(t, http.StatusOK, env.do(http.MethodPost, base+"/stations/STN001/checkout", "U1", nil).Code)
	require.Equal(t, http.StatusCreated, env.do(http.MethodPost, base+"/stations/STN001/lines", "U1", nil).Code)

	type journalBody struct {
		Entries    []types.JournalEntry `json:"entries"`
		TotalCount int                  `json:"total_count"`
	}

	rec := env.do(http.MethodGet, base+"/journal?station=STN001", "U1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[journalBody](t, rec)
	require.Equal(t, 2, body.TotalCount)
	assert.Equal(t, event.TypeLineAdded, body.Entries[0].EventType)
	assert.Equal(t, event.TypeStationCheckedOut, body.Entries[1].EventType)

	rec = env.do(http.MethodGet, base+"/journal", "U1", nil)
	body = decode[journalBody](t, rec)
	assert.Equal(t, 3, body.TotalCount) // load, checkout, add line

	rec = env.do(http.MethodGet, base+"/journal?q=checked+out", "U1", nil)
	body = decode[journalBody](t, rec)
	assert.NotZero(t, body.TotalCount)

	rec = env.do(http.MethodDelete, base, "U1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, base+"/view", "", nil).Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	log := zaptest.NewLogger(t)
	r := chi.NewRouter()
	r.Use(Recovery(log))
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode[errorBody](t, rec).Code)
}
