// Package handler implements the HTTP surface of the station widget: one
// session per host connection, with every store operation, the rendered
// view, catalog search, host requests and the edit journal exposed as JSON.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/hostproto"
	"github.com/matthewbaird/stationcu/internal/journal"
	"github.com/matthewbaird/stationcu/internal/render"
	"github.com/matthewbaird/stationcu/internal/session"
	"github.com/matthewbaird/stationcu/internal/station"
	"github.com/matthewbaird/stationcu/internal/types"
)

// SearchObserver is told how many entries each catalog search returned.
type SearchObserver interface {
	ObserveSearch(n int)
}

// SessionHandler serves /v1/sessions.
type SessionHandler struct {
	sessions *session.Manager
	journal  journal.Store
	searches SearchObserver
	log      *zap.Logger
}

// NewSessionHandler creates a SessionHandler. journal and searches may be nil.
func NewSessionHandler(sessions *session.Manager, j journal.Store, searches SearchObserver, log *zap.Logger) *SessionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, journal: j, searches: searches, log: log}
}

// Routes registers every session route on r.
func (h *SessionHandler) Routes(r chi.Router) {
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Get("/", h.ListSessions)

		r.Route("/{sid}", func(r chi.Router) {
			r.Get("/", h.GetView)
			r.Delete("/", h.DeleteSession)
			r.Get("/view", h.GetView)
			r.Post("/load", h.LoadPayload)
			r.Put("/filters", h.SetFilters)
			r.Get("/catalog/search", h.SearchCatalog)
			r.Get("/catalog/suggest", h.SuggestStockNumbers)
			r.Delete("/search", h.CancelSearch)
			r.Post("/close", h.CloseWidget)
			r.Post("/update", h.UpdateActivity)
			r.Post("/refresh", h.Refresh)
			r.Get("/journal", h.GetJournal)

			r.Route("/stations/{stid}", func(r chi.Router) {
				r.Post("/expand", h.ExpandStation)
				r.Post("/checkout", h.CheckoutStation)
				r.Post("/complete", h.CompleteStation)
				r.Post("/release", h.ReleaseStation)
				r.Post("/lines", h.AddLine)
				r.Post("/copy-required", h.CopyAllRequired)

				r.Route("/lines/{lid}", func(r chi.Router) {
					r.Patch("/", h.UpdateLineField)
					r.Put("/installed", h.SetInstalledQuantity)
					r.Post("/toggle-deleted", h.ToggleDeleted)
					r.Post("/copy-required", h.CopyRequired)
					r.Post("/search", h.BeginSearch)
					r.Post("/search/select", h.SelectSearchResult)
				})
			})
		})
	})
}

// sessionSummary is one row of the session list.
type sessionSummary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	HostState    string    `json:"host_state"`
	Status       string    `json:"status"`
	HasHost      bool      `json:"has_host"`
	ActivityID   string    `json:"activity_id,omitempty"`
}

// viewResponse wraps a rendered view with the session id.
type viewResponse struct {
	SessionID string      `json:"session_id"`
	View      render.View `json:"view"`
}

// session resolves {sid} and writes an error response when the session does
// not exist.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "sid"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return nil, false
	}
	return s, true
}

// requestActor is the X-Actor identity of r, named from the session actor
// when the ids match. Zero when the header is absent; the store then acts as
// the session actor. The session actor itself is never changed by a request.
func requestActor(r *http.Request, s *session.Session) types.Actor {
	actor, ok := parseActor(r)
	if !ok {
		return types.Actor{}
	}
	if actor.Name == "" {
		if cur := s.Store().Actor(); cur.ID == actor.ID {
			actor.Name = cur.Name
		}
	}
	return actor
}

// editor scopes store edits to the request's actor.
func editor(r *http.Request, s *session.Session) station.Editor {
	return s.Store().As(requestActor(r, s))
}

func viewFor(r *http.Request, s *session.Session) viewResponse {
	return viewResponse{SessionID: s.ID, View: s.ViewFor(requestActor(r, s))}
}

func writeView(w http.ResponseWriter, r *http.Request, status int, s *session.Session) {
	writeJSON(w, status, viewFor(r, s))
}

// CreateSession creates a session without a host. With ?fixture=true the
// embedded sample activity is loaded.
// POST /v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create()
	if actor, ok := parseActor(r); ok {
		s.Store().SetActor(actor)
	}
	if r.URL.Query().Get("fixture") == "true" {
		if err := s.LoadFixture(r.Context()); err != nil {
			storeErrorToHTTP(w, err)
			return
		}
	}
	writeView(w, r, http.StatusCreated, s)
}

// ListSessions returns every live session.
// GET /v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.List()
	out := make([]sessionSummary, 0, len(list))
	for _, s := range list {
		out = append(out, sessionSummary{
			ID:           s.ID,
			CreatedAt:    s.CreatedAt,
			LastActiveAt: s.LastActiveAt(),
			HostState:    s.HostState().String(),
			Status:       s.Status(),
			HasHost:      s.HasHost(),
			ActivityID:   s.Store().Snapshot().Activity.ID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out, "total_count": len(out)})
}

// GetView renders the session.
// GET /v1/sessions/{sid}/view
func (h *SessionHandler) GetView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// DeleteSession removes the session and detaches its host.
// DELETE /v1/sessions/{sid}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.sessions.Remove(s.ID)
	w.WriteHeader(http.StatusNoContent)
}

// LoadPayload replaces the snapshot from a raw XML or JSON payload in the
// request body. An empty body loads the embedded sample.
// POST /v1/sessions/{sid}/load
func (h *SessionHandler) LoadPayload(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if len(raw) == 0 {
		err = s.LoadFixture(r.Context())
	} else {
		err = s.Store().LoadFromSource(r.Context(), raw)
	}
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

type filtersRequest struct {
	HideComplete           bool `json:"hide_complete"`
	HideCheckedOutByOthers bool `json:"hide_checked_out_by_others"`
}

// SetFilters updates the display filters.
// PUT /v1/sessions/{sid}/filters
func (h *SessionHandler) SetFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req filtersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	s.Store().SetFilters(req.HideComplete, req.HideCheckedOutByOthers)
	writeView(w, r, http.StatusOK, s)
}

// SearchCatalog queries the catalog by stock number and description.
// GET /v1/sessions/{sid}/catalog/search?stock=&desc=
func (h *SessionHandler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	results := s.Store().SearchCatalog(q.Get("stock"), q.Get("desc"))
	if h.searches != nil {
		h.searches.ObserveSearch(len(results))
	}
	if results == nil {
		results = []types.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "total_count": len(results)})
}

// SuggestStockNumbers completes a stock number being typed into a line.
// GET /v1/sessions/{sid}/catalog/suggest?prefix=&limit=
func (h *SessionHandler) SuggestStockNumbers(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	results := s.Store().SuggestCatalog(r.URL.Query().Get("prefix"), parseLimit(r, 10, 50))
	if results == nil {
		results = []types.CatalogEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "total_count": len(results)})
}

// CancelSearch closes the search without applying a selection.
// DELETE /v1/sessions/{sid}/search
func (h *SessionHandler) CancelSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Store().CancelSearch()
	writeView(w, r, http.StatusOK, s)
}

// CloseWidget asks the host to close the widget.
// POST /v1/sessions/{sid}/close
func (h *SessionHandler) CloseWidget(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Close(r.Context()); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"method": hostproto.MethodClose})
}

// UpdateActivity sends activity properties to the host.
// POST /v1/sessions/{sid}/update
func (h *SessionHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Activity map[string]any `json:"activity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if len(req.Activity) == 0 {
		writeError(w, http.StatusBadRequest, "MISSING_ACTIVITY", "activity is required")
		return
	}
	if err := s.Update(r.Context(), req.Activity); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"method": hostproto.MethodUpdate})
}

// Refresh re-applies the latest activity received from the host.
// POST /v1/sessions/{sid}/refresh
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Refresh(r.Context()); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}
