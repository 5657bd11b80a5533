package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/stationcu/internal/types"
)

// ExpandStation toggles the expanded station and moves it to the front.
// POST /v1/sessions/{sid}/stations/{stid}/expand
func (h *SessionHandler) ExpandStation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Store().Expand(chi.URLParam(r, "stid")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// CheckoutStation checks the station out to the request's actor.
// POST /v1/sessions/{sid}/stations/{stid}/checkout
func (h *SessionHandler) CheckoutStation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := editor(r, s).Checkout(r.Context(), chi.URLParam(r, "stid")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// CompleteStation marks the station complete.
// POST /v1/sessions/{sid}/stations/{stid}/complete
func (h *SessionHandler) CompleteStation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := editor(r, s).Complete(r.Context(), chi.URLParam(r, "stid")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// ReleaseStation returns a checked-out station to open.
// POST /v1/sessions/{sid}/stations/{stid}/release
func (h *SessionHandler) ReleaseStation(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := editor(r, s).Release(r.Context(), chi.URLParam(r, "stid")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// AddLine appends a blank line to the station.
// POST /v1/sessions/{sid}/stations/{stid}/lines
func (h *SessionHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	line, err := editor(r, s).AddLine(r.Context(), chi.URLParam(r, "stid"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		viewResponse
		Line types.MaterialLine `json:"line"`
	}{viewFor(r, s), line})
}

// CopyAllRequired copies required to installed on every eligible line.
// POST /v1/sessions/{sid}/stations/{stid}/copy-required
func (h *SessionHandler) CopyAllRequired(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	n, err := editor(r, s).CopyAllRequiredToInstalled(r.Context(), chi.URLParam(r, "stid"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		viewResponse
		Copied int `json:"copied"`
	}{viewFor(r, s), n})
}

// ── Lines ───────────────────────────────────────────────────────────────────

type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// UpdateLineField sets one field of a line.
// PATCH /v1/sessions/{sid}/stations/{stid}/lines/{lid}
func (h *SessionHandler) UpdateLineField(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req fieldUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	field, err := types.ParseLineField(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_VALUE", err.Error())
		return
	}
	if err := editor(r, s).UpdateLineField(r.Context(), chi.URLParam(r, "stid"), chi.URLParam(r, "lid"), field, req.Value); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// SetInstalledQuantity sets the installed quantity from its text form.
// PUT /v1/sessions/{sid}/stations/{stid}/lines/{lid}/installed
func (h *SessionHandler) SetInstalledQuantity(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if err := editor(r, s).UpdateInstalledQuantity(r.Context(), chi.URLParam(r, "stid"), chi.URLParam(r, "lid"), req.Value); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// ToggleDeleted flips the line's soft-delete flag.
// POST /v1/sessions/{sid}/stations/{stid}/lines/{lid}/toggle-deleted
func (h *SessionHandler) ToggleDeleted(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	deleted, err := editor(r, s).ToggleDeleted(r.Context(), chi.URLParam(r, "stid"), chi.URLParam(r, "lid"))
	if err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		viewResponse
		Deleted bool `json:"deleted"`
	}{viewFor(r, s), deleted})
}

// CopyRequired copies required to installed on one line.
// POST /v1/sessions/{sid}/stations/{stid}/lines/{lid}/copy-required
func (h *SessionHandler) CopyRequired(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := editor(r, s).CopyRequiredToInstalled(r.Context(), chi.URLParam(r, "stid"), chi.URLParam(r, "lid")); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

// BeginSearch opens the catalog search for a line's stock number or
// description.
// POST /v1/sessions/{sid}/stations/{stid}/lines/{lid}/search
func (h *SessionHandler) BeginSearch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Field string `json:"field"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	field := types.FieldStockNumber
	if req.Field != "" {
		f, err := types.ParseLineField(req.Field)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_VALUE", err.Error())
			return
		}
		field = f
	}
	if err := editor(r, s).BeginSearch(chi.URLParam(r, "stid"), chi.URLParam(r, "lid"), field); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}

type selectRequest struct {
	Field       string `json:"field"`
	StockNumber string `json:"stock_number"`
	Description string `json:"description"`
}

// SelectSearchResult applies a catalog entry to the line that opened the
// search. When only a stock number is given the description is looked up.
// POST /v1/sessions/{sid}/stations/{stid}/lines/{lid}/search/select
func (h *SessionHandler) SelectSearchResult(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	if req.StockNumber == "" {
		writeError(w, http.StatusBadRequest, "INVALID_VALUE", "stock_number is required")
		return
	}
	var field types.LineField
	if req.Field != "" {
		f, err := types.ParseLineField(req.Field)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_VALUE", err.Error())
			return
		}
		field = f
	}
	desc := req.Description
	if desc == "" {
		if e, ok := s.Store().LookupCatalog(req.StockNumber); ok {
			desc = e.Description
		}
	}
	if err := editor(r, s).ApplySearchSelection(r.Context(), chi.URLParam(r, "stid"), chi.URLParam(r, "lid"), field, req.StockNumber, desc); err != nil {
		storeErrorToHTTP(w, err)
		return
	}
	writeView(w, r, http.StatusOK, s)
}
