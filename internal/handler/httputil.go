package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/session"
	"github.com/matthewbaird/stationcu/internal/source"
	"github.com/matthewbaird/stationcu/internal/station"
	"github.com/matthewbaird/stationcu/internal/types"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("writeJSON encode error", zap.Error(err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// readBody reads at most 4 MiB of request body.
func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, 4<<20))
}

// parseActor reads the acting identity from X-Actor and X-Actor-Name.
func parseActor(r *http.Request) (types.Actor, bool) {
	id := r.Header.Get("X-Actor")
	if id == "" {
		return types.Actor{}, false
	}
	return types.Actor{ID: id, Name: r.Header.Get("X-Actor-Name")}, true
}

// parseLimit reads ?limit=, capped at max.
func parseLimit(r *http.Request, def, max int) int {
	n := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			n = l
		}
	}
	if n > max {
		n = max
	}
	return n
}

// storeErrorToHTTP maps store, session and payload errors to responses.
func storeErrorToHTTP(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "SESSION_NOT_FOUND", err.Error())
	case errors.Is(err, station.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, station.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, "INVALID_QUANTITY", err.Error())
	case errors.Is(err, station.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, "INVALID_VALUE", err.Error())
	case errors.Is(err, source.ErrMalformed):
		writeError(w, http.StatusBadRequest, "MALFORMED_PAYLOAD", err.Error())
	case station.IsRejection(err):
		writeError(w, http.StatusConflict, "REJECTED", err.Error())
	case errors.Is(err, session.ErrNoHost):
		writeError(w, http.StatusConflict, "NO_HOST", err.Error())
	case errors.Is(err, session.ErrNoData):
		writeError(w, http.StatusConflict, "NO_DATA", err.Error())
	case errors.Is(err, session.ErrHostUnavailable):
		writeError(w, http.StatusBadGateway, "HOST_UNAVAILABLE", err.Error())
	default:
		zap.L().Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
