package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/matthewbaird/stationcu/internal/journal"
	"github.com/matthewbaird/stationcu/internal/types"
)

// GetJournal returns the session's edit journal. ?station= and ?line=
// (station/line) scope it to one entity, ?q= searches summaries; otherwise
// entries for the loaded activity are returned.
// GET /v1/sessions/{sid}/journal
func (h *SessionHandler) GetJournal(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "JOURNAL_DISABLED", "journal is not configured")
		return
	}
	q := r.URL.Query()

	var (
		entries []types.JournalEntry
		total   int
		err     error
	)
	if text := q.Get("q"); text != "" {
		entries, total, err = h.journal.Search(r.Context(), text, journal.SearchOptions{
			SessionID:  s.ID,
			EntityType: q.Get("entity_type"),
			Limit:      parseLimit(r, 20, 500),
		})
	} else {
		entityType, entityID := "activity", s.Store().Snapshot().Activity.ID
		switch {
		case q.Get("line") != "":
			entityType, entityID = "line", q.Get("line")
		case q.Get("station") != "":
			entityType, entityID = "station", q.Get("station")
		}
		opts := journal.DefaultQueryOptions()
		opts.SessionID = s.ID
		opts.Limit = parseLimit(r, opts.Limit, 500)
		if cats := q.Get("categories"); cats != "" {
			opts.Categories = strings.Split(cats, ",")
		}
		if since := q.Get("since"); since != "" {
			if t, perr := time.Parse(time.RFC3339, since); perr == nil {
				opts.Since = &t
			}
		}
		entries, total, err = h.journal.QueryByEntity(r.Context(), entityType, entityID, opts)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if entries == nil {
		entries = []types.JournalEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "total_count": total})
}
