package wire

import (
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/session"
)

// SessionHeader carries the session id on the upgrade response.
const SessionHeader = "X-Session-ID"

// DefaultReadLimit bounds a single host frame when Options.ReadLimit is unset.
const DefaultReadLimit = 4 << 20

// Options tunes host connections.
type Options struct {
	// OriginPatterns restricts cross-origin upgrades; nil allows any origin.
	OriginPatterns []string
	// ReadLimit is the largest frame accepted from the host. An "open"
	// carries the whole station payload, far beyond the websocket
	// library's 32 KiB default.
	ReadLimit int64
}

// Handler accepts host connections and binds each one to a session.
type Handler struct {
	sessions *session.Manager
	log      *zap.Logger
	opts     Options
}

// NewHandler creates a host websocket handler.
func NewHandler(sessions *session.Manager, log *zap.Logger, opts Options) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.OriginPatterns == nil {
		opts.OriginPatterns = []string{"*"}
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = DefaultReadLimit
	}
	return &Handler{sessions: sessions, log: log, opts: opts}
}

// ServeHTTP upgrades to WebSocket and runs the host protocol for the
// session named by ?session=, creating one when absent.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.GetOrCreate(r.URL.Query().Get("session"))
	if sess.HasHost() {
		http.Error(w, session.ErrHostAttached.Error(), http.StatusConflict)
		return
	}
	w.Header().Set(SessionHeader, sess.ID)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.opts.OriginPatterns,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer ws.CloseNow()
	ws.SetReadLimit(h.opts.ReadLimit)

	conn := NewConn(ws)
	log := h.log.With(zap.String("session", sess.ID))

	err = sess.RunHost(r.Context(), conn)
	switch {
	case errors.Is(err, session.ErrHostAttached):
		_ = conn.Close(websocket.StatusPolicyViolation, "host already attached")
	case IsNormalClosure(err):
		log.Debug("host connection closed")
		_ = conn.Close(websocket.StatusNormalClosure, "")
	default:
		log.Info("host connection ended", zap.Error(err))
	}
}
