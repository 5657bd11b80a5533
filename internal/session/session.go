// Package session binds one host connection to one station store. A Session
// listens to the host protocol, loads every "open" into its store and keeps
// the latest snapshot for rendering; the Manager owns session lifetimes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/catalog"
	"github.com/matthewbaird/stationcu/internal/event"
	"github.com/matthewbaird/stationcu/internal/fixture"
	"github.com/matthewbaird/stationcu/internal/hostproto"
	"github.com/matthewbaird/stationcu/internal/render"
	"github.com/matthewbaird/stationcu/internal/source"
	"github.com/matthewbaird/stationcu/internal/station"
	"github.com/matthewbaird/stationcu/internal/types"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrNoHost       = errors.New("no host attached")
	ErrHostAttached = errors.New("a host is already attached")
	ErrNoData       = errors.New("no activity data to refresh")

	// ErrHostUnavailable wraps a failed send to an attached host.
	ErrHostUnavailable = errors.New("host unavailable")
)

// Options configures every session created by a Manager.
type Options struct {
	Host            hostproto.Config
	Render          render.Options
	PayloadField    string // activity property holding the station payload
	FixtureFallback bool   // load the embedded sample when no payload is available
	LineIDPrefix    string
	LineIDWidth     int
	DefaultActor    types.Actor
	Catalog         *catalog.Catalog
	Recorder        event.Recorder
	Observer        hostproto.Observer
	Logger          *zap.Logger
}

// Session holds per-host widget state.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	opts   Options
	log    *zap.Logger
	store  *station.Store
	latest atomic.Pointer[station.Snapshot]

	mu         sync.RWMutex
	lastActive time.Time
	proto      *hostproto.Protocol
	stopHost   context.CancelFunc
	hostState  hostproto.State
	status     string
	latestOpen *hostproto.OpenMessage
}

// NewSession creates a session with an empty store.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PayloadField == "" {
		opts.PayloadField = "stations"
	}
	now := time.Now()
	s := &Session{
		ID:         uuid.New().String(),
		CreatedAt:  now,
		opts:       opts,
		lastActive: now,
		hostState:  hostproto.StateInit,
		status:     hostproto.StatusInitializing,
	}
	s.log = opts.Logger.With(zap.String("session", s.ID))
	s.store = station.New(station.Options{
		SessionID:    s.ID,
		LineIDPrefix: opts.LineIDPrefix,
		LineIDWidth:  opts.LineIDWidth,
		Catalog:      opts.Catalog,
		Recorder:     opts.Recorder,
		Logger:       opts.Logger,
		OnChange:     s.storeChanged,
	})
	if !opts.DefaultActor.IsZero() {
		s.store.SetActor(opts.DefaultActor)
	}
	snap := s.store.Snapshot()
	s.latest.Store(&snap)
	return s
}

// Store returns the session's edit-state store.
func (s *Session) Store() *station.Store { return s.store }

// View renders the latest snapshot with the current host status.
func (s *Session) View() render.View {
	return render.Render(*s.latest.Load(), s.Status(), s.opts.Render)
}

// ViewFor renders the latest snapshot as seen by actor: editability and the
// "checked out by others" filter follow actor instead of the session actor.
// A zero actor renders as View does.
func (s *Session) ViewFor(actor types.Actor) render.View {
	snap := *s.latest.Load()
	if !actor.IsZero() {
		snap.Actor = actor
	}
	return render.Render(snap, s.Status(), s.opts.Render)
}

// Status returns the host status line.
func (s *Session) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// HostState returns the handshake state of the attached host.
func (s *Session) HostState() hostproto.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hostState
}

// HasHost reports whether a host channel is attached.
func (s *Session) HasHost() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proto != nil
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActiveAt returns the last activity timestamp.
func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && time.Since(s.LastActiveAt()) > timeout
}

// ── Host channel ────────────────────────────────────────────────────────────

// RunHost runs the host protocol over ch until ctx is done, the channel
// fails or the session is removed. Only one host may be attached at a time.
func (s *Session) RunHost(ctx context.Context, ch hostproto.Channel) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := hostproto.New(ch, s, s.opts.Observer, s.opts.Host, s.log)
	s.mu.Lock()
	if s.proto != nil {
		s.mu.Unlock()
		return ErrHostAttached
	}
	s.proto = p
	s.stopHost = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.proto = nil
		s.stopHost = nil
		s.mu.Unlock()
	}()

	s.log.Info("host attached")
	err := p.Run(ctx)
	s.log.Info("host detached", zap.Error(err))
	return err
}

// StatusChanged implements hostproto.Listener.
func (s *Session) StatusChanged(state hostproto.State, status string) {
	s.mu.Lock()
	s.hostState = state
	s.status = status
	s.lastActive = time.Now()
	s.mu.Unlock()

	if state == hostproto.StateStandalone && s.opts.FixtureFallback && !s.latest.Load().Loaded {
		if err := s.LoadFixture(context.Background()); err != nil {
			s.log.Warn("loading fixture failed", zap.Error(err))
		}
	}
}

// Open implements hostproto.Listener. Every open replaces the snapshot.
func (s *Session) Open(ctx context.Context, msg hostproto.OpenMessage) {
	s.mu.Lock()
	s.latestOpen = &msg
	s.lastActive = time.Now()
	s.mu.Unlock()
	s.applyOpen(ctx, msg)
}

func (s *Session) applyOpen(ctx context.Context, msg hostproto.OpenMessage) {
	if msg.User != nil {
		actor := types.Actor{ID: msg.User.Login, Name: msg.User.Name}
		if actor.ID == "" {
			actor.ID = actor.Name
		}
		s.store.SetActor(actor)
	}

	activity := ActivityFromMap(msg.Activity, s.opts.PayloadField)
	raw, hasPayload := msg.Activity[s.opts.PayloadField]
	switch {
	case hasPayload && raw != nil:
		p, err := source.FromValue(raw)
		if err != nil {
			s.store.SetLoadError(err)
			return
		}
		s.store.LoadActivity(ctx, mergeActivity(activity, p.Activity), p.Stations, "open")
	case s.opts.FixtureFallback:
		p, err := samplePayload()
		if err != nil {
			s.store.SetLoadError(err)
			return
		}
		s.store.LoadActivity(ctx, mergeActivity(activity, p.Activity), p.Stations, "fixture")
	default:
		s.store.LoadActivity(ctx, activity, nil, "open")
	}
}

// ── Outbound ────────────────────────────────────────────────────────────────

// Close asks the host to close the widget.
func (s *Session) Close(ctx context.Context) error {
	p, err := s.protocol()
	if err != nil {
		return err
	}
	if err := p.Close(ctx); err != nil {
		return fmt.Errorf("%w: sending close: %v", ErrHostUnavailable, err)
	}
	return nil
}

// Update sends activity properties to the host. The activity id is added
// when missing.
func (s *Session) Update(ctx context.Context, fields map[string]any) error {
	p, err := s.protocol()
	if err != nil {
		return err
	}
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	if _, ok := out["aid"]; !ok {
		if id := s.latest.Load().Activity.ID; id != "" {
			out["aid"] = id
		}
	}
	if err := p.Update(ctx, out); err != nil {
		return fmt.Errorf("%w: sending update: %v", ErrHostUnavailable, err)
	}
	return nil
}

// Refresh re-applies the latest "open" from the host.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.RLock()
	msg := s.latestOpen
	s.mu.RUnlock()
	if msg == nil {
		return ErrNoData
	}
	s.applyOpen(ctx, *msg)
	return nil
}

// LoadFixture loads the embedded sample payload.
func (s *Session) LoadFixture(ctx context.Context) error {
	p, err := samplePayload()
	if err != nil {
		return err
	}
	s.store.LoadActivity(ctx, p.Activity, p.Stations, "fixture")
	return nil
}

func (s *Session) protocol() (*hostproto.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.proto == nil {
		return nil, ErrNoHost
	}
	return s.proto, nil
}

func (s *Session) storeChanged(snap station.Snapshot) {
	s.latest.Store(&snap)
}

func (s *Session) shutdown() {
	s.mu.Lock()
	stop := s.stopHost
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}

var samplePayload = sync.OnceValues(func() (source.Payload, error) {
	p, err := source.Parse(fixture.SampleActivityXML())
	if err != nil {
		return source.Payload{}, fmt.Errorf("parsing sample payload: %w", err)
	}
	return p, nil
})
