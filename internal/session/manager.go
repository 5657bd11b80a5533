package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Gauge is the subset of a prometheus gauge the manager reports to.
type Gauge interface {
	Set(float64)
}

// ManagerConfig controls session expiry.
type ManagerConfig struct {
	MaxAge          time.Duration
	IdleTimeout     time.Duration
	CleanupSchedule string // cron spec, e.g. "@every 1m"
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	cfg      ManagerConfig
	opts     Options
	log      *zap.Logger
	gauge    Gauge
	onRemove []func(id string)
}

// NewManager creates a session manager. Every session it creates shares opts.
func NewManager(cfg ManagerConfig, opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		opts:     opts,
		log:      log,
	}
}

// SetGauge reports the live session count to g.
func (m *Manager) SetGauge(g Gauge) {
	m.mu.Lock()
	m.gauge = g
	m.report()
	m.mu.Unlock()
}

// OnRemove registers fn to run after a session is removed.
func (m *Manager) OnRemove(fn func(id string)) {
	m.mu.Lock()
	m.onRemove = append(m.onRemove, fn)
	m.mu.Unlock()
}

// Create creates a new session and returns it.
func (m *Manager) Create() *Session {
	s := NewSession(m.opts)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.report()
	m.mu.Unlock()
	m.log.Info("session created", zap.String("session", s.ID))
	return s
}

// Get retrieves a session by ID. Expired and idle sessions are removed and
// reported as not found.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if m.stale(s) {
		m.Remove(id)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Touch()
	return s, nil
}

// GetOrCreate returns the session with the given id, or a new one when id
// is empty or unknown.
func (m *Manager) GetOrCreate(id string) *Session {
	if id != "" {
		if s, err := m.Get(id); err == nil {
			return s
		}
	}
	return m.Create()
}

// List returns live sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove deletes a session and detaches its host.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.report()
	hooks := m.onRemove
	m.mu.Unlock()
	if !ok {
		return
	}
	s.shutdown()
	for _, fn := range hooks {
		fn(id)
	}
	m.log.Info("session removed", zap.String("session", id))
}

// Cleanup removes all expired and idle sessions and returns how many were
// removed.
func (m *Manager) Cleanup() int {
	var stale []string
	m.mu.RLock()
	for id, s := range m.sessions {
		if m.stale(s) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		m.Remove(id)
	}
	return len(stale)
}

// Start runs Cleanup on the configured schedule until ctx is done.
func (m *Manager) Start(ctx context.Context) error {
	spec := m.cfg.CleanupSchedule
	if spec == "" {
		spec = "@every 1m"
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if n := m.Cleanup(); n > 0 {
			m.log.Info("session cleanup", zap.Int("removed", n))
		}
	}); err != nil {
		return fmt.Errorf("scheduling session cleanup %q: %w", spec, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (m *Manager) stale(s *Session) bool {
	return s.IsExpired(m.cfg.MaxAge) || s.IsIdle(m.cfg.IdleTimeout)
}

// report must be called with m.mu held.
func (m *Manager) report() {
	if m.gauge != nil {
		m.gauge.Set(float64(len(m.sessions)))
	}
}
