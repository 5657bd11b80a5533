// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matthewbaird/stationcu/internal/catalog"
	"github.com/matthewbaird/stationcu/internal/config"
	"github.com/matthewbaird/stationcu/internal/event"
	"github.com/matthewbaird/stationcu/internal/eventbus"
	"github.com/matthewbaird/stationcu/internal/handler"
	"github.com/matthewbaird/stationcu/internal/journal"
	"github.com/matthewbaird/stationcu/internal/metrics"
	"github.com/matthewbaird/stationcu/internal/session"
	"github.com/matthewbaird/stationcu/internal/wire"
)

// Config holds server configuration.
type Config struct {
	App    config.Config
	Logger *zap.Logger

	// Registry receives the collectors and backs /metrics. Nil uses the
	// prometheus default registry.
	Registry *prometheus.Registry
}

// Server owns the long-lived services behind the HTTP surface.
type Server struct {
	cfg     config.Config
	log     *zap.Logger
	metrics *metrics.Metrics
	gather  prometheus.Gatherer
	router  http.Handler

	Catalog  *catalog.Catalog
	Journal  *journal.MemoryStore
	Bus      *eventbus.Bus
	Sessions *session.Manager
}

// New builds the catalog, journal, event bus and session manager and wires
// them into a router.
func New(ctx context.Context, cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	app := cfg.App

	var (
		reg    prometheus.Registerer = prometheus.DefaultRegisterer
		gather prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		reg, gather = cfg.Registry, cfg.Registry
	}
	m := metrics.New(reg)

	cat, err := catalog.Open(ctx, app.Catalog.DBPath, app.Catalog.SearchLimit)
	if err != nil {
		return nil, err
	}
	log.Info("catalog loaded", zap.Int("entries", cat.Len()), zap.String("db", app.Catalog.DBPath))

	j := journal.NewMemoryStore(app.Journal.Capacity)
	bus := eventbus.New(app.EventBus.Buffer, log)
	bus.Subscribe("log", eventbus.NewLogConsumer(log))
	bus.Subscribe("metrics", eventbus.NewMetricsConsumer(m))

	recorder := event.NewJournalRecorder(j)
	recorder.SetPublisher(bus)

	opts := session.OptionsFromConfig(app)
	opts.Catalog = cat
	opts.Recorder = recorder
	opts.Observer = m
	opts.Logger = log
	sessions := session.NewManager(session.ManagerConfigFromConfig(app), opts)
	sessions.SetGauge(m.SessionsActive)
	sessions.OnRemove(j.DropSession)

	s := &Server{
		cfg:      app,
		log:      log,
		metrics:  m,
		gather:   gather,
		Catalog:  cat,
		Journal:  j,
		Bus:      bus,
		Sessions: sessions,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Recovery(s.log))
	r.Use(handler.Logging(s.log, s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gather, promhttp.HandlerOpts{}))
	r.Method(http.MethodGet, "/host/ws", wire.NewHandler(s.Sessions, s.log, wire.Options{
		OriginPatterns: s.cfg.Server.AllowedOrigins,
		ReadLimit:      s.cfg.Host.MaxMessageBytes,
	}))

	handler.NewSessionHandler(s.Sessions, s.Journal, s.metrics, s.log).Routes(r)
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Start starts the event bus and the session cleanup schedule.
func (s *Server) Start(ctx context.Context) error {
	s.Bus.Start(ctx)
	return s.Sessions.Start(ctx)
}

func (s *Server) closeSessions() {
	for _, sess := range s.Sessions.List() {
		s.Sessions.Remove(sess.ID)
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer s.Bus.Stop()

	addr := cfg.App.Addr()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// hijacked host connections are not tracked by Shutdown
	srv.RegisterOnShutdown(s.closeSessions)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown", zap.Error(err))
		}
	}()

	s.log.Info("starting server", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
