// Package api is the read-only HTTP surface from spec.md §6: enumerated
// endpoints for the UI layer plus the /ws Live Hub upgrade. Authentication,
// the web UI, and admin/CRUD endpoints are out of scope (§1 Non-goals) — this
// package only ever reads.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scanwatch/dispatch-engine/internal/bridge"
	"github.com/scanwatch/dispatch-engine/internal/config"
	"github.com/scanwatch/dispatch-engine/internal/database"
	"github.com/scanwatch/dispatch-engine/internal/live"
	"github.com/scanwatch/dispatch-engine/internal/metrics"
)

// Server wraps the chi router and http.Server lifecycle (§6, §5 shutdown
// timeouts).
type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	Config    *config.Config
	DB        *database.DB
	Bridge    *bridge.Supervisor
	Hub       *live.Hub
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

// NewServer builds the chi router, wires every §6 endpoint, and returns a
// Server ready for Start.
func NewServer(opts ServerOptions) *Server {
	r := chi.NewRouter()

	var corsOrigins []string
	if opts.Config.CORSOrigins != "" {
		for _, o := range strings.Split(opts.Config.CORSOrigins, ",") {
			if s := strings.TrimSpace(o); s != "" {
				corsOrigins = append(corsOrigins, s)
			}
		}
	}

	r.Use(RequestID)
	r.Use(CORSWithOrigins(corsOrigins))
	r.Use(RateLimiter(opts.Config.RateLimitRPS, opts.Config.RateLimitBurst, opts.Config.TrustedProxyList()))
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))

	health := NewHealthHandler(opts.DB, opts.Bridge, opts.Version, opts.StartTime)
	r.Get("/api/health", health.ServeHTTP)

	if opts.Config.MetricsEnabled {
		r.Get("/metrics", promhttp.Handler().ServeHTTP)
	}

	r.Get("/ws", opts.Hub.ServeWS)

	r.Group(func(r chi.Router) {
		if opts.Config.MetricsEnabled {
			r.Use(metrics.InstrumentHandler)
		}
		r.Route("/api", func(r chi.Router) {
			NewCallsHandler(opts.DB).Routes(r)
			NewStatsHandler(opts.DB).Routes(r)
			NewHospitalHandler(opts.DB).Routes(r)
			NewAnalyticsHandler(opts.DB).Routes(r)
			NewAlertsHandler(opts.DB).Routes(r)
			NewConfigHandler(opts.Config).Routes(r)
		})
	})

	srv := &http.Server{
		Addr:        opts.Config.HTTPAddr,
		Handler:     r,
		ReadTimeout: opts.Config.ReadTimeout,
		IdleTimeout: opts.Config.IdleTimeout,
		// WriteTimeout stays 0: /ws holds connections open indefinitely
		// (§4.K). Individual handlers still bound their own DB queries
		// via the request context.
		WriteTimeout: 0,
	}

	return &Server{http: srv, log: opts.Log}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
