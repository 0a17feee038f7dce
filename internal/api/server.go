// Package api provides the local HTTP API and SSE stream.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/app"
)

// Server represents the HTTP API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	handler    http.Handler

	// Use case dependencies
	health   app.HealthUsecase
	snapshot app.SnapshotUsecase
	actions  app.ActionsUsecase
	events   app.EventsUsecase
	prefs    app.PrefsUsecase
	stats    app.StatsUsecase
	cfg      app.ConfigUsecase

	// SSE hub
	hub       *Hub
	sseSecret []byte

	// Auth configuration
	authEnabled  bool
	authUsername string
	authPassword string
	authFailures *AuthFailureLimiter

	cors         *CORSConfig
	allowedHosts []string
	rateLimiter  *RateLimiter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithSnapshotUsecase sets the snapshot use case.
func WithSnapshotUsecase(u app.SnapshotUsecase) ServerOption {
	return func(s *Server) { s.snapshot = u }
}

// WithActionsUsecase sets the actions use case.
func WithActionsUsecase(u app.ActionsUsecase) ServerOption {
	return func(s *Server) { s.actions = u }
}

// WithEventsUsecase sets the events use case.
func WithEventsUsecase(u app.EventsUsecase) ServerOption {
	return func(s *Server) { s.events = u }
}

// WithPrefsUsecase sets the preferences use case.
func WithPrefsUsecase(u app.PrefsUsecase) ServerOption {
	return func(s *Server) { s.prefs = u }
}

// WithStatsUsecase sets the stats use case.
func WithStatsUsecase(u app.StatsUsecase) ServerOption {
	return func(s *Server) { s.stats = u }
}

// WithConfigUsecase sets the config use case.
func WithConfigUsecase(u app.ConfigUsecase) ServerOption {
	return func(s *Server) { s.cfg = u }
}

// WithHub sets the SSE hub.
func WithHub(hub *Hub) ServerOption {
	return func(s *Server) { s.hub = hub }
}

// WithSSESecret sets the key that signs SSE tokens.
func WithSSESecret(secret []byte) ServerOption {
	return func(s *Server) { s.sseSecret = secret }
}

// WithBasicAuth enables HTTP Basic Auth.
func WithBasicAuth(username, password string) ServerOption {
	return func(s *Server) {
		if username != "" && password != "" {
			s.authEnabled = true
			s.authUsername = username
			s.authPassword = password
		}
	}
}

// WithAuthFailureLimiter locks out IPs that repeatedly fail Basic Auth.
func WithAuthFailureLimiter(afl *AuthFailureLimiter) ServerOption {
	return func(s *Server) { s.authFailures = afl }
}

// WithCORS allows cross-origin requests from the given origins.
func WithCORS(cfg CORSConfig) ServerOption {
	return func(s *Server) { s.cors = &cfg }
}

// WithAllowedHosts adds hosts accepted by the CSRF origin check.
// Localhost is always accepted.
func WithAllowedHosts(hosts ...string) ServerOption {
	return func(s *Server) { s.allowedHosts = append(s.allowedHosts, hosts...) }
}

// WithRateLimiter applies per-IP rate limiting to every request.
func WithRateLimiter(rl *RateLimiter) ServerOption {
	return func(s *Server) { s.rateLimiter = rl }
}

// NewServer creates a new API server with the given dependencies.
func NewServer(addr string, health app.HealthUsecase, opts ...ServerOption) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // Disable for SSE (long-lived connections)
			IdleTimeout:  60 * time.Second,
		},
		mux:    mux,
		health: health,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	s.handler = s.buildHandler()
	s.httpServer.Handler = s.handler
	return s
}

// buildHandler wraps the mux in the global middleware chain.
// Outermost first: security headers, CORS, rate limit, CSRF.
func (s *Server) buildHandler() http.Handler {
	var h http.Handler = s.mux
	h = csrfMiddleware(s.allowedHosts)(h)
	if s.rateLimiter != nil {
		h = s.rateLimiter.Middleware(h)
	}
	if s.cors != nil {
		h = corsMiddleware(*s.cors)(h)
	}
	return securityHeadersMiddleware(h)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// wrapAuth wraps a handler with auth middleware if auth is enabled.
func (s *Server) wrapAuth(h http.HandlerFunc) http.Handler {
	if !s.authEnabled {
		return h
	}
	return basicAuthMiddleware(s.authUsername, s.authPassword, s.authFailures)(h)
}

// wrapStreamAuth is wrapAuth for the SSE endpoint, which also accepts a token.
func (s *Server) wrapStreamAuth(h http.HandlerFunc) http.Handler {
	if !s.authEnabled {
		return h
	}
	return sseTokenMiddleware(s.authUsername, s.authPassword, s.sseSecret, s.authFailures)(h)
}

// registerRoutes sets up the API routes. Routes whose use case is not
// configured are left out and answer 404.
func (s *Server) registerRoutes() {
	// Health endpoint (no auth required)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	if s.snapshot != nil {
		s.mux.Handle("GET /api/v1/snapshot", s.wrapAuth(s.handleSnapshot))
		s.mux.Handle("POST /api/v1/sync", s.wrapAuth(s.handleSync))
		s.mux.Handle("GET /api/v1/tickets/{id}/permits", s.wrapAuth(s.handleTicketPermits))
		s.mux.Handle("GET /api/v1/tickets/{id}/qr", s.wrapAuth(s.handleTicketQR))
	}
	s.mux.Handle("POST /api/v1/qr/decode", s.wrapAuth(s.handleQRDecode))

	if s.actions != nil {
		s.mux.Handle("POST /api/v1/intents", s.wrapAuth(s.handleBuildIntent))
		s.mux.Handle("POST /api/v1/actions", s.wrapAuth(s.handleExecute))
		s.mux.Handle("GET /api/v1/actions", s.wrapAuth(s.handleListActions))
		s.mux.Handle("GET /api/v1/lookup/{id}", s.wrapAuth(s.handleLookup))
	}

	if s.events != nil {
		s.mux.Handle("GET /api/v1/events/{id}", s.wrapAuth(s.handleEvent))
		s.mux.Handle("GET /api/v1/registry", s.wrapAuth(s.handleRegistry))
		s.mux.Handle("POST /api/v1/event-names", s.wrapAuth(s.handleEventNames))
	}

	if s.stats != nil {
		s.mux.Handle("GET /api/v1/stats", s.wrapAuth(s.handleStats))
	}

	if s.prefs != nil {
		s.mux.Handle("GET /api/v1/prefs", s.wrapAuth(s.handleGetPrefs))
		s.mux.Handle("PUT /api/v1/prefs", s.wrapAuth(s.handlePutPrefs))
	}

	if s.cfg != nil {
		s.mux.Handle("GET /api/v1/config", s.wrapAuth(s.handleGetConfig))
		s.mux.Handle("PUT /api/v1/config", s.wrapAuth(s.handlePutConfig))
	}

	if s.authEnabled {
		s.mux.Handle("POST /api/v1/auth/token", s.wrapAuth(s.handleAuthToken))
	}

	if s.hub != nil {
		s.mux.Handle("GET "+streamPath, s.wrapStreamAuth(s.handleStream))
	}
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	result, err := s.health.Handle(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}
