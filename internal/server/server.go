package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/AkhileshRajan/zentra-pro/internal/apperr"
	"github.com/AkhileshRajan/zentra-pro/internal/auth"
	"github.com/AkhileshRajan/zentra-pro/internal/config"
	"github.com/AkhileshRajan/zentra-pro/internal/gate"
	"github.com/AkhileshRajan/zentra-pro/internal/http/handlers"
	"github.com/AkhileshRajan/zentra-pro/internal/http/respond"
	"github.com/AkhileshRajan/zentra-pro/internal/ledger"
	"github.com/AkhileshRajan/zentra-pro/internal/middleware"
	"github.com/AkhileshRajan/zentra-pro/internal/storage"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Store     storage.Store
	Verifier  auth.Verifier
	Assistant handlers.Assistant
	Logger    *zap.Logger
	// Clock overrides the ledger's notion of now; nil uses time.Now.
	Clock func() time.Time
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Router(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// LLM calls dominate response time
		WriteTimeout: cfg.LLMTimeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// Router builds the route tree.
func Router(cfg config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ledgerOpts := []ledger.Option{ledger.WithLogger(logger)}
	if deps.Clock != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithClock(deps.Clock))
	}
	g := gate.New(ledger.New(deps.Store, ledgerOpts...), logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respond.Fail(w, apperr.KindNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, respond.ErrorBody{Error: apperr.KindValidation, Detail: "method not allowed"})
	})

	handlers.NewHealthHandler(time.Now()).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(deps.Verifier, logger))
		handlers.NewAccountHandler(g, logger).Register(r)
		handlers.NewChatHandler(g, deps.Assistant, logger).Register(r)
		handlers.NewScoreHandler(g, deps.Store, logger).Register(r)
		handlers.NewUploadHandler(g, deps.Assistant, cfg.MaxUploadBytes, logger).Register(r)
	})

	return r
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
