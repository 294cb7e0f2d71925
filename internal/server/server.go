// Package server is the dashboard backend: REST endpoints for the account,
// agents and portfolio, and run endpoints plus a websocket stream for the
// order sequencer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/agentdesk/agentdesk/internal/core/domain"
	"github.com/agentdesk/agentdesk/internal/core/service"
	"github.com/agentdesk/agentdesk/internal/history"
	"github.com/agentdesk/agentdesk/pkg/deploy"
	"github.com/agentdesk/agentdesk/pkg/sequencer"
	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/wallet"
)

// SwapHistory lists recorded swaps
type SwapHistory interface {
	Swaps(ctx context.Context, limit int) ([]history.Swap, error)
}

// Config holds server dependencies. Deployer and History are optional.
type Config struct {
	Addr     string
	Trading  *service.TradingService
	Wallet   wallet.Connector
	Deployer *deploy.Deployer
	History  SwapHistory
	Runs     *Registry
	Auth     *Authenticator
	Log      zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	trading  *service.TradingService
	wallet   wallet.Connector
	deployer *deploy.Deployer
	history  SwapHistory
	runs     *Registry
	auth     *Authenticator
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	if cfg.Auth == nil {
		cfg.Auth = NewAuthenticator("", 0)
	}
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		trading:  cfg.Trading,
		wallet:   cfg.Wallet,
		deployer: cfg.Deployer,
		history:  cfg.History,
		runs:     cfg.Runs,
		auth:     cfg.Auth,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Websockets stay outside the request timeout
	s.router.With(s.auth.Middleware).Get("/ws/runs/{id}", s.handleRunStream)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/auth/challenge", s.handleChallenge)
		r.Post("/auth/verify", s.handleVerify)

		r.Get("/version", s.handleVersion)
		r.Get("/plans", s.handlePlans)
		r.Get("/price", s.handlePrice)
		r.Get("/tokens", s.handleTokens)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Get("/wallet", s.handleWallet)
			r.Post("/wallet/connect", s.handleWalletConnect)
			r.Post("/wallet/disconnect", s.handleWalletDisconnect)

			r.Post("/plan", s.handleSelectPlan)
			r.Get("/risk", s.handleGetRisk)
			r.Post("/risk", s.handleSetRisk)

			r.Get("/agents", s.handleAgents)
			r.Post("/agents/deploy", s.handleDeployAgents)
			r.Post("/agents/{id}/toggle", s.handleToggleAgent)
			r.Get("/deployment", s.handleDeployment)
			r.Delete("/deployment", s.handleClearDeployment)

			r.Get("/stats", s.handleStats)
			r.Get("/history", s.handleHistory)

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRuns)
				r.Post("/", s.handleCreateRun)
				r.Get("/{id}", s.handleGetRun)
				r.Delete("/{id}", s.handleDeleteRun)
				r.Post("/{id}/start", s.handleRunAction(func(seq *sequencer.Sequencer) error { return seq.Start() }))
				r.Post("/{id}/approve", s.handleRunAction(func(seq *sequencer.Sequencer) error { return seq.Approve() }))
				r.Post("/{id}/reset", s.handleRunAction(func(seq *sequencer.Sequencer) error { return seq.Reset() }))
				r.Post("/{id}/submit", s.handleSubmit)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Bool("auth", s.auth.Enabled()).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and unmounts every run
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	err := s.server.Shutdown(ctx)
	s.runs.Close()
	return err
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrRunNotFound),
		errors.Is(err, domain.ErrPlanNotFound),
		errors.Is(err, domain.ErrAgentNotFound),
		errors.Is(err, types.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, sequencer.ErrInvalidTransition),
		errors.Is(err, sequencer.ErrAlreadyStarted),
		errors.Is(err, deploy.ErrDeploymentInProgress):
		return http.StatusConflict
	case errors.Is(err, sequencer.ErrStopped):
		return http.StatusGone
	case errors.Is(err, types.ErrWalletNotConnected),
		errors.Is(err, domain.ErrAgentsNotDeployed):
		return http.StatusPreconditionFailed
	case errors.Is(err, types.ErrSignatureInvalid),
		errors.Is(err, types.ErrAuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidRiskLevel),
		errors.Is(err, domain.ErrMissingAmount),
		errors.Is(err, domain.ErrNonPositiveAmount),
		errors.Is(err, domain.ErrSameToken),
		errors.Is(err, domain.ErrUnknownToken),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, types.ErrInvalidOrder),
		errors.Is(err, types.ErrInvalidCommand),
		errors.Is(err, types.ErrInvalidQuantity),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
