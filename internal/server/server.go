// Package server exposes the ledger over HTTP and WebSocket: escrow moves,
// market lifecycle, settlements, claims, and the operational read surface.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/wordmarket/internal/domain"
	"github.com/alanyoungcy/wordmarket/internal/server/handler"
	"github.com/alanyoungcy/wordmarket/internal/server/middleware"
	"github.com/alanyoungcy/wordmarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	RateLimit   int    // requests per second per client IP; 0 disables
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Escrows     *handler.EscrowHandler
	Markets     *handler.MarketHandler
	Settlements *handler.SettlementHandler
	Claims      *handler.ClaimHandler
	Status      *handler.StatusHandler
}

// Server is the headless HTTP + WebSocket API for the ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (rate limit, logging, CORS, auth) and attaches the
// WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Escrow endpoints.
	mux.HandleFunc("POST /api/escrow/deposit", handlers.Escrows.Deposit)
	mux.HandleFunc("POST /api/escrow/withdraw", handlers.Escrows.Withdraw)
	mux.HandleFunc("POST /api/escrow/lock", handlers.Escrows.Lock)
	mux.HandleFunc("POST /api/escrow/unlock", handlers.Escrows.Unlock)
	mux.HandleFunc("GET /api/escrow/{owner}", handlers.Escrows.GetEscrow)
	mux.HandleFunc("GET /api/escrow/{owner}/holdings", handlers.Escrows.ListHoldings)

	// Market lifecycle endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/pause", handlers.Markets.PauseMarket)
	mux.HandleFunc("POST /api/markets/{id}/resume", handlers.Markets.ResumeMarket)
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Markets.ResolveMarket)

	// Settlement endpoints.
	mux.HandleFunc("POST /api/settlements", handlers.Settlements.Settle)
	mux.HandleFunc("GET /api/markets/{id}/settlements", handlers.Settlements.ListSettlements)

	// Claim endpoints.
	mux.HandleFunc("POST /api/markets/{id}/claims", handlers.Claims.Claim)
	mux.HandleFunc("GET /api/markets/{id}/claims", handlers.Claims.ListClaims)

	// Operational endpoints.
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)
	mux.HandleFunc("GET /api/invariants", handlers.Status.CheckInvariants)
	mux.HandleFunc("GET /api/audit", handlers.Status.ListAudit)
	mux.HandleFunc("GET /api/archives", handlers.Status.ListArchives)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting.
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, time.Second)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
