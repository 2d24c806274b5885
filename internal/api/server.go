// Package api provides the HTTP server for Parlor.
// It exposes the settlement API, the operator treasury API, and a live
// audit event feed.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parlor-network/parlor/internal/domain"
)

// Server is the Parlor HTTP API server.
type Server struct {
	settlement     *SettlementAPI
	treasury       *TreasuryAPI
	auditHub       *AuditHub
	operatorToken  string
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(settlement *SettlementAPI, treasury *TreasuryAPI) *Server {
	return &Server{settlement: settlement, treasury: treasury}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetOperatorToken sets the bearer token gating operator endpoints.
// An empty token leaves them open (local development only).
func (s *Server) SetOperatorToken(tok string) { s.operatorToken = tok }

// SetAuditHub sets the live audit event SSE hub.
func (s *Server) SetAuditHub(h *AuditHub) { s.auditHub = h }

// AuditHub returns the live audit hub (for broadcasting events).
func (s *Server) AuditHub() *AuditHub { return s.auditHub }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version": "0.1.0",
		})
	})

	// Settlement endpoints
	r.Route("/api/bets", func(r chi.Router) {
		r.Post("/", s.settlement.HandleCreate)
		r.Get("/", s.settlement.HandleList)
		r.Get("/{id}", s.settlement.HandleGet)
		r.Get("/{id}/seq", s.settlement.HandleSeq)
		r.Get("/seq/{seq}", s.settlement.HandleGetBySeq)
		r.Post("/{id}/cashout", s.settlement.HandleCashOut)
		r.Post("/{id}/lose", s.settlement.HandleMarkLost)
		r.Post("/{id}/expire", s.settlement.HandleExpire)
		// Signature-free resolution needs the operator token.
		r.With(s.requireOperator).Post("/{id}/resolve", s.settlement.HandleAdminResolve)
	})

	r.Get("/api/liquidity/{asset}", s.treasury.HandleLiquidity)
	r.Get("/api/liquidity", s.treasury.HandleAssets)

	// Operator endpoints, gated by bearer token
	r.Group(func(r chi.Router) {
		r.Use(s.requireOperator)
		r.Post("/api/treasury/deposit", s.treasury.HandleDeposit)
		r.Post("/api/treasury/withdraw", s.treasury.HandleWithdraw)
		r.Post("/api/treasury/limits", s.treasury.HandleSetLimits)
		r.Post("/api/delegates", s.settlement.HandleAddDelegate)
		r.Delete("/api/delegates", s.settlement.HandleRemoveDelegate)
	})

	// Audit trail
	r.Get("/api/events", s.settlement.HandleEvents)
	if s.auditHub != nil {
		r.Get("/api/events/live", s.auditHub.HandleSSE)
	}

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// requireOperator rejects requests without the configured bearer token.
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.operatorToken != "" && r.Header.Get("Authorization") != "Bearer "+s.operatorToken {
			writeDomainError(w, domain.ErrNotOperator)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with a machine-readable code.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": msg,
		},
	})
}

// writeDomainError maps a domain error onto its HTTP status and code.
func writeDomainError(w http.ResponseWriter, err error) {
	code := domain.Code(err)
	writeError(w, statusFor(code), code, err.Error())
}

// statusFor maps error codes onto HTTP statuses. Rejections of well-formed
// requests are 4xx; only invariant violations surface as 500.
func statusFor(code string) int {
	switch code {
	case "GAME_NOT_FOUND":
		return http.StatusNotFound
	case "GAME_EXISTS", "GAME_NOT_ACTIVE", "GAME_STILL_ACTIVE":
		return http.StatusConflict
	case "INVALID_SIGNATURE", "SIGNATURE_EXPIRED":
		return http.StatusUnauthorized
	case "NOT_GAME_PLAYER", "NOT_OPERATOR":
		return http.StatusForbidden
	case "INSUFFICIENT_FUNDS", "INSUFFICIENT_TREASURY", "INSUFFICIENT_AVAILABLE":
		return http.StatusPaymentRequired
	case "INVALID_BET", "INVALID_PAYOUT", "INVALID_AMOUNT", "INVALID_LIMITS", "INVALID_SEED":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
