package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dashboard"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/dispute"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/escrow"
)

// TokenVerifier resolves a bearer token to the acting user
type TokenVerifier interface {
	Verify(token string) (domain.Actor, error)
}

// ReadyFunc reports whether dependencies (database, broker) are reachable
type ReadyFunc func(ctx context.Context) error

// Handler serves the read-only dashboard API
type Handler struct {
	logger    *slog.Logger
	verifier  TokenVerifier
	ledger    *escrow.Ledger
	disputes  *dispute.DisputeService
	dashboard *dashboard.DashboardService
	ready     ReadyFunc
}

// NewHandler constructs an HTTP handler bound to the usecase services
func NewHandler(logger *slog.Logger, verifier TokenVerifier, ledger *escrow.Ledger, disputes *dispute.DisputeService, dashboardService *dashboard.DashboardService, ready ReadyFunc) *Handler {
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	return &Handler{
		logger:    logger,
		verifier:  verifier,
		ledger:    ledger,
		disputes:  disputes,
		dashboard: dashboardService,
		ready:     ready,
	}
}

// NewRouter registers the dashboard routes and middleware stack
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Get("/stats", h.getStats)

		r.Get("/transactions", h.listTransactions)
		r.Get("/transactions/{transaction_id}", h.getTransaction)
		r.Get("/transactions/{transaction_id}/instructions", h.getInstructions)

		r.Get("/disputes", h.listDisputes)
		r.Get("/disputes/{dispute_id}", h.getDispute)
		r.Get("/disputes/{dispute_id}/timeline", h.getTimeline)
		r.Get("/disputes/{dispute_id}/timeline.csv", h.exportTimeline)
		r.Get("/disputes/{dispute_id}/recommendation", h.getRecommendation)
	})

	return r
}
