package http

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/adapter/auth"
	"github.com/simaogato/shiftescrow-backend/internal/adapter/dto"
	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

var knownTransactionStatuses = map[domain.TransactionStatus]bool{
	domain.TransactionStatusPending:  true,
	domain.TransactionStatusInEscrow: true,
	domain.TransactionStatusReleased: true,
	domain.TransactionStatusPaidOut:  true,
	domain.TransactionStatusDisputed: true,
	domain.TransactionStatusFailed:   true,
}

var knownDisputeStatuses = map[domain.DisputeStatus]bool{
	domain.DisputeStatusOpen:        true,
	domain.DisputeStatusUnderReview: true,
	domain.DisputeStatusMediation:   true,
	domain.DisputeStatusEscalated:   true,
	domain.DisputeStatusResolved:    true,
	domain.DisputeStatusClosed:      true,
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed",
			"module", "adapter.http",
			"operation", "readyz",
			"outcome", "failure",
			"error", err,
		)
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable")
		return
	}
	writeMessage(w, http.StatusOK, "ready")
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFrom(r.Context())
	stats, err := h.dashboard.GetStats(r.Context(), actor)
	if err != nil {
		h.writeMappedError(r.Context(), w, "get_stats", err)
		return
	}
	writeSuccess(w, http.StatusOK, dto.NewStats(stats))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TransactionFilter{
		Status: domain.TransactionStatus(q.Get("status")),
		Limit:  parseIntDefault(q.Get("limit"), 50),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
	if filter.Status != "" && !knownTransactionStatuses[filter.Status] {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid status filter")
		return
	}
	var ok bool
	if filter.WorkerID, ok = optionalUUID(w, q.Get("worker_id"), "worker_id"); !ok {
		return
	}
	if filter.BusinessID, ok = optionalUUID(w, q.Get("business_id"), "business_id"); !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	txs, err := h.dashboard.ListTransactions(r.Context(), actor, filter)
	if err != nil {
		h.writeMappedError(r.Context(), w, "list_transactions", err)
		return
	}

	items := make([]*dto.Transaction, 0, len(txs))
	for _, tx := range txs {
		items = append(items, dto.NewTransaction(tx))
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathUUID(w, r, "transaction_id")
	if !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	tx, err := h.ledger.GetTransaction(r.Context(), actor, txID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "get_transaction", err)
		return
	}
	writeSuccess(w, http.StatusOK, dto.NewTransaction(tx))
}

func (h *Handler) getInstructions(w http.ResponseWriter, r *http.Request) {
	txID, ok := pathUUID(w, r, "transaction_id")
	if !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	instructions, err := h.ledger.PayoutInstructions(r.Context(), actor, txID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "get_payout_instructions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"transaction_id": txID,
		"instructions":   dto.NewInstructions(instructions),
	})
}

func (h *Handler) listDisputes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.DisputeFilter{
		Status: domain.DisputeStatus(q.Get("status")),
		Limit:  parseIntDefault(q.Get("limit"), 50),
		Offset: parseIntDefault(q.Get("offset"), 0),
	}
	if filter.Status != "" && !knownDisputeStatuses[filter.Status] {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid status filter")
		return
	}
	var ok bool
	if filter.TransactionID, ok = optionalUUID(w, q.Get("transaction_id"), "transaction_id"); !ok {
		return
	}
	if filter.AssignedTo, ok = optionalUUID(w, q.Get("assigned_to"), "assigned_to"); !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	disputes, err := h.dashboard.ListDisputes(r.Context(), actor, filter)
	if err != nil {
		h.writeMappedError(r.Context(), w, "list_disputes", err)
		return
	}

	items := make([]*dto.Dispute, 0, len(disputes))
	for _, d := range disputes {
		items = append(items, dto.NewDispute(d))
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"items":  items,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) getDispute(w http.ResponseWriter, r *http.Request) {
	disputeID, ok := pathUUID(w, r, "dispute_id")
	if !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	d, err := h.disputes.GetDispute(r.Context(), actor, disputeID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "get_dispute", err)
		return
	}
	writeSuccess(w, http.StatusOK, dto.NewDispute(d))
}

func (h *Handler) getTimeline(w http.ResponseWriter, r *http.Request) {
	disputeID, ok := pathUUID(w, r, "dispute_id")
	if !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	entries, err := h.disputes.Timeline(r.Context(), actor, disputeID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "get_timeline", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"dispute_id": disputeID,
		"entries":    dto.NewTimeline(entries),
	})
}

// exportTimeline renders the audit trail as CSV. The export is buffered so
// failures still get the JSON error envelope.
func (h *Handler) exportTimeline(w http.ResponseWriter, r *http.Request) {
	disputeID, ok := pathUUID(w, r, "dispute_id")
	if !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	var buf bytes.Buffer
	if err := h.disputes.ExportTimelineCSV(r.Context(), actor, disputeID, &buf); err != nil {
		h.writeMappedError(r.Context(), w, "export_timeline", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=\"dispute-"+disputeID.String()+"-timeline.csv\"")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) getRecommendation(w http.ResponseWriter, r *http.Request) {
	disputeID, ok := pathUUID(w, r, "dispute_id")
	if !ok {
		return
	}

	actor, _ := auth.ActorFrom(r.Context())
	rec, err := h.disputes.CalculateResolutionSplit(r.Context(), actor, disputeID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "calculate_resolution_split", err)
		return
	}
	writeSuccess(w, http.StatusOK, dto.NewRecommendation(rec))
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func optionalUUID(w http.ResponseWriter, raw, name string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid "+name)
		return nil, false
	}
	return &id, true
}

func parseIntDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
