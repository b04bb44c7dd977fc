package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

// mapDomainError converts a usecase error to status, code and client message
func mapDomainError(err error) (int, string, string) {
	var domainErr *domain.Error
	if !errors.As(err, &domainErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable, "UNAVAILABLE", "request aborted"
		}
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}

	switch domainErr.Kind {
	case domain.KindValidation:
		return http.StatusBadRequest, "VALIDATION_ERROR", domainErr.Error()
	case domain.KindConflict:
		return http.StatusConflict, "CONFLICT", domainErr.Error()
	case domain.KindAuthorization:
		return http.StatusForbidden, "FORBIDDEN", domainErr.Error()
	case domain.KindDeadlineExceeded:
		return http.StatusUnprocessableEntity, "DEADLINE_EXCEEDED", domainErr.Error()
	case domain.KindInvalidState:
		return http.StatusUnprocessableEntity, "INVALID_STATE", domainErr.Error()
	case domain.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND", domainErr.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func (h *Handler) writeMappedError(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapDomainError(err)
	level := h.logger.Warn
	if status >= http.StatusInternalServerError {
		level = h.logger.Error
	}
	level("http operation failed",
		"module", "adapter.http",
		"layer", "transport",
		"operation", operation,
		"outcome", "failure",
		"status_code", status,
		"code", code,
		"request_id", requestIDFromContext(ctx),
		"error", err,
	)
	writeError(w, status, code, msg)
}
