package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/reelpay/internal/contracts"
	"github.com/viralforge/reelpay/internal/domain"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	writeJSON(w, statusCode, contracts.SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, contracts.SuccessResponse{Status: "success", Message: message})
}

func writeError(w http.ResponseWriter, statusCode int, code, message, requestID string) {
	writeJSON(w, statusCode, contracts.ErrorResponse{
		Status: "error",
		Error:  contracts.ErrorPayload{Code: code, Message: message, RequestID: requestID},
	})
}

func mapDomainError(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, domain.ErrInvalidRate):
		return http.StatusBadRequest, "INVALID_RATE", err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden, "UNAUTHORIZED", "caller is not allowed to perform this operation"
	case errors.Is(err, domain.ErrUnknownAdvertiser):
		return http.StatusNotFound, "UNKNOWN_ADVERTISER", err.Error()
	case errors.Is(err, domain.ErrUnknownMarketer):
		return http.StatusNotFound, "UNKNOWN_MARKETER", err.Error()
	case errors.Is(err, domain.ErrUnknownProduct):
		return http.StatusNotFound, "UNKNOWN_PRODUCT", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrAlreadyRegistered):
		return http.StatusConflict, "ALREADY_REGISTERED", err.Error()
	case errors.Is(err, domain.ErrOrderAlreadyProcessed):
		return http.StatusConflict, "ORDER_ALREADY_PROCESSED", err.Error()
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrReentrantCall):
		return http.StatusConflict, "CONFLICT", err.Error()
	case errors.Is(err, domain.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_ALLOWANCE", err.Error()
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", err.Error()
	case errors.Is(err, domain.ErrBelowMinimum):
		return http.StatusUnprocessableEntity, "BELOW_MINIMUM", err.Error()
	case errors.Is(err, domain.ErrInsufficientEscrow):
		return http.StatusUnprocessableEntity, "INSUFFICIENT_ESCROW", err.Error()
	case errors.Is(err, domain.ErrNothingToClaim):
		return http.StatusUnprocessableEntity, "NOTHING_TO_CLAIM", err.Error()
	case errors.Is(err, domain.ErrEngineNotConfigured), errors.Is(err, domain.ErrPlatformNotConfigured):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}
