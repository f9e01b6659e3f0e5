package handlers

import (
	"net/http"

	"busyatri/internal/domain"
	"busyatri/internal/http/middleware"
	"busyatri/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsInvalidSeat(err):
		respondError(c, http.StatusBadRequest, "invalid_seat", err.Error(), nil)
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsSeatConflict(err):
		respondError(c, http.StatusConflict, "seat_conflict", err.Error(), gin.H{"seats": domain.ConflictingSeats(err)})
	case domain.IsStoreTimeout(err):
		respondError(c, http.StatusServiceUnavailable, "store_timeout", "store did not respond in time, please retry", nil)
	default:
		utils.Event(middleware.GetRequestID(c), "http", "unhandled_error").WithError(err).Error("request failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "something went wrong", nil)
	}
}
