package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/taskmanager/internal/domain"
	"github.com/diagnosis/taskmanager/pkg/logger"
)

const maxBodyBytes = 1 << 20

// envelope is the response body: success plus message, data or
// endpoint-specific fields.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidOrExpiredCode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the failure envelope. Server
// errors without a client message show "Server error" outside development.
func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := domain.Message(err)

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		if message == "" {
			message = "Server error"
			if h.config.IsDevelopment() {
				message = err.Error()
			}
		}
	}
	if message == "" {
		message = http.StatusText(status)
	}

	writeJSON(w, status, envelope{
		"success": false,
		"message": message,
	})
}

// decodeJSON reads the request body into dst and reports a malformed body
// as a validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Errorf(domain.ErrValidation, "Invalid JSON format")
	}
	return nil
}
