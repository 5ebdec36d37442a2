package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/efreitasn/spotbot/internal/domain"
)

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v, rejecting unknown
// fields.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// classifyError maps a domain error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	var (
		validationErr *domain.ValidationError
		rejectedErr   *domain.OrderRejectedError
		exchangeErr   *domain.ExchangeError
	)
	switch {
	case errors.As(err, &validationErr), errors.Is(err, domain.ErrInvalidOrderType):
		return http.StatusBadRequest, "validation_error"
	case errors.As(err, &rejectedErr):
		return http.StatusUnprocessableEntity, "order_rejected"
	case errors.As(err, &exchangeErr):
		return http.StatusBadGateway, "exchange_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeDomainError writes err using the standard error format.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classifyError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "An unexpected error occurred"
	}
	WriteError(w, status, code, msg)
}
