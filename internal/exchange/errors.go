package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/efreitasn/spotbot/internal/domain"
)

// Error codes the client inspects when classifying failures.
const (
	CodeFilterFailure     = -1013
	CodeInvalidSymbol     = -1121
	CodeNewOrderRejected  = -2010
	CodeCancelRejected    = -2011
	CodeNoSuchOrder       = -2013
	CodeInvalidAPIKey     = -2015
	CodeInvalidSignature  = -1022
	CodeTimestampOutdated = -1021
)

// APIError is a non-2xx response from the exchange.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// orderRejection reports whether the error is about the content of an
// order rather than about the request's transport or authentication.
func (e *APIError) orderRejection() bool {
	if e.StatusCode != http.StatusBadRequest {
		return false
	}
	switch {
	case e.Code == CodeInvalidSymbol:
		return false
	case e.Code == CodeFilterFailure, e.Code == CodeNewOrderRejected,
		e.Code == CodeCancelRejected, e.Code == CodeNoSuchOrder:
		return true
	case e.Code <= -1100 && e.Code >= -1199:
		return true
	}
	return false
}

// parseAPIError decodes an error body. Bodies that are not the exchange's
// {code,msg} shape still produce an APIError carrying the status.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Code = 0
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// classify maps a transport or API failure onto the domain taxonomy.
func classify(ep Endpoint, err error) error {
	var apiErr *APIError
	if ep.Order && errors.As(err, &apiErr) && apiErr.orderRejection() {
		return &domain.OrderRejectedError{Op: ep.Op, Code: apiErr.Code, Message: apiErr.Message}
	}
	return &domain.ExchangeError{Op: ep.Op, Err: err}
}

// IsInvalidSymbol reports whether err carries the exchange's unknown-symbol code.
func IsInvalidSymbol(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == CodeInvalidSymbol
}
