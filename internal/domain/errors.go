package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidOrderType is returned when an order's type or side is outside
// the supported set. It is always detected before any network call.
var ErrInvalidOrderType = errors.New("invalid order type")

// ValidationError represents a local order or input validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError reports missing or invalid startup configuration.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Key, e.Message)
}

// ExchangeError is a transport failure or an API-level rejection unrelated
// to order content (auth, network, unknown symbol).
type ExchangeError struct {
	Op  string
	Err error
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// OrderRejectedError is returned when the exchange refuses a structurally
// valid order (insufficient balance, filter failures, unknown order id).
type OrderRejectedError struct {
	Op      string
	Code    int
	Message string
}

func (e *OrderRejectedError) Error() string {
	return fmt.Sprintf("%s: order rejected (code %d): %s", e.Op, e.Code, e.Message)
}

// IsInputError reports whether err was produced by local validation rather
// than by the exchange.
func IsInputError(err error) bool {
	var validationErr *ValidationError
	return errors.Is(err, ErrInvalidOrderType) || errors.As(err, &validationErr)
}
