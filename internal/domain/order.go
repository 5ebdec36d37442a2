package domain

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"github.com/shopspring/decimal"
)

// OrderType is the order shape a caller asks for.
type OrderType string

const (
	OrderTypeMarket    OrderType = "MARKET"
	OrderTypeLimit     OrderType = "LIMIT"
	OrderTypeStopLimit OrderType = "STOP_LIMIT"
)

// OrderSide indicates whether an order buys or sells the base asset.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// TimeInForceGTC keeps an order open until it is filled or canceled.
const TimeInForceGTC = "GTC"

// Exchange-side order type names. A stop-limit order is STOP_LOSS_LIMIT on
// the spot API.
const (
	exchangeTypeMarket        = "MARKET"
	exchangeTypeLimit         = "LIMIT"
	exchangeTypeStopLossLimit = "STOP_LOSS_LIMIT"
)

var symbolRegex = regexp.MustCompile(`^[A-Z0-9]{2,20}$`)

// OrderRequest is the raw order shape collected by a front end.
// Price and StopPrice are present only when the type needs them.
type OrderRequest struct {
	Symbol    string
	Side      OrderSide
	Type      OrderType
	Quantity  decimal.Decimal
	Price     decimal.NullDecimal
	StopPrice decimal.NullDecimal
}

// Order is one of MarketOrder, LimitOrder or StopLimitOrder.
type Order interface {
	Kind() OrderType
	Validate() error
	Params() OrderParams
}

// MarketOrder executes immediately at the best available price.
type MarketOrder struct {
	Symbol   string
	Side     OrderSide
	Quantity decimal.Decimal
}

// LimitOrder rests on the book at Price until filled or canceled.
type LimitOrder struct {
	Symbol   string
	Side     OrderSide
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// StopLimitOrder becomes a limit order at Price once StopPrice trades.
type StopLimitOrder struct {
	Symbol    string
	Side      OrderSide
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	StopPrice decimal.Decimal
}

func (MarketOrder) Kind() OrderType    { return OrderTypeMarket }
func (LimitOrder) Kind() OrderType     { return OrderTypeLimit }
func (StopLimitOrder) Kind() OrderType { return OrderTypeStopLimit }

func (o MarketOrder) Validate() error {
	return validateCommon(o.Symbol, o.Side, o.Quantity)
}

func (o LimitOrder) Validate() error {
	if err := validateCommon(o.Symbol, o.Side, o.Quantity); err != nil {
		return err
	}
	return validatePositive("price", o.Price)
}

func (o StopLimitOrder) Validate() error {
	if err := validateCommon(o.Symbol, o.Side, o.Quantity); err != nil {
		return err
	}
	if err := validatePositive("price", o.Price); err != nil {
		return err
	}
	return validatePositive("stop price", o.StopPrice)
}

func (o MarketOrder) Params() OrderParams {
	return OrderParams{
		Symbol:   o.Symbol,
		Side:     o.Side,
		Type:     exchangeTypeMarket,
		Quantity: o.Quantity,
	}
}

func (o LimitOrder) Params() OrderParams {
	return OrderParams{
		Symbol:      o.Symbol,
		Side:        o.Side,
		Type:        exchangeTypeLimit,
		TimeInForce: TimeInForceGTC,
		Quantity:    o.Quantity,
		Price:       decimal.NewNullDecimal(o.Price),
	}
}

func (o StopLimitOrder) Params() OrderParams {
	return OrderParams{
		Symbol:      o.Symbol,
		Side:        o.Side,
		Type:        exchangeTypeStopLossLimit,
		TimeInForce: TimeInForceGTC,
		Quantity:    o.Quantity,
		Price:       decimal.NewNullDecimal(o.Price),
		StopPrice:   decimal.NewNullDecimal(o.StopPrice),
	}
}

// NewOrder turns a raw request into its order variant and validates it.
// A price supplied for a market order is ignored.
func NewOrder(req OrderRequest) (Order, error) {
	if req.Side != OrderSideBuy && req.Side != OrderSideSell {
		return nil, fmt.Errorf("%w: side %q must be BUY or SELL", ErrInvalidOrderType, req.Side)
	}

	var order Order
	switch req.Type {
	case OrderTypeMarket:
		order = MarketOrder{Symbol: req.Symbol, Side: req.Side, Quantity: req.Quantity}
	case OrderTypeLimit:
		if !req.Price.Valid {
			return nil, &ValidationError{Message: "price is required for LIMIT orders"}
		}
		order = LimitOrder{Symbol: req.Symbol, Side: req.Side, Quantity: req.Quantity, Price: req.Price.Decimal}
	case OrderTypeStopLimit:
		if !req.Price.Valid {
			return nil, &ValidationError{Message: "price is required for STOP_LIMIT orders"}
		}
		if !req.StopPrice.Valid {
			return nil, &ValidationError{Message: "stop price is required for STOP_LIMIT orders"}
		}
		order = StopLimitOrder{
			Symbol:    req.Symbol,
			Side:      req.Side,
			Quantity:  req.Quantity,
			Price:     req.Price.Decimal,
			StopPrice: req.StopPrice.Decimal,
		}
	default:
		return nil, fmt.Errorf("%w: %q must be one of MARKET, LIMIT, STOP_LIMIT", ErrInvalidOrderType, req.Type)
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

// ValidateSymbol checks that symbol looks like an exchange instrument id.
func ValidateSymbol(symbol string) error {
	if !symbolRegex.MatchString(symbol) {
		return &ValidationError{Message: "symbol must match ^[A-Z0-9]{2,20}$"}
	}
	return nil
}

func validateCommon(symbol string, side OrderSide, quantity decimal.Decimal) error {
	if side != OrderSideBuy && side != OrderSideSell {
		return fmt.Errorf("%w: side %q must be BUY or SELL", ErrInvalidOrderType, side)
	}
	if err := ValidateSymbol(symbol); err != nil {
		return err
	}
	return validatePositive("quantity", quantity)
}

func validatePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Message: field + " must be greater than 0"}
	}
	return nil
}

// OrderParams is the fixed parameter record sent to the order endpoint.
// Optional fields are omitted from Values when unset.
type OrderParams struct {
	Symbol      string
	Side        OrderSide
	Type        string
	TimeInForce string
	Quantity    decimal.Decimal
	Price       decimal.NullDecimal
	StopPrice   decimal.NullDecimal
}

// Values encodes the record with the exchange's parameter names.
func (p OrderParams) Values() url.Values {
	v := url.Values{}
	v.Set("symbol", p.Symbol)
	v.Set("side", string(p.Side))
	v.Set("type", p.Type)
	if p.TimeInForce != "" {
		v.Set("timeInForce", p.TimeInForce)
	}
	v.Set("quantity", p.Quantity.String())
	if p.Price.Valid {
		v.Set("price", p.Price.Decimal.String())
	}
	if p.StopPrice.Valid {
		v.Set("stopPrice", p.StopPrice.Decimal.String())
	}
	return v
}

// LogValue logs exactly the fields that are sent.
func (p OrderParams) LogValue() slog.Value {
	values := p.Values()
	attrs := make([]slog.Attr, 0, len(values))
	for _, key := range []string{"symbol", "side", "type", "timeInForce", "quantity", "price", "stopPrice"} {
		if values.Has(key) {
			attrs = append(attrs, slog.String(key, values.Get(key)))
		}
	}
	return slog.GroupValue(attrs...)
}
