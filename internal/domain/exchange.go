package domain

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
)

// OrderAck is the exchange's acknowledgment of an order. It is passed
// through to callers as received; Raw holds the undecoded response body.
type OrderAck struct {
	OrderID       int64           `json:"orderId"`
	Symbol        string          `json:"symbol"`
	ClientOrderID string          `json:"clientOrderId"`
	Status        string          `json:"status"`
	Price         string          `json:"price"`
	OrigQty       string          `json:"origQty"`
	ExecutedQty   string          `json:"executedQty"`
	StopPrice     string          `json:"stopPrice,omitempty"`
	TimeInForce   string          `json:"timeInForce,omitempty"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
	TransactTime  int64           `json:"transactTime,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// Field is one labelled value of a rendered acknowledgment.
type Field struct {
	Label string
	Value string
}

// Fields returns the six values shown to the user after placing an order.
func (a *OrderAck) Fields() []Field {
	return []Field{
		{Label: "Order ID", Value: strconv.FormatInt(a.OrderID, 10)},
		{Label: "Status", Value: a.Status},
		{Label: "Price", Value: a.Price},
		{Label: "Quantity", Value: a.OrigQty},
		{Label: "Type", Value: a.Type},
		{Label: "Side", Value: a.Side},
	}
}

func (a *OrderAck) LogValue() slog.Value {
	if len(a.Raw) > 0 {
		return slog.StringValue(string(a.Raw))
	}
	return slog.GroupValue(
		slog.Int64("orderId", a.OrderID),
		slog.String("symbol", a.Symbol),
		slog.String("status", a.Status),
		slog.String("price", a.Price),
		slog.String("origQty", a.OrigQty),
		slog.String("type", a.Type),
		slog.String("side", a.Side),
	)
}

// SymbolInfo holds the trading constraints of one instrument.
type SymbolInfo struct {
	Symbol     string          `json:"symbol"`
	Status     string          `json:"status"`
	BaseAsset  string          `json:"base_asset"`
	QuoteAsset string          `json:"quote_asset"`
	OrderTypes []string        `json:"order_types"`
	TickSize   decimal.Decimal `json:"tick_size"`
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	StepSize   decimal.Decimal `json:"step_size"`
	MinQty     decimal.Decimal `json:"min_qty"`
	MaxQty     decimal.Decimal `json:"max_qty"`
}

// Balance is the holding of a single asset.
type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// Account is the authenticated account's state.
type Account struct {
	AccountType string    `json:"accountType"`
	CanTrade    bool      `json:"canTrade"`
	CanWithdraw bool      `json:"canWithdraw"`
	CanDeposit  bool      `json:"canDeposit"`
	UpdateTime  int64     `json:"updateTime"`
	Balances    []Balance `json:"balances"`
}

// NonZeroBalances drops assets with neither free nor locked funds.
func (a *Account) NonZeroBalances() []Balance {
	out := make([]Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		if b.Free.IsZero() && b.Locked.IsZero() {
			continue
		}
		out = append(out, b)
	}
	return out
}
