package service

import (
	"context"
	"errors"
	"testing"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/shopspring/decimal"
)

// placed is one order the recording gateway received.
type placed struct {
	method    string
	symbol    string
	side      domain.OrderSide
	quantity  decimal.Decimal
	price     decimal.Decimal
	stopPrice decimal.Decimal
}

// recordingGateway records every call and returns err when set.
type recordingGateway struct {
	placed []placed
	calls  []string
	err    error
}

func (g *recordingGateway) ack(kind string) (*domain.OrderAck, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &domain.OrderAck{OrderID: int64(len(g.calls)), Status: "NEW", Type: kind}, nil
}

func (g *recordingGateway) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity decimal.Decimal) (*domain.OrderAck, error) {
	g.calls = append(g.calls, "market")
	g.placed = append(g.placed, placed{method: "market", symbol: symbol, side: side, quantity: quantity})
	return g.ack("MARKET")
}

func (g *recordingGateway) PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price decimal.Decimal) (*domain.OrderAck, error) {
	g.calls = append(g.calls, "limit")
	g.placed = append(g.placed, placed{method: "limit", symbol: symbol, side: side, quantity: quantity, price: price})
	return g.ack("LIMIT")
}

func (g *recordingGateway) PlaceStopLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price, stopPrice decimal.Decimal) (*domain.OrderAck, error) {
	g.calls = append(g.calls, "stop limit")
	g.placed = append(g.placed, placed{method: "stop limit", symbol: symbol, side: side, quantity: quantity, price: price, stopPrice: stopPrice})
	return g.ack("STOP_LOSS_LIMIT")
}

func (g *recordingGateway) OrderStatus(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	g.calls = append(g.calls, "status")
	return g.ack("LIMIT")
}

func (g *recordingGateway) CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	g.calls = append(g.calls, "cancel")
	return g.ack("LIMIT")
}

func (g *recordingGateway) OpenOrders(ctx context.Context, symbol string) ([]domain.OrderAck, error) {
	g.calls = append(g.calls, "open")
	return nil, g.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSubmit_RoutesByType(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.OrderRequest
		method string
	}{
		{
			name:   "market",
			req:    domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Quantity: dec("0.01")},
			method: "market",
		},
		{
			name: "limit",
			req: domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideSell, Type: domain.OrderTypeLimit, Quantity: dec("0.01"),
				Price: decimal.NewNullDecimal(dec("50000"))},
			method: "limit",
		},
		{
			name: "stop limit",
			req: domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideSell, Type: domain.OrderTypeStopLimit, Quantity: dec("0.01"),
				Price: decimal.NewNullDecimal(dec("49000")), StopPrice: decimal.NewNullDecimal(dec("49500"))},
			method: "stop limit",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &recordingGateway{}
			svc := NewOrderService(gw)

			if _, err := svc.Submit(context.Background(), tt.req); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(gw.placed) != 1 || gw.placed[0].method != tt.method {
				t.Fatalf("placed = %+v, want one %s order", gw.placed, tt.method)
			}
		})
	}
}

func TestSubmit_StopLimitPassesBothPrices(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewOrderService(gw)

	_, err := svc.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.OrderSideSell, Type: domain.OrderTypeStopLimit, Quantity: dec("0.01"),
		Price: decimal.NewNullDecimal(dec("49000")), StopPrice: decimal.NewNullDecimal(dec("49500")),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := gw.placed[0]
	if !p.price.Equal(dec("49000")) || !p.stopPrice.Equal(dec("49500")) {
		t.Errorf("price = %s, stop = %s", p.price, p.stopPrice)
	}
}

func TestSubmit_InvalidRequestsNeverReachGateway(t *testing.T) {
	tests := []struct {
		name      string
		req       domain.OrderRequest
		wantType  bool
		wantValid bool
	}{
		{
			name:     "unknown type",
			req:      domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: "OCO", Quantity: dec("1")},
			wantType: true,
		},
		{
			name:     "unknown side",
			req:      domain.OrderRequest{Symbol: "BTCUSDT", Side: "LONG", Type: domain.OrderTypeMarket, Quantity: dec("1")},
			wantType: true,
		},
		{
			name:      "zero quantity",
			req:       domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Quantity: decimal.Zero},
			wantValid: true,
		},
		{
			name:      "limit without price",
			req:       domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit, Quantity: dec("1")},
			wantValid: true,
		},
		{
			name: "limit zero price",
			req: domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: domain.OrderTypeLimit, Quantity: dec("1"),
				Price: decimal.NewNullDecimal(decimal.Zero)},
			wantValid: true,
		},
		{
			name: "stop limit negative stop",
			req: domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: domain.OrderTypeStopLimit, Quantity: dec("1"),
				Price: decimal.NewNullDecimal(dec("10")), StopPrice: decimal.NewNullDecimal(dec("-1"))},
			wantValid: true,
		},
		{
			name:      "lowercase symbol",
			req:       domain.OrderRequest{Symbol: "btcusdt", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Quantity: dec("1")},
			wantValid: true,
		},
		{
			name:      "empty symbol",
			req:       domain.OrderRequest{Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Quantity: dec("1")},
			wantValid: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &recordingGateway{}
			svc := NewOrderService(gw)

			_, err := svc.Submit(context.Background(), tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantType && !errors.Is(err, domain.ErrInvalidOrderType) {
				t.Errorf("expected ErrInvalidOrderType, got %v", err)
			}
			var validationErr *domain.ValidationError
			if tt.wantValid && !errors.As(err, &validationErr) {
				t.Errorf("expected ValidationError, got %T: %v", err, err)
			}
			if len(gw.calls) != 0 {
				t.Errorf("gateway was called: %v", gw.calls)
			}
		})
	}
}

func TestSubmit_GatewayErrorReturnedUnchanged(t *testing.T) {
	cause := &domain.OrderRejectedError{Op: "create order", Code: -2010, Message: "Account has insufficient balance for requested action."}
	gw := &recordingGateway{err: cause}
	svc := NewOrderService(gw)

	_, err := svc.Submit(context.Background(), domain.OrderRequest{
		Symbol: "BTCUSDT", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Quantity: dec("100"),
	})
	if err != cause {
		t.Errorf("err = %v, want the gateway's error", err)
	}
}

func TestStatusAndCancel_ValidateReference(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewOrderService(gw)
	ctx := context.Background()

	if _, err := svc.Status(ctx, "BTCUSDT", 0); !domain.IsInputError(err) {
		t.Errorf("Status with order id 0: expected input error, got %v", err)
	}
	if _, err := svc.Cancel(ctx, "", 5); !domain.IsInputError(err) {
		t.Errorf("Cancel with empty symbol: expected input error, got %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("gateway was called: %v", gw.calls)
	}

	if _, err := svc.Status(ctx, "BTCUSDT", 5); err != nil {
		t.Errorf("Status: %v", err)
	}
	if _, err := svc.Cancel(ctx, "BTCUSDT", 5); err != nil {
		t.Errorf("Cancel: %v", err)
	}
	if len(gw.calls) != 2 || gw.calls[0] != "status" || gw.calls[1] != "cancel" {
		t.Errorf("calls = %v", gw.calls)
	}
}

func TestOpenOrders_EmptySymbolAllowed(t *testing.T) {
	gw := &recordingGateway{}
	svc := NewOrderService(gw)

	if _, err := svc.OpenOrders(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.OpenOrders(context.Background(), "bad symbol"); !domain.IsInputError(err) {
		t.Errorf("expected input error, got %v", err)
	}
	if len(gw.calls) != 1 {
		t.Errorf("calls = %v, want one", gw.calls)
	}
}
