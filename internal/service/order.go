package service

import (
	"context"
	"fmt"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderGateway is the part of the exchange gateway the order façade needs.
type OrderGateway interface {
	PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity decimal.Decimal) (*domain.OrderAck, error)
	PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price decimal.Decimal) (*domain.OrderAck, error)
	PlaceStopLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price, stopPrice decimal.Decimal) (*domain.OrderAck, error)
	OrderStatus(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.OrderAck, error)
}

// OrderService is the one path every front end uses to place and manage
// orders.
type OrderService struct {
	gateway OrderGateway
}

// NewOrderService creates a new OrderService backed by gateway.
func NewOrderService(gateway OrderGateway) *OrderService {
	return &OrderService{gateway: gateway}
}

// Submit validates req and places it. Nothing reaches the gateway unless
// the request is valid; the acknowledgment is returned as received.
func (s *OrderService) Submit(ctx context.Context, req domain.OrderRequest) (*domain.OrderAck, error) {
	order, err := domain.NewOrder(req)
	if err != nil {
		return nil, err
	}

	switch o := order.(type) {
	case domain.MarketOrder:
		return s.gateway.PlaceMarketOrder(ctx, o.Symbol, o.Side, o.Quantity)
	case domain.LimitOrder:
		return s.gateway.PlaceLimitOrder(ctx, o.Symbol, o.Side, o.Quantity, o.Price)
	case domain.StopLimitOrder:
		return s.gateway.PlaceStopLimitOrder(ctx, o.Symbol, o.Side, o.Quantity, o.Price, o.StopPrice)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOrderType, order.Kind())
	}
}

// Status returns the exchange's view of an order.
func (s *OrderService) Status(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	if err := validateOrderRef(symbol, orderID); err != nil {
		return nil, err
	}
	return s.gateway.OrderStatus(ctx, symbol, orderID)
}

// Cancel cancels an open order.
func (s *OrderService) Cancel(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	if err := validateOrderRef(symbol, orderID); err != nil {
		return nil, err
	}
	return s.gateway.CancelOrder(ctx, symbol, orderID)
}

// OpenOrders lists open orders. An empty symbol lists every symbol.
func (s *OrderService) OpenOrders(ctx context.Context, symbol string) ([]domain.OrderAck, error) {
	if symbol != "" {
		if err := domain.ValidateSymbol(symbol); err != nil {
			return nil, err
		}
	}
	return s.gateway.OpenOrders(ctx, symbol)
}

func validateOrderRef(symbol string, orderID int64) error {
	if err := domain.ValidateSymbol(symbol); err != nil {
		return err
	}
	if orderID <= 0 {
		return &domain.ValidationError{Message: "order_id must be a positive integer"}
	}
	return nil
}
