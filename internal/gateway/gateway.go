// Package gateway is the single authenticated entry point to the exchange.
// Every operation goes through one logging wrapper; errors come back to the
// caller exactly as the transport produced them.
package gateway

import (
	"context"
	"log/slog"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/efreitasn/spotbot/internal/exchange"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// API is the exchange surface the gateway drives. *exchange.Client
// implements it.
type API interface {
	Account(ctx context.Context) (*domain.Account, error)
	SymbolInfo(ctx context.Context, symbol string) (*domain.SymbolInfo, error)
	TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	CreateOrder(ctx context.Context, params domain.OrderParams) (*domain.OrderAck, error)
	QueryOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error)
	OpenOrders(ctx context.Context, symbol string) ([]domain.OrderAck, error)
}

// Gateway wraps an API with request/response logging.
type Gateway struct {
	api    API
	logger *slog.Logger
}

// New creates a Gateway. It is built once by the composition root.
func New(api API, logger *slog.Logger) *Gateway {
	return &Gateway{api: api, logger: logger}
}

// call describes one logged exchange operation.
type call struct {
	ep     exchange.Endpoint
	params []slog.Attr
}

// invoke logs the request, runs fn, then logs the response or the error.
// The error is returned as is.
func invoke[T any](ctx context.Context, logger *slog.Logger, c call, fn func(context.Context) (T, error)) (T, error) {
	log := logger.With(
		slog.String("call_id", uuid.NewString()),
		slog.String("op", c.ep.Op),
	)
	log.LogAttrs(ctx, slog.LevelInfo, "api request",
		slog.String("method", c.ep.Method),
		slog.String("endpoint", c.ep.Path),
		slog.Attr{Key: "params", Value: slog.GroupValue(c.params...)},
	)

	out, err := fn(ctx)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "api error",
			slog.String("method", c.ep.Method),
			slog.String("endpoint", c.ep.Path),
			slog.String("error", err.Error()),
		)
		return out, err
	}

	log.LogAttrs(ctx, slog.LevelInfo, "api response", slog.Any("response", out))
	return out, nil
}

// AccountInfo returns balances and permissions.
func (g *Gateway) AccountInfo(ctx context.Context) (*domain.Account, error) {
	return invoke(ctx, g.logger, call{ep: exchange.EndpointAccount}, g.api.Account)
}

// SymbolInfo returns nil without an error for a symbol the exchange does
// not list.
func (g *Gateway) SymbolInfo(ctx context.Context, symbol string) (*domain.SymbolInfo, error) {
	c := call{ep: exchange.EndpointExchangeInfo, params: []slog.Attr{slog.String("symbol", symbol)}}
	return invoke(ctx, g.logger, c, func(ctx context.Context) (*domain.SymbolInfo, error) {
		return g.api.SymbolInfo(ctx, symbol)
	})
}

// CurrentPrice returns the latest trade price.
func (g *Gateway) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	c := call{ep: exchange.EndpointTickerPrice, params: []slog.Attr{slog.String("symbol", symbol)}}
	return invoke(ctx, g.logger, c, func(ctx context.Context) (decimal.Decimal, error) {
		return g.api.TickerPrice(ctx, symbol)
	})
}

// PlaceMarketOrder buys or sells quantity at the best available price.
func (g *Gateway) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity decimal.Decimal) (*domain.OrderAck, error) {
	return g.place(ctx, domain.MarketOrder{Symbol: symbol, Side: side, Quantity: quantity})
}

// PlaceLimitOrder rests a GTC order at price.
func (g *Gateway) PlaceLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price decimal.Decimal) (*domain.OrderAck, error) {
	return g.place(ctx, domain.LimitOrder{Symbol: symbol, Side: side, Quantity: quantity, Price: price})
}

// PlaceStopLimitOrder places a GTC limit at price that activates at stopPrice.
func (g *Gateway) PlaceStopLimitOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, price, stopPrice decimal.Decimal) (*domain.OrderAck, error) {
	return g.place(ctx, domain.StopLimitOrder{
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     price,
		StopPrice: stopPrice,
	})
}

func (g *Gateway) place(ctx context.Context, order domain.Order) (*domain.OrderAck, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	params := order.Params()

	g.logger.LogAttrs(ctx, slog.LevelInfo, "placing order",
		slog.String("order_type", string(order.Kind())),
		slog.Any("params", params),
	)

	c := call{ep: exchange.EndpointCreateOrder, params: attrsOf(params)}
	ack, err := invoke(ctx, g.logger, c, func(ctx context.Context) (*domain.OrderAck, error) {
		return g.api.CreateOrder(ctx, params)
	})
	if err != nil {
		return nil, err
	}

	g.logger.LogAttrs(ctx, slog.LevelInfo, "order result",
		slog.Int64("order_id", ack.OrderID),
		slog.String("symbol", ack.Symbol),
		slog.String("status", ack.Status),
		slog.String("type", ack.Type),
		slog.String("side", ack.Side),
		slog.String("executed_qty", ack.ExecutedQty),
	)
	return ack, nil
}

// OrderStatus returns the current state of an order.
func (g *Gateway) OrderStatus(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	c := call{ep: exchange.EndpointQueryOrder, params: orderAttrs(symbol, orderID)}
	return invoke(ctx, g.logger, c, func(ctx context.Context) (*domain.OrderAck, error) {
		return g.api.QueryOrder(ctx, symbol, orderID)
	})
}

// CancelOrder cancels an open order.
func (g *Gateway) CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	c := call{ep: exchange.EndpointCancelOrder, params: orderAttrs(symbol, orderID)}
	return invoke(ctx, g.logger, c, func(ctx context.Context) (*domain.OrderAck, error) {
		return g.api.CancelOrder(ctx, symbol, orderID)
	})
}

// OpenOrders lists open orders; an empty symbol means all symbols.
func (g *Gateway) OpenOrders(ctx context.Context, symbol string) ([]domain.OrderAck, error) {
	var params []slog.Attr
	if symbol != "" {
		params = append(params, slog.String("symbol", symbol))
	}
	c := call{ep: exchange.EndpointOpenOrders, params: params}
	return invoke(ctx, g.logger, c, func(ctx context.Context) ([]domain.OrderAck, error) {
		return g.api.OpenOrders(ctx, symbol)
	})
}

func orderAttrs(symbol string, orderID int64) []slog.Attr {
	return []slog.Attr{slog.String("symbol", symbol), slog.Int64("orderId", orderID)}
}

func attrsOf(params domain.OrderParams) []slog.Attr {
	return params.LogValue().Group()
}
