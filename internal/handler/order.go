package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/efreitasn/spotbot/internal/book"
	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/efreitasn/spotbot/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// ladderDepth is how many price levels per side the open-orders view shows.
const ladderDepth = 20

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /api/orders.
// Decimals are accepted as JSON strings or numbers.
type submitOrderRequest struct {
	Type      string              `json:"type"`
	Symbol    string              `json:"symbol"`
	Side      string              `json:"side"`
	Quantity  decimal.Decimal     `json:"quantity"`
	Price     decimal.NullDecimal `json:"price"`
	StopPrice decimal.NullDecimal `json:"stop_price"`
}

// orderResponse is the JSON shape of an order acknowledgment.
type orderResponse struct {
	OrderID       int64           `json:"order_id"`
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	Status        string          `json:"status"`
	Type          string          `json:"type"`
	Side          string          `json:"side"`
	Price         string          `json:"price"`
	Quantity      string          `json:"quantity"`
	ExecutedQty   string          `json:"executed_quantity"`
	StopPrice     string          `json:"stop_price,omitempty"`
	TimeInForce   string          `json:"time_in_force,omitempty"`
	TransactTime  int64           `json:"transact_time,omitempty"`
	Raw           json.RawMessage `json:"raw,omitempty"`
}

func buildOrderResponse(a *domain.OrderAck) orderResponse {
	return orderResponse{
		OrderID:       a.OrderID,
		ClientOrderID: a.ClientOrderID,
		Symbol:        a.Symbol,
		Status:        a.Status,
		Type:          a.Type,
		Side:          a.Side,
		Price:         a.Price,
		Quantity:      a.OrigQty,
		ExecutedQty:   a.ExecutedQty,
		StopPrice:     a.StopPrice,
		TimeInForce:   a.TimeInForce,
		TransactTime:  a.TransactTime,
		Raw:           a.Raw,
	}
}

// SubmitOrder handles POST /api/orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	ack, err := h.orderSvc.Submit(r.Context(), domain.OrderRequest{
		Symbol:    req.Symbol,
		Side:      domain.OrderSide(req.Side),
		Type:      domain.OrderType(req.Type),
		Quantity:  req.Quantity,
		Price:     req.Price,
		StopPrice: req.StopPrice,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(ack))
}

// GetOrder handles GET /api/orders/{symbol}/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	symbol, orderID, ok := orderRef(w, r)
	if !ok {
		return
	}

	ack, err := h.orderSvc.Status(r.Context(), symbol, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(ack))
}

// CancelOrder handles DELETE /api/orders/{symbol}/{order_id}.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	symbol, orderID, ok := orderRef(w, r)
	if !ok {
		return
	}

	ack, err := h.orderSvc.Cancel(r.Context(), symbol, orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildOrderResponse(ack))
}

// ladderResponse is one symbol's open orders grouped by price.
type ladderResponse struct {
	Symbol string            `json:"symbol"`
	Bids   []book.PriceLevel `json:"bids"`
	Asks   []book.PriceLevel `json:"asks"`
}

// openOrdersResponse lists open orders with their per-symbol ladders.
type openOrdersResponse struct {
	Orders  []orderResponse  `json:"orders"`
	Ladders []ladderResponse `json:"ladders"`
}

// ListOpenOrders handles GET /api/orders/open?symbol=.
func (h *OrderHandler) ListOpenOrders(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	orders, err := h.orderSvc.OpenOrders(r.Context(), symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := openOrdersResponse{
		Orders:  make([]orderResponse, 0, len(orders)),
		Ladders: make([]ladderResponse, 0),
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, buildOrderResponse(&orders[i]))
	}

	ladders := book.BuildLadders(orders)
	seen := make(map[string]bool, len(ladders))
	for _, o := range orders {
		l, ok := ladders[o.Symbol]
		if !ok || seen[o.Symbol] {
			continue
		}
		seen[o.Symbol] = true
		resp.Ladders = append(resp.Ladders, ladderResponse{
			Symbol: l.Symbol,
			Bids:   nonNil(l.Bids(ladderDepth)),
			Asks:   nonNil(l.Asks(ladderDepth)),
		})
	}

	WriteJSON(w, http.StatusOK, resp)
}

func nonNil(levels []book.PriceLevel) []book.PriceLevel {
	if levels == nil {
		return []book.PriceLevel{}
	}
	return levels
}

// orderRef reads {symbol} and {order_id} from the path, writing a 400 when
// the id is not an integer.
func orderRef(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	symbol := chi.URLParam(r, "symbol")
	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a positive integer")
		return "", 0, false
	}
	return symbol, orderID, true
}
