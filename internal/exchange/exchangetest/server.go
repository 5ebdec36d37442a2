// Package exchangetest runs an in-process fake of the spot REST API for
// tests. It checks signatures the same way the real server does and keeps
// placed orders in memory.
package exchangetest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// Credentials accepted by the fake.
const (
	APIKey    = "test-api-key"
	SecretKey = "test-secret-key"
)

// Request is one call the fake received. Params excludes the auth fields.
type Request struct {
	Method string
	Path   string
	Params url.Values
	APIKey string
	Signed bool
}

type failure struct {
	status int
	code   int
	msg    string
}

type order struct {
	ID          int64
	Symbol      string
	Side        string
	Type        string
	TimeInForce string
	Price       string
	StopPrice   string
	OrigQty     string
	ExecutedQty string
	Status      string
	Time        int64
}

// Server is a fake spot API. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	failures map[string]failure
	prices   map[string]decimal.Decimal
	orders   map[int64]*order
	nextID   int64
}

// New starts a fake server and closes it when the test ends. BTCUSDT and
// ETHUSDT are listed.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		failures: make(map[string]failure),
		prices: map[string]decimal.Decimal{
			"BTCUSDT": decimal.RequireFromString("50000.00"),
			"ETHUSDT": decimal.RequireFromString("3000.00"),
		},
		orders: make(map[int64]*order),
		nextID: 1,
	}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Get("/api/v3/exchangeInfo", s.exchangeInfo)
	r.Get("/api/v3/ticker/price", s.tickerPrice)
	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/api/v3/account", s.account)
		r.Post("/api/v3/order", s.createOrder)
		r.Get("/api/v3/order", s.queryOrder)
		r.Delete("/api/v3/order", s.cancelOrder)
		r.Get("/api/v3/openOrders", s.openOrders)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Fail makes every following call to method+path answer with the given error.
func (s *Server) Fail(method, path string, status, code int, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = failure{status: status, code: code, msg: msg}
}

// SetPrice lists symbol (if new) at price.
func (s *Server) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many requests the server has received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent request, or false if there was none.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// rawPayload returns the exact signed string: the query for GET/DELETE,
// the form body for POST.
func rawPayload(r *http.Request) (string, error) {
	if r.Method != http.MethodPost {
		return r.URL.RawQuery, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, err := rawPayload(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, -1102, "unreadable body")
			return
		}
		params, err := url.ParseQuery(payload)
		if err != nil {
			writeError(w, http.StatusBadRequest, -1102, "malformed parameters")
			return
		}

		req := Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Params: url.Values{},
			APIKey: r.Header.Get("X-MBX-APIKEY"),
			Signed: params.Has("signature"),
		}
		for k, v := range params {
			switch k {
			case "timestamp", "recvWindow", "signature":
			default:
				req.Params[k] = v
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		f, failing := s.failures[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if failing {
			writeError(w, f.status, f.code, f.msg)
			return
		}

		r = r.WithContext(withPayload(r.Context(), payload, params))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-MBX-APIKEY") != APIKey {
			writeError(w, http.StatusUnauthorized, -2015, "Invalid API-key, IP, or permissions for action.")
			return
		}
		payload, params := payloadFrom(r.Context())
		if !params.Has("timestamp") {
			writeError(w, http.StatusBadRequest, -1102, "Mandatory parameter 'timestamp' was not sent, was empty/null, or malformed.")
			return
		}
		idx := strings.LastIndex(payload, "&signature=")
		if idx < 0 {
			writeError(w, http.StatusBadRequest, -1102, "Mandatory parameter 'signature' was not sent, was empty/null, or malformed.")
			return
		}
		mac := hmac.New(sha256.New, []byte(SecretKey))
		mac.Write([]byte(payload[:idx]))
		if hex.EncodeToString(mac.Sum(nil)) != payload[idx+len("&signature="):] {
			writeError(w, http.StatusBadRequest, -1022, "Signature for this request is not valid.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) account(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"accountType": "SPOT",
		"canTrade":    true,
		"canWithdraw": true,
		"canDeposit":  true,
		"updateTime":  time.Now().UnixMilli(),
		"balances": []map[string]string{
			{"asset": "BTC", "free": "1.00000000", "locked": "0.00000000"},
			{"asset": "ETH", "free": "0.00000000", "locked": "0.00000000"},
			{"asset": "USDT", "free": "10000.00000000", "locked": "0.00000000"},
		},
	})
}

func (s *Server) exchangeInfo(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	s.mu.Lock()
	_, listed := s.prices[symbol]
	s.mu.Unlock()
	if !listed {
		writeError(w, http.StatusBadRequest, -1121, "Invalid symbol.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"timezone": "UTC",
		"symbols": []map[string]any{{
			"symbol":     symbol,
			"status":     "TRADING",
			"baseAsset":  strings.TrimSuffix(symbol, "USDT"),
			"quoteAsset": "USDT",
			"orderTypes": []string{"LIMIT", "LIMIT_MAKER", "MARKET", "STOP_LOSS_LIMIT", "TAKE_PROFIT_LIMIT"},
			"filters": []map[string]string{
				{"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "maxPrice": "1000000.00000000", "tickSize": "0.01000000"},
				{"filterType": "LOT_SIZE", "minQty": "0.00001000", "maxQty": "9000.00000000", "stepSize": "0.00001000"},
			},
		}},
	})
}

func (s *Server) tickerPrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	s.mu.Lock()
	price, listed := s.prices[symbol]
	s.mu.Unlock()
	if !listed {
		writeError(w, http.StatusBadRequest, -1121, "Invalid symbol.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"symbol": symbol,
		"price":  price.StringFixed(8),
	})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	_, p := payloadFrom(r.Context())
	symbol := p.Get("symbol")

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, listed := s.prices[symbol]; !listed {
		writeError(w, http.StatusBadRequest, -1121, "Invalid symbol.")
		return
	}
	qty, err := decimal.NewFromString(p.Get("quantity"))
	if err != nil || !qty.IsPositive() {
		writeError(w, http.StatusBadRequest, -1013, "Filter failure: LOT_SIZE")
		return
	}

	o := &order{
		ID:          s.nextID,
		Symbol:      symbol,
		Side:        p.Get("side"),
		Type:        p.Get("type"),
		TimeInForce: p.Get("timeInForce"),
		Price:       "0.00000000",
		StopPrice:   "0.00000000",
		OrigQty:     qty.StringFixed(8),
		ExecutedQty: "0.00000000",
		Status:      "NEW",
		Time:        time.Now().UnixMilli(),
	}
	switch o.Type {
	case "MARKET":
		o.ExecutedQty = o.OrigQty
		o.Status = "FILLED"
	case "LIMIT", "STOP_LOSS_LIMIT":
		price, err := decimal.NewFromString(p.Get("price"))
		if err != nil {
			writeError(w, http.StatusBadRequest, -1102, "Mandatory parameter 'price' was not sent, was empty/null, or malformed.")
			return
		}
		o.Price = price.StringFixed(8)
		if o.Type == "STOP_LOSS_LIMIT" {
			stop, err := decimal.NewFromString(p.Get("stopPrice"))
			if err != nil {
				writeError(w, http.StatusBadRequest, -1102, "Mandatory parameter 'stopPrice' was not sent, was empty/null, or malformed.")
				return
			}
			o.StopPrice = stop.StringFixed(8)
		}
	default:
		writeError(w, http.StatusBadRequest, -1116, "Invalid orderType.")
		return
	}

	s.orders[o.ID] = o
	s.nextID++
	writeJSON(w, http.StatusOK, o.ack())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request, missingCode int, missingMsg string) *order {
	_, p := payloadFrom(r.Context())
	id, err := strconv.ParseInt(p.Get("orderId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, -1102, "Param 'orderId' or 'origClientOrderId' must be sent, but both were empty/null!")
		return nil
	}
	o, ok := s.orders[id]
	if !ok || o.Symbol != p.Get("symbol") {
		writeError(w, http.StatusBadRequest, missingCode, missingMsg)
		return nil
	}
	return o
}

func (s *Server) queryOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.lookup(w, r, -2013, "Order does not exist."); o != nil {
		writeJSON(w, http.StatusOK, o.ack())
	}
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookup(w, r, -2011, "Unknown order sent.")
	if o == nil {
		return
	}
	if o.Status != "NEW" {
		writeError(w, http.StatusBadRequest, -2011, "Unknown order sent.")
		return
	}
	o.Status = "CANCELED"
	writeJSON(w, http.StatusOK, o.ack())
}

func (s *Server) openOrders(w http.ResponseWriter, r *http.Request) {
	_, p := payloadFrom(r.Context())
	symbol := p.Get("symbol")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0)
	for id := int64(1); id < s.nextID; id++ {
		o, ok := s.orders[id]
		if !ok || o.Status != "NEW" {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, o.ack())
	}
	writeJSON(w, http.StatusOK, out)
}

func (o *order) ack() map[string]any {
	return map[string]any{
		"symbol":        o.Symbol,
		"orderId":       o.ID,
		"orderListId":   -1,
		"clientOrderId": "fake-" + strconv.FormatInt(o.ID, 10),
		"transactTime":  o.Time,
		"price":         o.Price,
		"origQty":       o.OrigQty,
		"executedQty":   o.ExecutedQty,
		"stopPrice":     o.StopPrice,
		"status":        o.Status,
		"timeInForce":   o.TimeInForce,
		"type":          o.Type,
		"side":          o.Side,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	writeJSON(w, status, map[string]any{"code": code, "msg": msg})
}

type payloadKey struct{}

type payloadValue struct {
	raw    string
	params url.Values
}

func withPayload(ctx context.Context, raw string, params url.Values) context.Context {
	return context.WithValue(ctx, payloadKey{}, payloadValue{raw: raw, params: params})
}

func payloadFrom(ctx context.Context) (string, url.Values) {
	v, _ := ctx.Value(payloadKey{}).(payloadValue)
	if v.params == nil {
		return v.raw, url.Values{}
	}
	return v.raw, v.params
}
