package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/shopspring/decimal"
)

// Base URLs for the spot REST API.
const (
	TestnetURL = "https://testnet.binance.vision"
	MainnetURL = "https://api.binance.com"
)

// Endpoint describes one REST operation.
type Endpoint struct {
	Op     string
	Method string
	Path   string
	Signed bool
	Order  bool // failures may be order rejections
}

var (
	EndpointAccount      = Endpoint{Op: "account", Method: http.MethodGet, Path: "/api/v3/account", Signed: true}
	EndpointExchangeInfo = Endpoint{Op: "exchange info", Method: http.MethodGet, Path: "/api/v3/exchangeInfo"}
	EndpointTickerPrice  = Endpoint{Op: "ticker price", Method: http.MethodGet, Path: "/api/v3/ticker/price"}
	EndpointCreateOrder  = Endpoint{Op: "create order", Method: http.MethodPost, Path: "/api/v3/order", Signed: true, Order: true}
	EndpointQueryOrder   = Endpoint{Op: "query order", Method: http.MethodGet, Path: "/api/v3/order", Signed: true, Order: true}
	EndpointCancelOrder  = Endpoint{Op: "cancel order", Method: http.MethodDelete, Path: "/api/v3/order", Signed: true, Order: true}
	EndpointOpenOrders   = Endpoint{Op: "open orders", Method: http.MethodGet, Path: "/api/v3/openOrders", Signed: true}
)

const (
	defaultRecvWindow = 5 * time.Second
	defaultTimeout    = 10 * time.Second
)

// Client talks to the spot REST API. It is safe to share: nothing is
// mutated after NewClient returns.
type Client struct {
	baseURL    string
	signer     *Signer
	httpClient *http.Client
	recvWindow time.Duration
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the testnet default.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the http.Client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithRecvWindow sets how long a signed request stays valid on the server.
func WithRecvWindow(d time.Duration) Option {
	return func(c *Client) {
		c.recvWindow = d
	}
}

// NewClient creates a client for the given credentials, pointed at the testnet.
func NewClient(apiKey, secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    TestnetURL,
		signer:     NewSigner(apiKey, secretKey),
		httpClient: &http.Client{Timeout: defaultTimeout},
		recvWindow: defaultRecvWindow,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the REST root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Account returns balances and permissions of the authenticated account.
func (c *Client) Account(ctx context.Context) (*domain.Account, error) {
	body, err := c.do(ctx, EndpointAccount, nil)
	if err != nil {
		return nil, classify(EndpointAccount, err)
	}
	var acct domain.Account
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, classify(EndpointAccount, fmt.Errorf("decode account: %w", err))
	}
	return &acct, nil
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string   `json:"symbol"`
		Status     string   `json:"status"`
		BaseAsset  string   `json:"baseAsset"`
		QuoteAsset string   `json:"quoteAsset"`
		OrderTypes []string `json:"orderTypes"`
		Filters    []struct {
			FilterType string          `json:"filterType"`
			TickSize   decimal.Decimal `json:"tickSize"`
			MinPrice   decimal.Decimal `json:"minPrice"`
			MaxPrice   decimal.Decimal `json:"maxPrice"`
			StepSize   decimal.Decimal `json:"stepSize"`
			MinQty     decimal.Decimal `json:"minQty"`
			MaxQty     decimal.Decimal `json:"maxQty"`
		} `json:"filters"`
	} `json:"symbols"`
}

// SymbolInfo returns the trading constraints of symbol, or nil if the
// exchange does not list it.
func (c *Client) SymbolInfo(ctx context.Context, symbol string) (*domain.SymbolInfo, error) {
	body, err := c.do(ctx, EndpointExchangeInfo, url.Values{"symbol": {symbol}})
	if err != nil {
		if IsInvalidSymbol(err) {
			return nil, nil
		}
		return nil, classify(EndpointExchangeInfo, err)
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, classify(EndpointExchangeInfo, fmt.Errorf("decode exchange info: %w", err))
	}

	for _, s := range resp.Symbols {
		if s.Symbol != symbol {
			continue
		}
		info := &domain.SymbolInfo{
			Symbol:     s.Symbol,
			Status:     s.Status,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			OrderTypes: s.OrderTypes,
		}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				info.TickSize, info.MinPrice, info.MaxPrice = f.TickSize, f.MinPrice, f.MaxPrice
			case "LOT_SIZE":
				info.StepSize, info.MinQty, info.MaxQty = f.StepSize, f.MinQty, f.MaxQty
			}
		}
		return info, nil
	}
	return nil, nil
}

// TickerPrice returns the latest trade price of symbol.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := c.do(ctx, EndpointTickerPrice, url.Values{"symbol": {symbol}})
	if err != nil {
		return decimal.Zero, classify(EndpointTickerPrice, err)
	}
	var ticker struct {
		Symbol string          `json:"symbol"`
		Price  decimal.Decimal `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Zero, classify(EndpointTickerPrice, fmt.Errorf("decode ticker: %w", err))
	}
	return ticker.Price, nil
}

// CreateOrder submits params as a new order.
func (c *Client) CreateOrder(ctx context.Context, params domain.OrderParams) (*domain.OrderAck, error) {
	return c.orderCall(ctx, EndpointCreateOrder, params.Values())
}

// QueryOrder returns the current state of an order.
func (c *Client) QueryOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	return c.orderCall(ctx, EndpointQueryOrder, orderIDParams(symbol, orderID))
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, symbol string, orderID int64) (*domain.OrderAck, error) {
	return c.orderCall(ctx, EndpointCancelOrder, orderIDParams(symbol, orderID))
}

// OpenOrders lists open orders, for all symbols when symbol is empty.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]domain.OrderAck, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}
	body, err := c.do(ctx, EndpointOpenOrders, params)
	if err != nil {
		return nil, classify(EndpointOpenOrders, err)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, classify(EndpointOpenOrders, fmt.Errorf("decode open orders: %w", err))
	}
	orders := make([]domain.OrderAck, 0, len(raws))
	for _, raw := range raws {
		ack, err := decodeAck(raw)
		if err != nil {
			return nil, classify(EndpointOpenOrders, err)
		}
		orders = append(orders, *ack)
	}
	return orders, nil
}

func (c *Client) orderCall(ctx context.Context, ep Endpoint, params url.Values) (*domain.OrderAck, error) {
	body, err := c.do(ctx, ep, params)
	if err != nil {
		return nil, classify(ep, err)
	}
	ack, err := decodeAck(body)
	if err != nil {
		return nil, classify(ep, err)
	}
	return ack, nil
}

func decodeAck(body []byte) (*domain.OrderAck, error) {
	var ack domain.OrderAck
	if err := json.Unmarshal(body, &ack); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	ack.Raw = append(json.RawMessage(nil), body...)
	return &ack, nil
}

func orderIDParams(symbol string, orderID int64) url.Values {
	return url.Values{
		"symbol":  {symbol},
		"orderId": {strconv.FormatInt(orderID, 10)},
	}
}

// do sends one request and returns the response body. Non-2xx responses
// come back as *APIError.
func (c *Client) do(ctx context.Context, ep Endpoint, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	if ep.Signed {
		query.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
		query.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
	}

	payload := query.Encode()
	if ep.Signed {
		payload += "&signature=" + c.signer.Sign(payload)
	}

	target := c.baseURL + ep.Path
	var body io.Reader
	if ep.Method == http.MethodPost {
		body = strings.NewReader(payload)
	} else if payload != "" {
		target += "?" + payload
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.signer.APIKey())
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, data)
	}
	return data, nil
}
