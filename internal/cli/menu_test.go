package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/efreitasn/spotbot/internal/exchange"
	"github.com/efreitasn/spotbot/internal/exchange/exchangetest"
	"github.com/efreitasn/spotbot/internal/gateway"
	"github.com/efreitasn/spotbot/internal/service"
)

// testEnv wires the menu to the real façade and a fake exchange.
type testEnv struct {
	srv  *exchangetest.Server
	out  *bytes.Buffer
	logs *bytes.Buffer
	svc  *service.OrderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := exchangetest.New(t)
	client := exchange.NewClient(exchangetest.APIKey, exchangetest.SecretKey, exchange.WithBaseURL(srv.URL))
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	return &testEnv{
		srv:  srv,
		out:  &bytes.Buffer{},
		logs: &logs,
		svc:  service.NewOrderService(gateway.New(client, logger)),
	}
}

func (env *testEnv) run(t *testing.T, answers ...string) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(env.logs, nil))
	menu := NewMenu(strings.NewReader(strings.Join(answers, "\n")+"\n"), env.out, env.svc, logger)
	if err := menu.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestMenu_MarketOrder(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "1", " btcusdt ", "buy", "0.01")

	out := env.out.String()
	for _, want := range []string{
		"=== Binance Spot Testnet Trading Bot ===",
		"Order Result:",
		"  Order ID:   1\n",
		"  Status:     FILLED\n",
		"  Type:       MARKET\n",
		"  Side:       BUY\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	req, _ := env.srv.LastRequest()
	want := map[string]string{"symbol": "BTCUSDT", "side": "BUY", "type": "MARKET", "quantity": "0.01"}
	if len(req.Params) != len(want) {
		t.Fatalf("params = %v", req.Params)
	}
	for k, v := range want {
		if req.Params.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, req.Params.Get(k), v)
		}
	}
}

func TestMenu_StopLimitAsksBothPrices(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "3", "BTCUSDT", "SELL", "0.01", "49000", "49500")

	out := env.out.String()
	if !strings.Contains(out, "Enter price: ") || !strings.Contains(out, "Enter stop price: ") {
		t.Errorf("expected price prompts:\n%s", out)
	}
	req, _ := env.srv.LastRequest()
	if req.Params.Get("type") != "STOP_LOSS_LIMIT" || req.Params.Get("stopPrice") != "49500" {
		t.Errorf("params = %v", req.Params)
	}
}

func TestMenu_MarketDoesNotAskPrice(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "1", "BTCUSDT", "BUY", "1")

	if strings.Contains(env.out.String(), "Enter price: ") {
		t.Error("market order should not prompt for price")
	}
}

func TestMenu_LimitWithZeroPriceRejectedLocally(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "2", "BTCUSDT", "BUY", "1", "0")

	if n := env.srv.RequestCount(); n != 0 {
		t.Errorf("exchange received %d requests, want 0", n)
	}
	if !strings.Contains(env.out.String(), "Error: price must be greater than 0") {
		t.Errorf("output:\n%s", env.out.String())
	}
	if strings.Contains(env.logs.String(), "api error") {
		t.Error("local validation must not be logged as an exchange error")
	}
	if !strings.Contains(env.logs.String(), `"msg":"invalid order input"`) {
		t.Errorf("logs:\n%s", env.logs.String())
	}
}

func TestMenu_UnknownChoiceRejected(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "4", "BTCUSDT", "BUY", "1")

	if env.srv.RequestCount() != 0 {
		t.Error("unknown choice reached the exchange")
	}
	if !strings.Contains(env.out.String(), "Error: invalid order type") {
		t.Errorf("output:\n%s", env.out.String())
	}
}

func TestMenu_UnparseableQuantity(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "1", "BTCUSDT", "BUY", "lots")

	if env.srv.RequestCount() != 0 {
		t.Error("bad quantity reached the exchange")
	}
	if !strings.Contains(env.out.String(), `Error: quantity must be a number, got "lots"`) {
		t.Errorf("output:\n%s", env.out.String())
	}
}

func TestMenu_ExchangeRejectionPrinted(t *testing.T) {
	env := newTestEnv(t)
	env.srv.Fail("POST", "/api/v3/order", 400, -2010, "Account has insufficient balance for requested action.")
	env.run(t, "1", "BTCUSDT", "BUY", "1000")

	if !strings.Contains(env.out.String(), "Error: create order: order rejected (code -2010): Account has insufficient balance") {
		t.Errorf("output:\n%s", env.out.String())
	}
	if !strings.Contains(env.logs.String(), `"msg":"order placement failed"`) {
		t.Errorf("logs:\n%s", env.logs.String())
	}
}

func TestMenu_TruncatedInputReturnsError(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	menu := NewMenu(strings.NewReader("1\nBTCUSDT\n"), io.Discard, nil, logger)

	err := menu.Run(context.Background())
	if err == nil || !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want wrapped io.EOF", err)
	}
}

func TestMenu_LastLineWithoutNewline(t *testing.T) {
	menu := NewMenu(strings.NewReader("1\nBTCUSDT\nSELL\n2.5"), io.Discard, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	req, err := menu.Prompt()
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if req.Type != domain.OrderTypeMarket || req.Side != domain.OrderSideSell || req.Quantity.String() != "2.5" {
		t.Errorf("req = %+v", req)
	}
	if req.Price.Valid || req.StopPrice.Valid {
		t.Error("market order should carry no prices")
	}
}

func TestPrintOrderResult(t *testing.T) {
	var buf bytes.Buffer
	PrintOrderResult(&buf, &domain.OrderAck{
		OrderID: 28, Status: "NEW", Price: "50000.00000000", OrigQty: "0.01000000", Type: "LIMIT", Side: "SELL",
	})

	want := "\nOrder Result:\n" +
		"  Order ID:   28\n" +
		"  Status:     NEW\n" +
		"  Price:      50000.00000000\n" +
		"  Quantity:   0.01000000\n" +
		"  Type:       LIMIT\n" +
		"  Side:       SELL\n"
	if buf.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", buf.String(), want)
	}
}
