package domain

import (
	"errors"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

var expectedKeys = map[OrderType][]string{
	OrderTypeMarket:    {"quantity", "side", "symbol", "type"},
	OrderTypeLimit:     {"price", "quantity", "side", "symbol", "timeInForce", "type"},
	OrderTypeStopLimit: {"price", "quantity", "side", "stopPrice", "symbol", "timeInForce", "type"},
}

func genPositiveDecimal(label string) *rapid.Generator[decimal.Decimal] {
	return rapid.Custom(func(t *rapid.T) decimal.Decimal {
		units := rapid.Int64Range(1, 1_000_000_000).Draw(t, label+"Units")
		exp := rapid.Int32Range(-8, 2).Draw(t, label+"Exp")
		return decimal.New(units, exp)
	})
}

func genNonPositiveDecimal(label string) *rapid.Generator[decimal.Decimal] {
	return rapid.Custom(func(t *rapid.T) decimal.Decimal {
		units := rapid.Int64Range(-1_000_000_000, 0).Draw(t, label+"Units")
		exp := rapid.Int32Range(-8, 2).Draw(t, label+"Exp")
		return decimal.New(units, exp)
	})
}

func genSymbol() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Z]{3,6}USDT`)
}

func genOrderType() *rapid.Generator[OrderType] {
	return rapid.SampledFrom([]OrderType{OrderTypeMarket, OrderTypeLimit, OrderTypeStopLimit})
}

func genSide() *rapid.Generator[OrderSide] {
	return rapid.SampledFrom([]OrderSide{OrderSideBuy, OrderSideSell})
}

func TestProperty_ParamsCarryExactlyMandatedKeys(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		typ := genOrderType().Draw(t, "type")
		req := OrderRequest{
			Symbol:    genSymbol().Draw(t, "symbol"),
			Side:      genSide().Draw(t, "side"),
			Type:      typ,
			Quantity:  genPositiveDecimal("qty").Draw(t, "qty"),
			Price:     decimal.NewNullDecimal(genPositiveDecimal("price").Draw(t, "price")),
			StopPrice: decimal.NewNullDecimal(genPositiveDecimal("stop").Draw(t, "stop")),
		}

		order, err := NewOrder(req)
		if err != nil {
			t.Fatalf("NewOrder(%+v) returned error: %v", req, err)
		}

		values := order.Params().Values()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		want := expectedKeys[typ]
		if len(keys) != len(want) {
			t.Fatalf("%s keys = %v, want %v", typ, keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Fatalf("%s keys = %v, want %v", typ, keys, want)
			}
		}

		if values.Get("symbol") != req.Symbol || values.Get("side") != string(req.Side) {
			t.Fatalf("symbol/side not passed through: %v", values)
		}
		if values.Get("quantity") != req.Quantity.String() {
			t.Fatalf("quantity = %q, want %q", values.Get("quantity"), req.Quantity.String())
		}
	})
}

func TestProperty_NonPositiveQuantityRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		req := OrderRequest{
			Symbol:    genSymbol().Draw(t, "symbol"),
			Side:      genSide().Draw(t, "side"),
			Type:      genOrderType().Draw(t, "type"),
			Quantity:  genNonPositiveDecimal("qty").Draw(t, "qty"),
			Price:     decimal.NewNullDecimal(genPositiveDecimal("price").Draw(t, "price")),
			StopPrice: decimal.NewNullDecimal(genPositiveDecimal("stop").Draw(t, "stop")),
		}

		_, err := NewOrder(req)
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("NewOrder(qty=%s) error = %v, want *ValidationError", req.Quantity, err)
		}
	})
}

func TestProperty_NonPositivePricesRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		typ := rapid.SampledFrom([]OrderType{OrderTypeLimit, OrderTypeStopLimit}).Draw(t, "type")
		price := decimal.NewNullDecimal(genPositiveDecimal("price").Draw(t, "price"))
		stop := decimal.NewNullDecimal(genPositiveDecimal("stop").Draw(t, "stop"))

		badStop := typ == OrderTypeStopLimit && rapid.Bool().Draw(t, "badStop")
		if badStop {
			stop = decimal.NewNullDecimal(genNonPositiveDecimal("stop").Draw(t, "badStopValue"))
		} else {
			price = decimal.NewNullDecimal(genNonPositiveDecimal("price").Draw(t, "badPriceValue"))
		}

		_, err := NewOrder(OrderRequest{
			Symbol:    "BTCUSDT",
			Side:      genSide().Draw(t, "side"),
			Type:      typ,
			Quantity:  decimal.RequireFromString("0.01"),
			Price:     price,
			StopPrice: stop,
		})
		if !IsInputError(err) {
			t.Fatalf("NewOrder(%s, price=%s, stop=%s) error = %v, want input error", typ, price.Decimal, stop.Decimal, err)
		}
	})
}
