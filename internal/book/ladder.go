// Package book arranges the account's own open orders into per-symbol
// price ladders for display.
package book

import (
	"github.com/efreitasn/spotbot/internal/domain"
	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// entry is one open order placed on a ladder side.
type entry struct {
	price     decimal.Decimal
	time      int64
	orderID   int64
	remaining decimal.Decimal
}

// PriceLevel aggregates the open orders resting at one price.
type PriceLevel struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   decimal.Decimal `json:"quantity"`
	OrderCount int             `json:"order_count"`
}

// bidLess orders bids by price descending, then time, then order id.
func bidLess(a, b entry) bool {
	if c := a.price.Cmp(b.price); c != 0 {
		return c > 0
	}
	if a.time != b.time {
		return a.time < b.time
	}
	return a.orderID < b.orderID
}

// askLess orders asks by price ascending, then time, then order id.
func askLess(a, b entry) bool {
	if c := a.price.Cmp(b.price); c != 0 {
		return c < 0
	}
	if a.time != b.time {
		return a.time < b.time
	}
	return a.orderID < b.orderID
}

// Ladder holds one symbol's open orders, bids and asks in separate B-trees.
// A Ladder is built per request and not shared, so it has no lock.
type Ladder struct {
	Symbol string
	bids   *btree.BTreeG[entry]
	asks   *btree.BTreeG[entry]
}

// NewLadder creates an empty ladder for symbol.
func NewLadder(symbol string) *Ladder {
	const degree = 32
	return &Ladder{
		Symbol: symbol,
		bids:   btree.NewG[entry](degree, bidLess),
		asks:   btree.NewG[entry](degree, askLess),
	}
}

// Add places an order on its side. It reports false when the order has no
// usable price or nothing left to fill.
func (l *Ladder) Add(ack domain.OrderAck) bool {
	price, err := decimal.NewFromString(ack.Price)
	if err != nil || !price.IsPositive() {
		return false
	}
	orig, err := decimal.NewFromString(ack.OrigQty)
	if err != nil {
		return false
	}
	executed := decimal.Zero
	if ack.ExecutedQty != "" {
		if executed, err = decimal.NewFromString(ack.ExecutedQty); err != nil {
			return false
		}
	}
	remaining := orig.Sub(executed)
	if !remaining.IsPositive() {
		return false
	}

	e := entry{price: price, time: ack.TransactTime, orderID: ack.OrderID, remaining: remaining}
	switch domain.OrderSide(ack.Side) {
	case domain.OrderSideBuy:
		l.bids.ReplaceOrInsert(e)
	case domain.OrderSideSell:
		l.asks.ReplaceOrInsert(e)
	default:
		return false
	}
	return true
}

// Bids returns up to n levels, best (highest) price first.
func (l *Ladder) Bids(n int) []PriceLevel {
	return topLevels(l.bids, n)
}

// Asks returns up to n levels, best (lowest) price first.
func (l *Ladder) Asks(n int) []PriceLevel {
	return topLevels(l.asks, n)
}

// BidCount returns the number of open buy orders.
func (l *Ladder) BidCount() int {
	return l.bids.Len()
}

// AskCount returns the number of open sell orders.
func (l *Ladder) AskCount() int {
	return l.asks.Len()
}

func topLevels(tree *btree.BTreeG[entry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(e entry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(e.price) {
			levels[len(levels)-1].Quantity = levels[len(levels)-1].Quantity.Add(e.remaining)
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{Price: e.price, Quantity: e.remaining, OrderCount: 1})
		return true
	})
	return levels
}

// BuildLadders groups open orders by symbol. Orders that cannot be placed
// on a ladder are skipped.
func BuildLadders(orders []domain.OrderAck) map[string]*Ladder {
	ladders := make(map[string]*Ladder)
	for _, o := range orders {
		l, ok := ladders[o.Symbol]
		if !ok {
			l = NewLadder(o.Symbol)
		}
		if l.Add(o) && !ok {
			ladders[o.Symbol] = l
		}
	}
	return ladders
}
