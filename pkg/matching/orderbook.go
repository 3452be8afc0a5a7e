package matching

import (
	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// OrderBook holds the resting orders of one symbol. It does no locking of its
// own: the engine serializes every call through the symbol's context, which
// is the only goroutine allowed to touch the ladders and the id index.
type OrderBook struct {
	symbol string
	bids   *ladder
	asks   *ladder
	orders map[string]*Order
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newLadder(SideBuy),
		asks:   newLadder(SideSell),
		orders: make(map[string]*Order),
	}
}

func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

func (ob *OrderBook) side(s Side) *ladder {
	if s == SideBuy {
		return ob.bids
	}
	return ob.asks
}

// add rests an open order at the tail of its price level and indexes it for
// lookup and cancellation.
func (ob *OrderBook) add(o *Order) {
	ob.orders[o.ID] = o
	ob.side(o.Side).push(o)
}

// match crosses incoming against the opposite ladder under price-time
// priority and returns the fills in generation order. Whatever of the order
// is still open afterwards rests at the tail of its own price level.
func (ob *OrderBook) match(incoming *Order) []*Trade {
	trades := []*Trade{}

	opposite := ob.asks
	if incoming.Side == SideSell {
		opposite = ob.bids
	}

	for incoming.IsOpen() && !opposite.empty() {
		bestPrice, level, _ := opposite.best()

		crosses := incoming.Price.GreaterThanOrEqual(bestPrice)
		if incoming.Side == SideSell {
			crosses = incoming.Price.LessThanOrEqual(bestPrice)
		}
		if !crosses {
			break
		}

		// residual empty level
		if level.Len() == 0 {
			opposite.drop(bestPrice)
			continue
		}

		resting := level.Front()
		if !resting.IsOpen() {
			// cancelled but not yet evicted; discard the head only
			level.PopFront()
			continue
		}

		qty := decimal.Min(incoming.Remaining, resting.Remaining)

		buyID, sellID := incoming.ID, resting.ID
		if incoming.Side == SideSell {
			buyID, sellID = resting.ID, incoming.ID
		}
		trades = append(trades, newTrade(ob.symbol, resting.Price, qty, buyID, sellID))

		incoming.Remaining = incoming.Remaining.Sub(qty)
		resting.Remaining = resting.Remaining.Sub(qty)

		if resting.IsFilled() {
			resting.Status = StatusFilled
			level.PopFront()
			if level.Len() == 0 {
				opposite.drop(bestPrice)
			}
		} else {
			resting.Status = StatusPartiallyFilled
		}

		if incoming.IsFilled() {
			incoming.Status = StatusFilled
		} else {
			incoming.Status = StatusPartiallyFilled
		}
	}

	if incoming.IsOpen() {
		ob.add(incoming)
	}

	return trades
}

// cancel marks the order CANCELLED and removes it from its price level.
// Unknown ids and already-terminal orders report false, never an error.
func (ob *OrderBook) cancel(orderID string) bool {
	o, ok := ob.orders[orderID]
	if !ok || !o.IsOpen() {
		return false
	}

	o.Status = StatusCancelled
	ob.side(o.Side).remove(o)

	return true
}

func (ob *OrderBook) order(orderID string) (*Order, bool) {
	o, ok := ob.orders[orderID]
	return o, ok
}

// snapshot aggregates the remaining quantity of open orders per price level,
// best-first on each side, omitting levels that sum to zero.
func (ob *OrderBook) snapshot() *Snapshot {
	snap := emptySnapshot(ob.symbol)
	snap.Bids = collectLevels(ob.bids)
	snap.Asks = collectLevels(ob.asks)
	return snap
}

func collectLevels(l *ladder) []Level {
	out := []Level{}
	l.each(func(price decimal.Decimal, q *deque.Deque[*Order]) {
		total := decimal.Zero
		for i := 0; i < q.Len(); i++ {
			if o := q.At(i); o.IsOpen() {
				total = total.Add(o.Remaining)
			}
		}
		if total.IsPositive() {
			out = append(out, Level{Price: price, Quantity: total})
		}
	})
	return out
}
