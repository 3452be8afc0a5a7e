package matching

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func limitOrder(symbol string, side Side, price, qty string) *Order {
	return NewOrder(symbol, side, d(price), d(qty))
}

func TestRestingOrderNoTrades(t *testing.T) {
	ob := NewOrderBook("X")

	buy := limitOrder("X", SideBuy, "100", "10")
	trades := ob.match(buy)
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}
	if buy.Status != StatusOpen {
		t.Errorf("expected OPEN, got %s", buy.Status)
	}

	snap := ob.snapshot()
	if len(snap.Bids) != 1 || len(snap.Asks) != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !snap.Bids[0].Price.Equal(d("100")) || !snap.Bids[0].Quantity.Equal(d("10")) {
		t.Errorf("expected bid (100, 10), got (%s, %s)", snap.Bids[0].Price, snap.Bids[0].Quantity)
	}
}

func TestFullFillAtSamePrice(t *testing.T) {
	ob := NewOrderBook("X")

	buy := limitOrder("X", SideBuy, "100", "10")
	ob.match(buy)

	sell := limitOrder("X", SideSell, "100", "10")
	trades := ob.match(sell)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if !tr.Price.Equal(d("100")) || !tr.Quantity.Equal(d("10")) {
		t.Errorf("expected trade 10@100, got %s@%s", tr.Quantity, tr.Price)
	}
	if tr.BuyOrderID != buy.ID || tr.SellOrderID != sell.ID {
		t.Errorf("trade order ids wrong: %+v", tr)
	}
	if buy.Status != StatusFilled || sell.Status != StatusFilled {
		t.Errorf("expected both FILLED, got %s / %s", buy.Status, sell.Status)
	}

	snap := ob.snapshot()
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Errorf("expected empty book, got %+v", snap)
	}
}

func TestPartialFillAtMakerPrice(t *testing.T) {
	ob := NewOrderBook("X")

	buy := limitOrder("X", SideBuy, "101", "5")
	ob.match(buy)

	// sell crosses; trade executes at the resting order's price 101
	sell := limitOrder("X", SideSell, "100", "8")
	trades := ob.match(sell)

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if !trades[0].Price.Equal(d("101")) || !trades[0].Quantity.Equal(d("5")) {
		t.Errorf("expected trade 5@101, got %s@%s", trades[0].Quantity, trades[0].Price)
	}
	if buy.Status != StatusFilled {
		t.Errorf("expected buy FILLED, got %s", buy.Status)
	}
	if sell.Status != StatusPartiallyFilled || !sell.Remaining.Equal(d("3")) {
		t.Errorf("expected sell PARTIALLY_FILLED remaining 3, got %s remaining %s", sell.Status, sell.Remaining)
	}

	snap := ob.snapshot()
	if len(snap.Asks) != 1 || !snap.Asks[0].Price.Equal(d("100")) || !snap.Asks[0].Quantity.Equal(d("3")) {
		t.Errorf("expected asks [(100, 3)], got %+v", snap.Asks)
	}
}

func TestFIFOTieBreakAtSamePrice(t *testing.T) {
	ob := NewOrderBook("X")

	first := limitOrder("X", SideBuy, "100", "3")
	second := limitOrder("X", SideBuy, "100", "4")
	ob.match(first)
	ob.match(second)

	sell := limitOrder("X", SideSell, "100", "5")
	trades := ob.match(sell)

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].BuyOrderID != first.ID || !trades[0].Quantity.Equal(d("3")) {
		t.Errorf("first trade should fill the older order for 3, got %+v", trades[0])
	}
	if trades[1].BuyOrderID != second.ID || !trades[1].Quantity.Equal(d("2")) {
		t.Errorf("second trade should fill the newer order for 2, got %+v", trades[1])
	}
	if first.Status != StatusFilled {
		t.Errorf("expected first FILLED, got %s", first.Status)
	}
	if second.Status != StatusPartiallyFilled || !second.Remaining.Equal(d("2")) {
		t.Errorf("expected second PARTIALLY_FILLED remaining 2, got %s remaining %s", second.Status, second.Remaining)
	}
	if sell.Status != StatusFilled {
		t.Errorf("expected sell FILLED, got %s", sell.Status)
	}
}

func TestMultiLevelSweep(t *testing.T) {
	ob := NewOrderBook("X")

	for i, price := range []string{"101", "102", "103"} {
		o := limitOrder("X", SideSell, price, "5")
		if trades := ob.match(o); len(trades) != 0 {
			t.Fatalf("unexpected trades on level %d", i)
		}
	}

	buy := limitOrder("X", SideBuy, "105", "12")
	trades := ob.match(buy)

	if len(trades) != 3 {
		t.Fatalf("expected 3 trades, got %d", len(trades))
	}
	for i, want := range []string{"101", "102", "103"} {
		if !trades[i].Price.Equal(d(want)) {
			t.Errorf("trade %d: expected price %s, got %s", i, want, trades[i].Price)
		}
	}
	if !trades[2].Quantity.Equal(d("2")) {
		t.Errorf("expected last trade qty 2, got %s", trades[2].Quantity)
	}
	if buy.Status != StatusFilled {
		t.Errorf("expected buy FILLED, got %s", buy.Status)
	}

	snap := ob.snapshot()
	if len(snap.Asks) != 1 || !snap.Asks[0].Price.Equal(d("103")) || !snap.Asks[0].Quantity.Equal(d("3")) {
		t.Errorf("expected asks [(103, 3)], got %+v", snap.Asks)
	}
}

func TestCancelRemovesRestingQuantity(t *testing.T) {
	ob := NewOrderBook("X")

	o := limitOrder("X", SideBuy, "100", "10")
	ob.match(o)

	if !ob.cancel(o.ID) {
		t.Fatal("expected cancel to succeed")
	}
	if o.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", o.Status)
	}

	snap := ob.snapshot()
	if len(snap.Bids) != 0 {
		t.Errorf("expected empty bids after cancel, got %+v", snap.Bids)
	}

	// terminal orders cannot be cancelled again
	if ob.cancel(o.ID) {
		t.Error("expected second cancel to fail")
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	ob := NewOrderBook("X")
	ob.match(limitOrder("X", SideBuy, "100", "10"))

	before := ob.snapshot()
	if ob.cancel("no-such-id") {
		t.Fatal("expected cancel of unknown id to fail")
	}
	after := ob.snapshot()

	if len(before.Bids) != len(after.Bids) {
		t.Error("cancel of unknown id must not alter the book")
	}
}

func TestCancelFilledOrderFails(t *testing.T) {
	ob := NewOrderBook("X")

	buy := limitOrder("X", SideBuy, "100", "10")
	ob.match(buy)
	ob.match(limitOrder("X", SideSell, "100", "10"))

	if buy.Status != StatusFilled {
		t.Fatalf("expected FILLED, got %s", buy.Status)
	}
	if ob.cancel(buy.ID) {
		t.Error("expected cancel of filled order to fail")
	}
}

func TestCancelMiddleOfLevelPreservesQueueOrder(t *testing.T) {
	ob := NewOrderBook("X")

	a := limitOrder("X", SideSell, "100", "1")
	b := limitOrder("X", SideSell, "100", "2")
	c := limitOrder("X", SideSell, "100", "3")
	ob.match(a)
	ob.match(b)
	ob.match(c)

	if !ob.cancel(b.ID) {
		t.Fatal("expected cancel to succeed")
	}

	buy := limitOrder("X", SideBuy, "100", "4")
	trades := ob.match(buy)

	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].SellOrderID != a.ID || trades[1].SellOrderID != c.ID {
		t.Errorf("expected fills against a then c, got %+v", trades)
	}
}

func TestSnapshotOrderingAndAggregation(t *testing.T) {
	ob := NewOrderBook("X")

	for _, o := range []*Order{
		limitOrder("X", SideBuy, "99", "1"),
		limitOrder("X", SideBuy, "101", "2"),
		limitOrder("X", SideBuy, "100", "3"),
		limitOrder("X", SideBuy, "100", "4"),
		limitOrder("X", SideSell, "102", "5"),
		limitOrder("X", SideSell, "104", "6"),
		limitOrder("X", SideSell, "103", "7"),
	} {
		ob.match(o)
	}

	snap := ob.snapshot()

	wantBids := []struct{ price, qty string }{{"101", "2"}, {"100", "7"}, {"99", "1"}}
	if len(snap.Bids) != len(wantBids) {
		t.Fatalf("expected %d bid levels, got %d", len(wantBids), len(snap.Bids))
	}
	for i, w := range wantBids {
		if !snap.Bids[i].Price.Equal(d(w.price)) || !snap.Bids[i].Quantity.Equal(d(w.qty)) {
			t.Errorf("bid %d: expected (%s, %s), got (%s, %s)",
				i, w.price, w.qty, snap.Bids[i].Price, snap.Bids[i].Quantity)
		}
	}

	wantAsks := []struct{ price, qty string }{{"102", "5"}, {"103", "7"}, {"104", "6"}}
	for i, w := range wantAsks {
		if !snap.Asks[i].Price.Equal(d(w.price)) || !snap.Asks[i].Quantity.Equal(d(w.qty)) {
			t.Errorf("ask %d: expected (%s, %s), got (%s, %s)",
				i, w.price, w.qty, snap.Asks[i].Price, snap.Asks[i].Quantity)
		}
	}
}

func TestEquivalentDecimalPricesShareOneLevel(t *testing.T) {
	ob := NewOrderBook("X")

	// 100, 100.0 and 100.00 are the same price level
	ob.match(NewOrder("X", SideBuy, d("100"), d("1")))
	ob.match(NewOrder("X", SideBuy, d("100.0"), d("2")))
	ob.match(NewOrder("X", SideBuy, d("100.00"), d("3")))

	snap := ob.snapshot()
	if len(snap.Bids) != 1 {
		t.Fatalf("expected a single level, got %d", len(snap.Bids))
	}
	if !snap.Bids[0].Quantity.Equal(d("6")) {
		t.Errorf("expected aggregated quantity 6, got %s", snap.Bids[0].Quantity)
	}
}

func TestFilledQuantityAccounting(t *testing.T) {
	ob := NewOrderBook("X")

	buy := limitOrder("X", SideBuy, "100", "10")
	ob.match(buy)

	total := decimal.Zero
	for _, qty := range []string{"4", "5", "1"} {
		trades := ob.match(limitOrder("X", SideSell, "100", qty))
		for _, tr := range trades {
			total = total.Add(tr.Quantity)
		}
	}

	if !total.Equal(buy.Quantity) {
		t.Errorf("sum of trade quantities %s != original quantity %s", total, buy.Quantity)
	}
	if buy.Status != StatusFilled || !buy.Remaining.IsZero() {
		t.Errorf("expected FILLED with zero remaining, got %s remaining %s", buy.Status, buy.Remaining)
	}
}

func BenchmarkOrderBookMatch(b *testing.B) {
	ob := NewOrderBook("X")

	for i := 0; i < 10_000; i++ {
		price := fmt.Sprintf("%d", 100+i%5)
		ob.match(limitOrder("X", SideSell, price, "10"))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ob.match(limitOrder("X", SideBuy, "101", "10"))
	}
}
