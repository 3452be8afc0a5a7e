package matching

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEngineSubmitAndMatch(t *testing.T) {
	e := NewEngine()
	ctx := waitCtx(t)

	buy := limitOrder("BTC-USD", SideBuy, "100", "10")
	trades, err := e.SubmitOrder(buy).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 0 {
		t.Fatalf("expected no trades, got %d", len(trades))
	}

	sell := limitOrder("BTC-USD", SideSell, "100", "10")
	trades, err = e.SubmitOrder(sell).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 || !trades[0].Quantity.Equal(d("10")) {
		t.Fatalf("expected one trade of 10, got %+v", trades)
	}

	snap := e.OrderBookSnapshot("BTC-USD")
	if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Errorf("expected empty book, got %+v", snap)
	}

	e.Close()
}

func TestEngineQueriesDoNotCreateBooks(t *testing.T) {
	e := NewEngine()
	defer e.Close()

	snap := e.OrderBookSnapshot("NEVER-SEEN")
	if snap.Symbol != "NEVER-SEEN" || len(snap.Bids) != 0 || len(snap.Asks) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}
	if _, ok := e.Order("NEVER-SEEN", "some-id"); ok {
		t.Error("expected order lookup to report absence")
	}

	if _, ok := e.contexts.Load("NEVER-SEEN"); ok {
		t.Error("query must not create a symbol context")
	}
}

func TestEngineOrderLookupReturnsCopy(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	ctx := waitCtx(t)

	o := limitOrder("ETH-USD", SideBuy, "3400", "2")
	if _, err := e.SubmitOrder(o).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	got, ok := e.Order("ETH-USD", o.ID)
	if !ok {
		t.Fatal("expected to find resting order")
	}
	if got.ID != o.ID || got.Status != StatusOpen || !got.Remaining.Equal(d("2")) {
		t.Errorf("unexpected order state: %+v", got)
	}

	// mutating the copy must not affect the book
	got.Remaining = d("0")
	again, _ := e.Order("ETH-USD", o.ID)
	if !again.Remaining.Equal(d("2")) {
		t.Error("lookup must return a copy, not engine-owned state")
	}
}

func TestEngineCancel(t *testing.T) {
	e := NewEngine()
	defer e.Close()
	ctx := waitCtx(t)

	o := limitOrder("SOL-USD", SideBuy, "178", "5")
	if _, err := e.SubmitOrder(o).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	ok, err := e.CancelOrder("SOL-USD", o.ID).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected cancel to succeed")
	}

	ok, _ = e.CancelOrder("SOL-USD", o.ID).Wait(ctx)
	if ok {
		t.Error("expected repeat cancel to fail")
	}

	ok, _ = e.CancelOrder("SOL-USD", "unknown-id").Wait(ctx)
	if ok {
		t.Error("expected cancel of unknown id to fail")
	}
}

func TestEngineTradeCallbackOrderAndErrors(t *testing.T) {
	var mu sync.Mutex
	var seen []*Trade

	e := NewEngine(WithTradeCallback(func(tr *Trade) error {
		mu.Lock()
		seen = append(seen, tr)
		mu.Unlock()
		// a failing consumer must not stop delivery
		return errors.New("downstream unavailable")
	}))
	ctx := waitCtx(t)

	e.SubmitOrder(limitOrder("X", SideBuy, "100", "3"))
	e.SubmitOrder(limitOrder("X", SideBuy, "100", "4"))
	trades, err := e.SubmitOrder(limitOrder("X", SideSell, "100", "7")).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}

	e.Close()

	if len(seen) != 2 {
		t.Fatalf("expected 2 callback invocations, got %d", len(seen))
	}
	for i, tr := range trades {
		if seen[i].ID != tr.ID {
			t.Errorf("callback order differs from generation order at %d", i)
		}
	}
}

func TestEngineBookUpdateCallback(t *testing.T) {
	var mu sync.Mutex
	var snaps []*Snapshot

	e := NewEngine(WithBookUpdateCallback(func(s *Snapshot) error {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
		return nil
	}))
	ctx := waitCtx(t)

	// no trades, no update
	e.SubmitOrder(limitOrder("X", SideBuy, "101", "5")).Wait(ctx)
	// one trade, one update
	e.SubmitOrder(limitOrder("X", SideSell, "100", "8")).Wait(ctx)

	e.Close()

	if len(snaps) != 1 {
		t.Fatalf("expected 1 book update, got %d", len(snaps))
	}
	snap := snaps[0]
	if len(snap.Asks) != 1 || !snap.Asks[0].Price.Equal(d("100")) || !snap.Asks[0].Quantity.Equal(d("3")) {
		t.Errorf("expected asks [(100, 3)] after the match, got %+v", snap.Asks)
	}
}

func TestEngineCallbackPanicDoesNotKillSymbol(t *testing.T) {
	e := NewEngine(WithTradeCallback(func(tr *Trade) error {
		panic("boom")
	}))
	ctx := waitCtx(t)

	e.SubmitOrder(limitOrder("X", SideBuy, "100", "1")).Wait(ctx)
	if _, err := e.SubmitOrder(limitOrder("X", SideSell, "100", "1")).Wait(ctx); err != nil {
		t.Fatal(err)
	}

	// the symbol context must still serve requests
	e.SubmitOrder(limitOrder("X", SideBuy, "100", "1")).Wait(ctx)
	trades, err := e.SubmitOrder(limitOrder("X", SideSell, "100", "1")).Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade after panic, got %d", len(trades))
	}

	e.Close()
}

func TestEngineConcurrentSymbols(t *testing.T) {
	var mu sync.Mutex
	perSymbol := map[string]int{}

	e := NewEngine(WithTradeCallback(func(tr *Trade) error {
		mu.Lock()
		perSymbol[tr.Symbol]++
		mu.Unlock()
		return nil
	}))

	const symbols = 8
	const pairs = 200

	var wg sync.WaitGroup
	for s := 0; s < symbols; s++ {
		symbol := fmt.Sprintf("SYM-%d", s)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < pairs; i++ {
				e.SubmitOrder(limitOrder(symbol, SideBuy, "100", "1"))
				e.SubmitOrder(limitOrder(symbol, SideSell, "100", "1"))
			}
		}()
	}
	wg.Wait()

	// drain each symbol via its serialized context
	for s := 0; s < symbols; s++ {
		symbol := fmt.Sprintf("SYM-%d", s)
		snap := e.OrderBookSnapshot(symbol)
		if len(snap.Bids) != 0 || len(snap.Asks) != 0 {
			t.Errorf("%s: expected fully crossed book, got %+v", symbol, snap)
		}
	}

	e.Close()

	for s := 0; s < symbols; s++ {
		symbol := fmt.Sprintf("SYM-%d", s)
		if perSymbol[symbol] != pairs {
			t.Errorf("%s: expected %d trades, got %d", symbol, pairs, perSymbol[symbol])
		}
	}
}

func TestEngineConcurrentFirstAccessCreatesOneContext(t *testing.T) {
	e := NewEngine()
	ctx := waitCtx(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.SubmitOrder(limitOrder("RACE", SideBuy, "100", "1")).Wait(ctx)
		}()
	}
	wg.Wait()

	snap := e.OrderBookSnapshot("RACE")
	if len(snap.Bids) != 1 || !snap.Bids[0].Quantity.Equal(d("32")) {
		t.Errorf("expected a single book holding all 32 orders, got %+v", snap)
	}

	e.Close()
}
