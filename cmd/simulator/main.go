package main

import (
	"context"
	"flag"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/matchx/pkg/exchange"
	"github.com/joripage/matchx/pkg/logging"
	"github.com/joripage/matchx/pkg/matching"
)

const (
	midPrice    = 150.0
	band        = 5.0
	minQty      = 1
	maxQty      = 100
	reportEvery = 10_000
)

var symbols = []string{"BTC-USD", "ETH-USD", "SOL-USD"}

func randomRequest(r *rand.Rand) *exchange.SubmitOrderRequest {
	side := "BUY"
	if r.Intn(2) == 0 {
		side = "SELL"
	}
	// random walk around the mid so both sides keep crossing
	price := midPrice + (r.Float64()*2-1)*band
	qty := r.Intn(maxQty-minQty+1) + minQty

	return &exchange.SubmitOrderRequest{
		Symbol:   symbols[r.Intn(len(symbols))],
		Side:     side,
		Price:    decimal.NewFromFloat(price).Round(2),
		Quantity: decimal.NewFromInt(int64(qty)),
	}
}

func main() {
	var numOrders int
	flag.IntVar(&numOrders, "orders", 1_000_000, "number of orders to submit")
	flag.Parse()
	logging.Init("info")

	var totalTrades, totalQty int64
	svc := exchange.NewService(nil, nil, nil)
	svc.AddTradeListener(func(trade *matching.Trade) {
		n := atomic.AddInt64(&totalTrades, 1)
		atomic.AddInt64(&totalQty, trade.Quantity.IntPart())
		if n <= 5 {
			zap.S().Infof("match: BUY[%s] <=> SELL[%s] @ %s qty %s",
				trade.BuyOrderID, trade.SellOrderID, trade.Price, trade.Quantity)
		}
	})

	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	start := time.Now()
	for i := 0; i < numOrders; i++ {
		if _, err := svc.SubmitOrder(ctx, randomRequest(r)); err != nil {
			zap.S().Errorf("submit err=%v", err)
		}
		if (i+1)%reportEvery == 0 {
			zap.S().Infof("submitted %d orders, trades so far %d", i+1, atomic.LoadInt64(&totalTrades))
		}
	}
	elapsed := time.Since(start)

	for _, symbol := range symbols {
		snap := svc.OrderBookSnapshot(symbol)
		zap.S().Infof("%s final depth: %d bid levels, %d ask levels", symbol, len(snap.Bids), len(snap.Asks))
	}
	svc.Close()

	zap.S().Infof("submitted %d orders in %s (%.0f orders/s)",
		numOrders, elapsed, float64(numOrders)/elapsed.Seconds())
	zap.S().Infof("total trades %d, total matched qty %d", totalTrades, totalQty)
}
