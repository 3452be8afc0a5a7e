package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade records one fill between a buy order and a sell order. Price is
// always the resting order's limit price. Trades are immutable once created.
type Trade struct {
	ID          string
	Symbol      string
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	BuyOrderID  string
	SellOrderID string
	CreatedAt   time.Time
}

func newTrade(symbol string, price, quantity decimal.Decimal, buyOrderID, sellOrderID string) *Trade {
	return &Trade{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Price:       price,
		Quantity:    quantity,
		BuyOrderID:  buyOrderID,
		SellOrderID: sellOrderID,
		CreatedAt:   time.Now(),
	}
}
