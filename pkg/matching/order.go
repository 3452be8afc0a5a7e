package matching

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
)

// Order is a limit order. ID, Symbol, Side, Price, Quantity and CreatedAt are
// fixed at construction; Remaining and Status are mutated only by the match
// loop running on the symbol's context.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Remaining decimal.Decimal
	CreatedAt time.Time
	Status    Status
}

func NewOrder(symbol string, side Side, price, quantity decimal.Decimal) *Order {
	return &Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		CreatedAt: time.Now(),
		Status:    StatusOpen,
	}
}

// IsOpen reports whether the order can still trade or be cancelled.
func (o *Order) IsOpen() bool {
	return o.Status == StatusOpen || o.Status == StatusPartiallyFilled
}

func (o *Order) IsFilled() bool {
	return o.Remaining.IsZero()
}
