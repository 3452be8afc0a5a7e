package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/matchx/pkg/matching"
)

// TradeEvent is the wire and storage form of a trade. The same struct goes
// out on Kafka and into the trades table, keyed by the trade ID so replayed
// messages cannot double-insert.
type TradeEvent struct {
	ID          string          `json:"id" gorm:"column:id;primaryKey"`
	Symbol      string          `json:"symbol" gorm:"column:symbol"`
	Price       decimal.Decimal `json:"price" gorm:"column:price;type:numeric(20,8)"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"column:quantity;type:numeric(20,8)"`
	BuyOrderID  string          `json:"buy_order_id" gorm:"column:buy_order_id"`
	SellOrderID string          `json:"sell_order_id" gorm:"column:sell_order_id"`
	CreatedAt   time.Time       `json:"created_at" gorm:"column:created_at"`
}

func (TradeEvent) TableName() string {
	return "trades"
}

func NewTradeEvent(t *matching.Trade) *TradeEvent {
	return &TradeEvent{
		ID:          t.ID,
		Symbol:      t.Symbol,
		Price:       t.Price,
		Quantity:    t.Quantity,
		BuyOrderID:  t.BuyOrderID,
		SellOrderID: t.SellOrderID,
		CreatedAt:   t.CreatedAt,
	}
}
