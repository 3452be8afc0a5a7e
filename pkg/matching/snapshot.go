package matching

import "github.com/shopspring/decimal"

// Level is the aggregated open quantity resting at one price.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Snapshot is a point-in-time view of one book: bids descending by price,
// asks ascending, levels with no open quantity omitted. It is built on demand
// and never stored.
type Snapshot struct {
	Symbol string  `json:"symbol"`
	Bids   []Level `json:"bids"`
	Asks   []Level `json:"asks"`
}

func emptySnapshot(symbol string) *Snapshot {
	return &Snapshot{Symbol: symbol, Bids: []Level{}, Asks: []Level{}}
}
