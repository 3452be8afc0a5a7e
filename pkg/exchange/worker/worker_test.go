package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joripage/matchx/pkg/exchange/model"
	"github.com/joripage/matchx/pkg/kafkawrapper"
)

type fakeTradeRepo struct {
	created []*model.TradeEvent
}

func (f *fakeTradeRepo) Create(_ context.Context, record *model.TradeEvent) (*model.TradeEvent, error) {
	f.created = append(f.created, record)
	return record, nil
}

func (f *fakeTradeRepo) BulkCreate(_ context.Context, records []*model.TradeEvent) ([]*model.TradeEvent, error) {
	f.created = append(f.created, records...)
	return records, nil
}

func (f *fakeTradeRepo) FindBySymbol(_ context.Context, _ string, _ int) ([]*model.TradeEvent, error) {
	return nil, nil
}

func TestHandleBatchSkipsPoisonMessages(t *testing.T) {
	repo := &fakeTradeRepo{}
	w := &Worker{trade: repo}

	good := &model.TradeEvent{
		ID:        "T1",
		Symbol:    "BTC-USD",
		Price:     decimal.RequireFromString("100"),
		Quantity:  decimal.RequireFromString("5"),
		CreatedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(good)
	if err != nil {
		t.Fatal(err)
	}

	msgs := []kafkawrapper.Message{
		{Value: payload},
		{Value: []byte("not json")},
	}

	if err := w.handleBatch(context.Background(), msgs); err != nil {
		t.Fatal(err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("got %d inserted trades, want 1", len(repo.created))
	}
	if repo.created[0].ID != "T1" || !repo.created[0].Price.Equal(good.Price) {
		t.Fatalf("unexpected record %+v", repo.created[0])
	}
}
