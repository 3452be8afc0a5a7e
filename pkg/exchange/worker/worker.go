package worker

import (
	"context"
	"encoding/json"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/joripage/matchx/pkg/exchange/model"
	"github.com/joripage/matchx/pkg/exchange/repo"
	"github.com/joripage/matchx/pkg/kafkawrapper"
)

// Worker consumes trade events from Kafka and persists them. Inserts skip
// duplicate trade IDs, so redelivered batches are safe.
type Worker struct {
	trade repo.ITrade
}

func NewWorker(repo repo.IRepo) *Worker {
	return &Worker{
		trade: repo.Trade(),
	}
}

func (w *Worker) StartConsumer(ctx context.Context, cg *kafkawrapper.ConsumerGroup) error {
	return cg.Run(ctx, w.handleBatch)
}

func (w *Worker) handleBatch(ctx context.Context, msgs []kafkawrapper.Message) error {
	events := make([]*model.TradeEvent, 0, len(msgs))
	for _, msg := range msgs {
		var ev model.TradeEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			zap.S().Errorf("unmarshal trade at offset %d: %v", msg.Offset, err)
			continue
		}
		events = append(events, &ev)
	}

	_, err := w.trade.BulkCreate(ctx, events)
	return err
}
