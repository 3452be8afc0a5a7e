package exchange

import (
	"context"

	"github.com/joripage/matchx/pkg/exchange/model"
	"github.com/joripage/matchx/pkg/kafkawrapper"
	"github.com/joripage/matchx/pkg/matching"
)

// TradePublisher pushes every trade onto a Kafka topic. The symbol is the
// message key, so all trades of one symbol land on one partition in match
// order.
type TradePublisher struct {
	producer *kafkawrapper.Producer
	topic    string
}

func NewTradePublisher(producer *kafkawrapper.Producer, topic string) *TradePublisher {
	return &TradePublisher{
		producer: producer,
		topic:    topic,
	}
}

func (p *TradePublisher) Publish(ctx context.Context, trade *matching.Trade) error {
	return p.producer.PublishJSON(ctx, p.topic, trade.Symbol, model.NewTradeEvent(trade))
}

func (p *TradePublisher) Close() error {
	return p.producer.Close()
}
