package repo

import (
	"context"

	"github.com/joripage/matchx/pkg/exchange/model"
)

type ITrade interface {
	Create(ctx context.Context, record *model.TradeEvent) (*model.TradeEvent, error)
	BulkCreate(ctx context.Context, records []*model.TradeEvent) ([]*model.TradeEvent, error)
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*model.TradeEvent, error)
}
