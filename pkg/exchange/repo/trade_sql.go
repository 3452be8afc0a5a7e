package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joripage/matchx/pkg/exchange/model"
)

type TradeSQLRepo struct {
	db *gorm.DB
}

func NewTradeSQLRepo(db *gorm.DB) *TradeSQLRepo {
	return &TradeSQLRepo{
		db: db,
	}
}

func (s *TradeSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (r *TradeSQLRepo) Create(ctx context.Context, record *model.TradeEvent) (*model.TradeEvent, error) {
	return record, r.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error
}

// BulkCreate inserts a batch, skipping trade IDs already stored. Kafka
// delivers at least once, so replays of an already persisted batch must be a
// no-op.
func (r *TradeSQLRepo) BulkCreate(ctx context.Context, records []*model.TradeEvent) ([]*model.TradeEvent, error) {
	if len(records) == 0 {
		return records, nil
	}
	return records, r.dbWithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(records).Error
}

func (r *TradeSQLRepo) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*model.TradeEvent, error) {
	var records []*model.TradeEvent
	err := r.dbWithContext(ctx).
		Where("symbol = ?", symbol).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
