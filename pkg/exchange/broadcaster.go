package exchange

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joripage/matchx/pkg/matching"
)

const (
	snapshotChannelPrefix = "orderbook."
	snapshotKeyPrefix     = "orderbook:snapshot:"
	snapshotTTL           = 24 * time.Hour
)

// SnapshotBroadcaster fans out book snapshots through Redis: a PUBLISH on
// orderbook.<symbol> for live subscribers and a SET of the latest snapshot so
// late joiners can read current depth without waiting for the next trade.
type SnapshotBroadcaster struct {
	rdb *redis.Client
}

func NewSnapshotBroadcaster(rdb *redis.Client) *SnapshotBroadcaster {
	return &SnapshotBroadcaster{rdb: rdb}
}

func (b *SnapshotBroadcaster) Broadcast(ctx context.Context, snapshot *matching.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	pipe := b.rdb.Pipeline()
	pipe.Publish(ctx, snapshotChannelPrefix+snapshot.Symbol, payload)
	pipe.Set(ctx, snapshotKeyPrefix+snapshot.Symbol, payload, snapshotTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// Latest returns the last stored snapshot for a symbol, or nil when none has
// been written yet.
func (b *SnapshotBroadcaster) Latest(ctx context.Context, symbol string) (*matching.Snapshot, error) {
	payload, err := b.rdb.Get(ctx, snapshotKeyPrefix+symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snapshot matching.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
