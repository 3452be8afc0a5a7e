package exchange

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/matchx/pkg/matching"
)

type tradePublisher interface {
	Publish(ctx context.Context, trade *matching.Trade) error
}

type snapshotBroadcaster interface {
	Broadcast(ctx context.Context, snapshot *matching.Snapshot) error
}

// TradeListener observes trades after they leave the matching engine. It runs
// on the symbol's delivery goroutine, so it must not call back into the
// engine.
type TradeListener func(trade *matching.Trade)

type Config struct {
	TaskQueueCapacity     int
	OutboundQueueCapacity int
}

type SubmitOrderRequest struct {
	Symbol   string
	Side     string
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderResult reports what happened to a submission. Filled, Remaining and
// Status are derived from the returned trades, not read back from the book,
// because the resting remainder may keep trading the moment the future
// resolves.
type OrderResult struct {
	OrderID   string
	Symbol    string
	Side      matching.Side
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Filled    decimal.Decimal
	Remaining decimal.Decimal
	Status    matching.Status
	Trades    []*matching.Trade
}

// Service wraps the matching engine with the exchange's side effects: trades
// go to Kafka, book updates go to Redis, and registered listeners (the FIX
// gateway) get every trade for execution reporting.
type Service struct {
	engine      *matching.Engine
	publisher   tradePublisher
	broadcaster snapshotBroadcaster

	mu        sync.RWMutex
	listeners []TradeListener
}

func NewService(cfg *Config, publisher tradePublisher, broadcaster snapshotBroadcaster) *Service {
	s := &Service{
		publisher:   publisher,
		broadcaster: broadcaster,
	}

	opts := []matching.Option{
		matching.WithTradeCallback(s.onTrade),
		matching.WithBookUpdateCallback(s.onBookUpdate),
	}
	if cfg != nil && cfg.TaskQueueCapacity > 0 && cfg.OutboundQueueCapacity > 0 {
		opts = append(opts, matching.WithQueueCapacity(cfg.TaskQueueCapacity, cfg.OutboundQueueCapacity))
	}
	s.engine = matching.NewEngine(opts...)

	return s
}

// AddTradeListener registers a listener for all subsequent trades. Meant for
// wiring at startup, before orders flow.
func (s *Service) AddTradeListener(l TradeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// PrepareOrder validates a request and builds the order without submitting
// it. Callers that need the order ID before any fill can be reported (the FIX
// gateway) prepare first, register the ID, then call Submit.
func (s *Service) PrepareOrder(req *SubmitOrderRequest) (*matching.Order, error) {
	if req.Symbol == "" {
		return nil, errMissingSymbol
	}
	side := matching.Side(req.Side)
	if side != matching.SideBuy && side != matching.SideSell {
		return nil, errInvalidSide
	}
	if !req.Price.IsPositive() {
		return nil, errNonPositivePrice
	}
	if !req.Quantity.IsPositive() {
		return nil, errNonPositiveQty
	}

	return matching.NewOrder(req.Symbol, side, req.Price, req.Quantity), nil
}

// Submit hands a prepared order to the engine and waits for the match to
// complete.
func (s *Service) Submit(ctx context.Context, order *matching.Order) (*OrderResult, error) {
	trades, err := s.engine.SubmitOrder(order).Wait(ctx)
	if err != nil {
		return nil, err
	}

	result := &OrderResult{
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Price:     order.Price,
		Quantity:  order.Quantity,
		Filled:    decimal.Zero,
		Remaining: order.Quantity,
		Status:    matching.StatusOpen,
		Trades:    trades,
	}
	for _, t := range trades {
		result.Filled = result.Filled.Add(t.Quantity)
	}
	result.Remaining = order.Quantity.Sub(result.Filled)
	if result.Remaining.IsZero() {
		result.Status = matching.StatusFilled
	} else if result.Filled.IsPositive() {
		result.Status = matching.StatusPartiallyFilled
	}

	return result, nil
}

func (s *Service) SubmitOrder(ctx context.Context, req *SubmitOrderRequest) (*OrderResult, error) {
	order, err := s.PrepareOrder(req)
	if err != nil {
		return nil, err
	}
	return s.Submit(ctx, order)
}

// CancelOrder reports true when the order was open and is now cancelled.
func (s *Service) CancelOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	if symbol == "" {
		return false, errMissingSymbol
	}
	if orderID == "" {
		return false, errMissingOrderID
	}
	return s.engine.CancelOrder(symbol, orderID).Wait(ctx)
}

func (s *Service) Order(symbol, orderID string) (matching.Order, bool) {
	return s.engine.Order(symbol, orderID)
}

func (s *Service) OrderBookSnapshot(symbol string) *matching.Snapshot {
	return s.engine.OrderBookSnapshot(symbol)
}

// Close drains the engine. Pending trades are still delivered to the
// publisher and listeners before Close returns.
func (s *Service) Close() {
	s.engine.Close()
}

func (s *Service) onTrade(trade *matching.Trade) error {
	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, l := range listeners {
		l(trade)
	}

	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Publish(context.Background(), trade); err != nil {
		zap.S().Errorf("publish trade %s failed: %v", trade.ID, err)
		return err
	}
	return nil
}

func (s *Service) onBookUpdate(snapshot *matching.Snapshot) error {
	if s.broadcaster == nil {
		return nil
	}
	return s.broadcaster.Broadcast(context.Background(), snapshot)
}
