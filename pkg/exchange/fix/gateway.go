package fixgateway

import (
	"context"
	"sync"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/quickfix"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/matchx/pkg/exchange"
	"github.com/joripage/matchx/pkg/matching"
)

// FixGateway accepts FIX 4.4 order flow and reports back with execution
// reports. It keeps its own per-order fill totals, fed by the service's trade
// stream, so reporting never has to query the engine from a callback.
type FixGateway struct {
	cfg      *FixGatewayConfig
	app      *Application
	acceptor *quickfix.Acceptor
	svc      *exchange.Service

	ordersByID      sync.Map // engine orderID -> *orderState
	ordersByClOrdID sync.Map // client ClOrdID -> *orderState
}

type FixGatewayConfig struct {
	ConfigFilepath string
}

// orderState is the gateway's view of one order. cumQty and notional advance
// only under mu, on the trade delivery goroutine or a cancel.
type orderState struct {
	mu sync.Mutex

	sessionID quickfix.SessionID
	clOrdID   string
	account   string
	orderID   string
	symbol    string
	side      enum.Side
	price     decimal.Decimal
	quantity  decimal.Decimal

	cumQty   decimal.Decimal
	notional decimal.Decimal
	status   enum.OrdStatus
}

var sideMapping = map[enum.Side]matching.Side{
	enum.Side_BUY:  matching.SideBuy,
	enum.Side_SELL: matching.SideSell,
}

func NewFixGateway(cfg *FixGatewayConfig, svc *exchange.Service) *FixGateway {
	return &FixGateway{
		cfg: cfg,
		svc: svc,
	}
}

func (s *FixGateway) Start(ctx context.Context) error {
	s.svc.AddTradeListener(s.onTrade)

	app, acceptor, err := startApp(s.cfg.ConfigFilepath, s)
	if err != nil {
		zap.S().Errorf("start fix acceptor err=%v", err)
		return err
	}
	s.app = app
	s.acceptor = acceptor
	return nil
}

func (s *FixGateway) Stop() {
	if s.acceptor != nil {
		s.acceptor.Stop()
	}
}

func (s *FixGateway) AddOrder(ctx context.Context, nos *NewOrderSingle) {
	if nos.OrdType != enum.OrdType_LIMIT {
		s.sendOrderReject(nos, "only limit orders supported")
		return
	}

	order, err := s.svc.PrepareOrder(&exchange.SubmitOrderRequest{
		Symbol:   nos.Symbol,
		Side:     string(sideMapping[nos.Side]),
		Price:    nos.Price,
		Quantity: nos.OrderQty,
	})
	if err != nil {
		s.sendOrderReject(nos, err.Error())
		return
	}

	state := &orderState{
		sessionID: nos.SessionID,
		clOrdID:   nos.ClOrdID,
		account:   nos.Account,
		orderID:   order.ID,
		symbol:    nos.Symbol,
		side:      nos.Side,
		price:     nos.Price,
		quantity:  nos.OrderQty,
		status:    enum.OrdStatus_NEW,
	}

	// fills can arrive the instant the order is submitted, so both lookups
	// must exist before Submit
	s.ordersByID.Store(order.ID, state)
	s.ordersByClOrdID.Store(nos.ClOrdID, state)

	s.send(newExecutionReport(state, enum.ExecType_NEW, enum.OrdStatus_NEW, decimal.Zero, decimal.Zero, ""), state.sessionID)

	if _, err := s.svc.Submit(ctx, order); err != nil {
		zap.S().Errorf("submit order clOrdID=%s err=%v", nos.ClOrdID, err)
	}
}

func (s *FixGateway) CancelOrder(ctx context.Context, req *OrderCancelRequest) {
	v, ok := s.ordersByClOrdID.Load(req.OrigClOrdID)
	if !ok {
		s.sendCancelReject(req, "NONE", enum.OrdStatus_REJECTED)
		return
	}
	state := v.(*orderState)

	cancelled, err := s.svc.CancelOrder(ctx, state.symbol, state.orderID)
	if err != nil || !cancelled {
		s.sendCancelReject(req, state.orderID, state.currentStatus())
		return
	}

	state.mu.Lock()
	state.status = enum.OrdStatus_CANCELED
	msg := newExecutionReport(state, enum.ExecType_CANCELED, enum.OrdStatus_CANCELED, decimal.Zero, decimal.Zero, "")
	msg.SetOrigClOrdID(req.OrigClOrdID)
	msg.SetClOrdID(req.ClOrdID)
	sessionID := state.sessionID
	state.mu.Unlock()

	s.send(msg, sessionID)
}

// onTrade runs on the engine's delivery goroutine, once per trade, in match
// order per symbol. Orders the gateway never saw (simulator flow) simply have
// no state and are skipped.
func (s *FixGateway) onTrade(trade *matching.Trade) {
	s.reportFill(trade.BuyOrderID, trade)
	s.reportFill(trade.SellOrderID, trade)
}

func (s *FixGateway) reportFill(orderID string, trade *matching.Trade) {
	v, ok := s.ordersByID.Load(orderID)
	if !ok {
		return
	}
	state := v.(*orderState)

	state.mu.Lock()
	state.cumQty = state.cumQty.Add(trade.Quantity)
	state.notional = state.notional.Add(trade.Quantity.Mul(trade.Price))
	if state.quantity.Sub(state.cumQty).IsPositive() {
		state.status = enum.OrdStatus_PARTIALLY_FILLED
	} else {
		state.status = enum.OrdStatus_FILLED
	}
	msg := newExecutionReport(state, enum.ExecType_TRADE, state.status, trade.Quantity, trade.Price, "")
	sessionID := state.sessionID
	state.mu.Unlock()

	s.send(msg, sessionID)
}

func (s *FixGateway) sendOrderReject(nos *NewOrderSingle, reason string) {
	state := &orderState{
		sessionID: nos.SessionID,
		clOrdID:   nos.ClOrdID,
		account:   nos.Account,
		orderID:   "NONE",
		symbol:    nos.Symbol,
		side:      nos.Side,
		price:     nos.Price,
		quantity:  nos.OrderQty,
		status:    enum.OrdStatus_REJECTED,
	}
	s.send(newExecutionReport(state, enum.ExecType_REJECTED, enum.OrdStatus_REJECTED, decimal.Zero, decimal.Zero, reason), nos.SessionID)
}

func (s *FixGateway) sendCancelReject(req *OrderCancelRequest, orderID string, status enum.OrdStatus) {
	s.send(newOrderCancelReject(req, orderID, status), req.SessionID)
}

func (s *FixGateway) send(msg quickfix.Messagable, sessionID quickfix.SessionID) {
	if err := quickfix.SendToTarget(msg, sessionID); err != nil {
		zap.S().Errorf("send to %s err=%v", sessionID, err)
	}
}

func (s *orderState) currentStatus() enum.OrdStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}
