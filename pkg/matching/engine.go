package matching

import (
	"sync"

	"go.uber.org/zap"
)

// TradeCallback receives every trade a match produces, one at a time, in
// generation order within a symbol. Errors and panics are logged and the next
// trade delivered; they never reach the match loop.
type TradeCallback func(*Trade) error

// BookUpdateCallback receives the book snapshot taken right after a match
// that produced trades.
type BookUpdateCallback func(*Snapshot) error

const (
	defaultTaskQueueCap     = 1024
	defaultOutboundQueueCap = 1024
)

type Option func(*Engine)

func WithTradeCallback(cb TradeCallback) Option {
	return func(e *Engine) { e.onTrade = cb }
}

func WithBookUpdateCallback(cb BookUpdateCallback) Option {
	return func(e *Engine) { e.onBookUpdate = cb }
}

func WithQueueCapacity(tasks, outbound int) Option {
	return func(e *Engine) {
		e.taskQueueCap = tasks
		e.outboundQueueCap = outbound
	}
}

// Engine routes orders to per-symbol books. Each symbol gets one goroutine
// that applies submissions, cancels and reads strictly in arrival order, so
// the book itself needs no locking; distinct symbols run fully in parallel.
// A second goroutine per symbol drains a bounded outbound queue and invokes
// the callbacks, so a slow downstream consumer backpressures its own symbol
// without ever corrupting matching.
type Engine struct {
	contexts sync.Map // symbol -> *symbolContext

	onTrade      TradeCallback
	onBookUpdate BookUpdateCallback

	taskQueueCap     int
	outboundQueueCap int

	wg sync.WaitGroup
}

// outboundEvent carries exactly one of a trade or a snapshot.
type outboundEvent struct {
	trade    *Trade
	snapshot *Snapshot
}

type symbolContext struct {
	symbol   string
	book     *OrderBook
	tasks    chan func()
	outbound chan outboundEvent
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		taskQueueCap:     defaultTaskQueueCap,
		outboundQueueCap: defaultOutboundQueueCap,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// context returns the symbol's serialized context, creating it on first use.
// Concurrent first accesses race on LoadOrStore; the loser's context is
// discarded before its goroutines start, so exactly one context ever runs per
// symbol.
func (e *Engine) context(symbol string) *symbolContext {
	if v, ok := e.contexts.Load(symbol); ok {
		return v.(*symbolContext)
	}

	sc := &symbolContext{
		symbol:   symbol,
		book:     NewOrderBook(symbol),
		tasks:    make(chan func(), e.taskQueueCap),
		outbound: make(chan outboundEvent, e.outboundQueueCap),
	}
	actual, loaded := e.contexts.LoadOrStore(symbol, sc)
	if loaded {
		return actual.(*symbolContext)
	}

	zap.S().Infof("starting matching context for symbol %s", symbol)
	e.wg.Add(2)
	go e.run(sc)
	go e.deliver(sc)
	return sc
}

func (e *Engine) run(sc *symbolContext) {
	defer e.wg.Done()
	for task := range sc.tasks {
		task()
	}
	close(sc.outbound)
}

func (e *Engine) deliver(sc *symbolContext) {
	defer e.wg.Done()
	for ev := range sc.outbound {
		e.dispatch(ev)
	}
}

func (e *Engine) dispatch(ev outboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Errorf("matching callback panic: %v", r)
		}
	}()

	switch {
	case ev.trade != nil:
		if e.onTrade == nil {
			return
		}
		if err := e.onTrade(ev.trade); err != nil {
			zap.S().Errorf("trade callback failed for trade %s: %v", ev.trade.ID, err)
		}
	case ev.snapshot != nil:
		if e.onBookUpdate == nil {
			return
		}
		if err := e.onBookUpdate(ev.snapshot); err != nil {
			zap.S().Errorf("book update callback failed for symbol %s: %v", ev.snapshot.Symbol, err)
		}
	}
}

// SubmitOrder dispatches a match on the owning symbol's context. Trades are
// queued for delivery in generation order before the future resolves.
func (e *Engine) SubmitOrder(o *Order) *Future[[]*Trade] {
	fut := newFuture[[]*Trade]()
	sc := e.context(o.Symbol)
	sc.tasks <- func() {
		trades := sc.book.match(o)
		for _, t := range trades {
			sc.outbound <- outboundEvent{trade: t}
		}
		if len(trades) > 0 {
			sc.outbound <- outboundEvent{snapshot: sc.book.snapshot()}
		}
		fut.resolve(trades)
	}
	return fut
}

// CancelOrder dispatches a cancel on the owning symbol's context. The future
// resolves false for unknown or already-terminal orders.
func (e *Engine) CancelOrder(symbol, orderID string) *Future[bool] {
	fut := newFuture[bool]()
	sc := e.context(symbol)
	sc.tasks <- func() {
		fut.resolve(sc.book.cancel(orderID))
	}
	return fut
}

// Order returns a copy of the order so callers never alias state the match
// loop may still mutate. A symbol that has never been referenced reports
// absence without creating a book.
func (e *Engine) Order(symbol, orderID string) (Order, bool) {
	v, ok := e.contexts.Load(symbol)
	if !ok {
		return Order{}, false
	}
	sc := v.(*symbolContext)

	type result struct {
		order Order
		found bool
	}
	ch := make(chan result, 1)
	sc.tasks <- func() {
		if o, found := sc.book.order(orderID); found {
			ch <- result{order: *o, found: true}
			return
		}
		ch <- result{}
	}
	r := <-ch
	return r.order, r.found
}

// OrderBookSnapshot reads the book through the symbol's context, so the view
// is never torn by an in-flight match. An unreferenced symbol yields an empty
// snapshot, again without creating a book as a side effect of a read.
func (e *Engine) OrderBookSnapshot(symbol string) *Snapshot {
	v, ok := e.contexts.Load(symbol)
	if !ok {
		return emptySnapshot(symbol)
	}
	sc := v.(*symbolContext)

	ch := make(chan *Snapshot, 1)
	sc.tasks <- func() {
		ch <- sc.book.snapshot()
	}
	return <-ch
}

// Close drains every symbol context, waits for queued trades to be delivered
// and stops the goroutines. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.contexts.Range(func(_, v any) bool {
		close(v.(*symbolContext).tasks)
		return true
	})
	e.wg.Wait()
}
