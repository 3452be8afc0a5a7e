package matching

import (
	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/gammazero/deque"
	"github.com/shopspring/decimal"
)

// ladder is one side of a book: price levels ordered best-first, each level a
// FIFO queue of resting orders. Bids compare descending and asks ascending,
// so the leftmost tree node is always the best price and in-order iteration
// yields quote order.
type ladder struct {
	levels *rbt.Tree
}

func askComparator(a, b interface{}) int {
	return a.(decimal.Decimal).Cmp(b.(decimal.Decimal))
}

func bidComparator(a, b interface{}) int {
	return b.(decimal.Decimal).Cmp(a.(decimal.Decimal))
}

func newLadder(side Side) *ladder {
	if side == SideBuy {
		return &ladder{levels: rbt.NewWith(bidComparator)}
	}
	return &ladder{levels: rbt.NewWith(askComparator)}
}

// push appends o to the tail of its price level, creating the level if absent.
func (l *ladder) push(o *Order) {
	q, ok := l.level(o.Price)
	if !ok {
		q = &deque.Deque[*Order]{}
		l.levels.Put(o.Price, q)
	}
	q.PushBack(o)
}

func (l *ladder) level(price decimal.Decimal) (*deque.Deque[*Order], bool) {
	v, ok := l.levels.Get(price)
	if !ok {
		return nil, false
	}
	return v.(*deque.Deque[*Order]), true
}

func (l *ladder) best() (decimal.Decimal, *deque.Deque[*Order], bool) {
	node := l.levels.Left()
	if node == nil {
		return decimal.Decimal{}, nil, false
	}
	return node.Key.(decimal.Decimal), node.Value.(*deque.Deque[*Order]), true
}

func (l *ladder) drop(price decimal.Decimal) {
	l.levels.Remove(price)
}

func (l *ladder) empty() bool {
	return l.levels.Empty()
}

// remove takes o out of its price level without disturbing the queue order of
// the remaining orders, and drops the level once it holds none.
func (l *ladder) remove(o *Order) {
	q, ok := l.level(o.Price)
	if !ok {
		return
	}
	if i := q.Index(func(x *Order) bool { return x.ID == o.ID }); i >= 0 {
		q.Remove(i)
	}
	if q.Len() == 0 {
		l.levels.Remove(o.Price)
	}
}

// each visits levels best-first.
func (l *ladder) each(fn func(price decimal.Decimal, q *deque.Deque[*Order])) {
	it := l.levels.Iterator()
	for it.Next() {
		fn(it.Key().(decimal.Decimal), it.Value().(*deque.Deque[*Order]))
	}
}
