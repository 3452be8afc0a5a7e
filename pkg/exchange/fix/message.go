package fixgateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	"github.com/quickfixgo/fix44/executionreport"
	"github.com/quickfixgo/fix44/ordercancelreject"
	"github.com/shopspring/decimal"
)

const qtyScale = 8

// newExecutionReport builds an execution report from the gateway's order
// state. Callers hold the state's lock (or have exclusive access) while the
// message is built.
func newExecutionReport(state *orderState, execType enum.ExecType, ordStatus enum.OrdStatus, lastQty, lastPx decimal.Decimal, text string) executionreport.ExecutionReport {
	leavesQty := state.quantity.Sub(state.cumQty)
	if ordStatus == enum.OrdStatus_CANCELED || ordStatus == enum.OrdStatus_REJECTED {
		leavesQty = decimal.Zero
	}
	avgPx := decimal.Zero
	if state.cumQty.IsPositive() {
		avgPx = state.notional.DivRound(state.cumQty, qtyScale)
	}

	msg := executionreport.New(
		field.NewOrderID(state.orderID),
		field.NewExecID(uuid.NewString()),
		field.NewExecType(execType),
		field.NewOrdStatus(ordStatus),
		field.NewSide(state.side),
		field.NewLeavesQty(leavesQty, qtyScale),
		field.NewCumQty(state.cumQty, qtyScale),
		field.NewAvgPx(avgPx, qtyScale),
	)

	msg.SetClOrdID(state.clOrdID)
	msg.SetSymbol(state.symbol)
	msg.SetAccount(state.account)
	msg.SetOrderQty(state.quantity, qtyScale)
	msg.SetPrice(state.price, qtyScale)
	msg.SetTransactTime(time.Now())
	if !lastQty.IsZero() {
		msg.SetLastQty(lastQty, qtyScale)
		msg.SetLastPx(lastPx, qtyScale)
	}
	if text != "" {
		msg.SetText(text)
	}

	return msg
}

func newOrderCancelReject(req *OrderCancelRequest, orderID string, ordStatus enum.OrdStatus) ordercancelreject.OrderCancelReject {
	msg := ordercancelreject.New(
		field.NewOrderID(orderID),
		field.NewClOrdID(req.ClOrdID),
		field.NewOrigClOrdID(req.OrigClOrdID),
		field.NewOrdStatus(ordStatus),
		field.NewCxlRejResponseTo(enum.CxlRejResponseTo_ORDER_CANCEL_REQUEST),
	)
	msg.SetTransactTime(time.Now())
	return msg
}
