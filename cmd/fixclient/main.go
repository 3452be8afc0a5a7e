// fixclient is a manual smoke test against a running matchx FIX acceptor: it
// logs on, sends a crossing pair of limit orders and prints every execution
// report that comes back.
package main

import (
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/quickfixgo/enum"
	"github.com/quickfixgo/field"
	fix44nos "github.com/quickfixgo/fix44/newordersingle"
	"github.com/quickfixgo/quickfix"
	"github.com/quickfixgo/quickfix/log/file"
	"github.com/quickfixgo/tag"
	"github.com/shopspring/decimal"
)

type InitiatorApp struct {
	sessionID *quickfix.SessionID
}

func (a *InitiatorApp) OnCreate(sessionID quickfix.SessionID) {
	a.sessionID = &sessionID
}

func (a *InitiatorApp) OnLogon(sessionID quickfix.SessionID) {
	log.Println("Logon success", sessionID)
	sendCrossingOrders(sessionID)
}

func (a *InitiatorApp) OnLogout(sessionID quickfix.SessionID)                       {}
func (a *InitiatorApp) ToAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) {}
func (a *InitiatorApp) ToApp(msg *quickfix.Message, sessionID quickfix.SessionID) error {
	return nil
}
func (a *InitiatorApp) FromAdmin(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	return nil
}
func (a *InitiatorApp) FromApp(msg *quickfix.Message, sessionID quickfix.SessionID) quickfix.MessageRejectError {
	clOrdID, _ := msg.Body.GetString(tag.ClOrdID)
	execType, _ := msg.Body.GetString(tag.ExecType)
	ordStatus, _ := msg.Body.GetString(tag.OrdStatus)
	cumQty, _ := msg.Body.GetString(tag.CumQty)
	leavesQty, _ := msg.Body.GetString(tag.LeavesQty)
	log.Printf("report clOrdID=%s execType=%s ordStatus=%s cumQty=%s leavesQty=%s",
		clOrdID, execType, ordStatus, cumQty, leavesQty)
	return nil
}

// sendCrossingOrders rests a sell then crosses it with a smaller buy, so the
// acceptor should answer with New, New, then a fill report per side.
func sendCrossingOrders(sessionID quickfix.SessionID) {
	orderSell := fix44nos.New(
		field.NewClOrdID(randSeq(17)),
		field.NewSide(enum.Side_SELL),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	orderSell.SetSymbol("BTC-USD")
	orderSell.SetAccount("SIM-SELL")
	orderSell.SetPrice(decimal.NewFromInt(100), 0)
	orderSell.SetOrderQty(decimal.NewFromInt(8), 0)
	orderSell.SetSenderCompID(sessionID.SenderCompID)
	orderSell.SetTargetCompID(sessionID.TargetCompID)
	if err := quickfix.Send(orderSell); err != nil {
		log.Println("send sell err:", err)
	}

	orderBuy := fix44nos.New(
		field.NewClOrdID(randSeq(17)),
		field.NewSide(enum.Side_BUY),
		field.NewTransactTime(time.Now()),
		field.NewOrdType(enum.OrdType_LIMIT))
	orderBuy.SetSymbol("BTC-USD")
	orderBuy.SetAccount("SIM-BUY")
	orderBuy.SetPrice(decimal.NewFromInt(101), 0)
	orderBuy.SetOrderQty(decimal.NewFromInt(5), 0)
	orderBuy.SetSenderCompID(sessionID.SenderCompID)
	orderBuy.SetTargetCompID(sessionID.TargetCompID)
	if err := quickfix.Send(orderBuy); err != nil {
		log.Println("send buy err:", err)
	}
}

func main() {
	cfgPath := os.Args[1]
	log.Println("cfgPath:", cfgPath)
	app := &InitiatorApp{}

	cfg, err := os.Open(cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	defer cfg.Close() // nolint

	settings, err := quickfix.ParseSettings(cfg)
	if err != nil {
		log.Fatal(err)
	}

	storeFactory := quickfix.NewMemoryStoreFactory()
	logFactory, _ := file.NewLogFactory(settings)
	initiator, err := quickfix.NewInitiator(app, storeFactory, settings, logFactory)
	if err != nil {
		log.Fatal(err)
	}
	if err = initiator.Start(); err != nil {
		log.Fatal(err)
	}
	log.Println("Initiator started...")
	select {}
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

func randSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
