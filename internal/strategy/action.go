package strategy

import (
	"fmt"

	"binance-grid-bot-go/internal/ledger"
	"github.com/shopspring/decimal"
)

// ActionKind is what the evaluator wants done at the current price.
type ActionKind int

const (
	Buy ActionKind = iota + 1
	SellTakeProfit
	SellStopLoss
)

func (k ActionKind) String() string {
	switch k {
	case Buy:
		return "buy"
	case SellTakeProfit:
		return "sell_take_profit"
	case SellStopLoss:
		return "sell_stop_loss"
	}
	return fmt.Sprintf("ActionKind(%d)", int(k))
}

// Side is the exchange order side for the action.
func (k ActionKind) Side() string {
	if k == Buy {
		return "BUY"
	}
	return "SELL"
}

// Action is a single buy or sell decision.
type Action struct {
	Kind ActionKind
	// PositionID is set for sells and names the position being closed.
	PositionID string
	Price      decimal.Decimal
	Quantity   decimal.Decimal
}

// Fill is the ledger effect of an applied action.
type Fill struct {
	Action   Action
	Position ledger.Position    // opened position, for buys
	Trade    ledger.ClosedTrade // closed trade, for sells
}

func (a Action) exitKind() ledger.ExitKind {
	if a.Kind == SellStopLoss {
		return ledger.ExitStopLoss
	}
	return ledger.ExitTakeProfit
}
