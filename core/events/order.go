package events

import (
	"math/big"

	"routevault/core/types"
	"routevault/crypto"
)

const (
	TypeOrderOpened    = "order.opened"
	TypeOrderFilled    = "order.filled"
	TypeOrderCancelled = "order.cancelled"
	TypeOrderClosed    = "order.closed"
)

// OrderOpened records a limit order moving into the open state with input
// locked in its vault.
type OrderOpened struct {
	Order      [20]byte
	Creator    [20]byte
	InputMint  [20]byte
	OutputMint [20]byte
	Amount     *big.Int
	TriggerBps uint64
	ExpiresAt  int64
}

func (OrderOpened) EventType() string { return TypeOrderOpened }

func (e OrderOpened) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderOpened,
		Attributes: map[string]string{
			"order":      crypto.EncodeAddress(e.Order),
			"creator":    crypto.EncodeAddress(e.Creator),
			"inputMint":  crypto.EncodeAddress(e.InputMint),
			"outputMint": crypto.EncodeAddress(e.OutputMint),
			"amount":     formatAmount(e.Amount),
			"triggerBps": uintToString(e.TriggerBps),
			"expiresAt":  intToString(e.ExpiresAt),
		},
	}
}

// OrderFilled records a successful operator execution.
type OrderFilled struct {
	Order     [20]byte
	Operator  [20]byte
	AmountIn  *big.Int
	AmountOut *big.Int
}

func (OrderFilled) EventType() string { return TypeOrderFilled }

func (e OrderFilled) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderFilled,
		Attributes: map[string]string{
			"order":     crypto.EncodeAddress(e.Order),
			"operator":  crypto.EncodeAddress(e.Operator),
			"amountIn":  formatAmount(e.AmountIn),
			"amountOut": formatAmount(e.AmountOut),
		},
	}
}

// OrderCancelled records a refund back to the creator.
type OrderCancelled struct {
	Order    [20]byte
	Caller   [20]byte
	Refunded *big.Int
	Expired  bool
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

func (e OrderCancelled) Event() *types.Event {
	expired := "false"
	if e.Expired {
		expired = "true"
	}
	return &types.Event{
		Type: TypeOrderCancelled,
		Attributes: map[string]string{
			"order":    crypto.EncodeAddress(e.Order),
			"caller":   crypto.EncodeAddress(e.Caller),
			"refunded": formatAmount(e.Refunded),
			"expired":  expired,
		},
	}
}

// OrderClosed records the terminal close with storage reclaimed to the
// creator.
type OrderClosed struct {
	Order   [20]byte
	Creator [20]byte
}

func (OrderClosed) EventType() string { return TypeOrderClosed }

func (e OrderClosed) Event() *types.Event {
	return &types.Event{
		Type: TypeOrderClosed,
		Attributes: map[string]string{
			"order":   crypto.EncodeAddress(e.Order),
			"creator": crypto.EncodeAddress(e.Creator),
		},
	}
}
