package events

import (
	"math/big"

	"routevault/core/types"
	"routevault/crypto"
)

const (
	TypeSwapExecuted  = "route.swap"
	TypeRouteExecuted = "route.executed"
)

// SwapExecuted records one adapter leg of a route.
type SwapExecuted struct {
	Adapter    string
	Pool       [20]byte
	Program    [20]byte
	InputMint  [20]byte
	OutputMint [20]byte
	AmountIn   *big.Int
	AmountOut  *big.Int
}

func (SwapExecuted) EventType() string { return TypeSwapExecuted }

func (e SwapExecuted) Event() *types.Event {
	return &types.Event{
		Type: TypeSwapExecuted,
		Attributes: map[string]string{
			"adapter":    e.Adapter,
			"pool":       crypto.EncodeAddress(e.Pool),
			"program":    crypto.EncodeAddress(e.Program),
			"inputMint":  crypto.EncodeAddress(e.InputMint),
			"outputMint": crypto.EncodeAddress(e.OutputMint),
			"amountIn":   formatAmount(e.AmountIn),
			"amountOut":  formatAmount(e.AmountOut),
		},
	}
}

// RouteExecuted is the aggregate record for one completed route, emitted after
// fees and slippage checks have passed.
type RouteExecuted struct {
	Caller     [20]byte
	InputMint  [20]byte
	OutputMint [20]byte
	AmountIn   *big.Int
	AmountOut  *big.Int
	Fee        *big.Int
	Steps      int
	Delegated  bool
}

func (RouteExecuted) EventType() string { return TypeRouteExecuted }

func (e RouteExecuted) Event() *types.Event {
	delegated := "false"
	if e.Delegated {
		delegated = "true"
	}
	return &types.Event{
		Type: TypeRouteExecuted,
		Attributes: map[string]string{
			"caller":     crypto.EncodeAddress(e.Caller),
			"inputMint":  crypto.EncodeAddress(e.InputMint),
			"outputMint": crypto.EncodeAddress(e.OutputMint),
			"amountIn":   formatAmount(e.AmountIn),
			"amountOut":  formatAmount(e.AmountOut),
			"fee":        formatAmount(e.Fee),
			"steps":      intToString(int64(e.Steps)),
			"delegated":  delegated,
		},
	}
}
