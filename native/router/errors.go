package router

import "errors"

var (
	// ErrEmptyRoute is returned for a plan with no steps.
	ErrEmptyRoute = errors.New("router: empty route")
	// ErrInvalidInputIndex is returned when a step's input index falls
	// outside the supplied account list.
	ErrInvalidInputIndex = errors.New("router: input index out of bounds")
	// ErrInvalidOutputIndex is returned when a step's output index falls
	// outside the supplied account list.
	ErrInvalidOutputIndex = errors.New("router: output index out of bounds")
	// ErrNotEnoughAccountKeys is returned when a step references account
	// positions the caller did not supply.
	ErrNotEnoughAccountKeys = errors.New("router: not enough account keys")
	// ErrNotEnoughPercent is returned when a hop's step percentages sum
	// below 100.
	ErrNotEnoughPercent = errors.New("router: step percentages sum below 100")
	// ErrInvalidPartialPercent is returned for a zero step percentage or a
	// hop summing above 100.
	ErrInvalidPartialPercent = errors.New("router: invalid partial swap percent")
	// ErrInvalidSlippage is returned when the slippage bound exceeds 100%.
	ErrInvalidSlippage = errors.New("router: slippage bps out of range")
	// ErrInvalidFee is returned when the platform fee exceeds 100%.
	ErrInvalidFee = errors.New("router: platform fee bps out of range")
	// ErrInvalidAmount is returned for a nil, zero or negative input
	// amount.
	ErrInvalidAmount = errors.New("router: input amount must be positive")
	// ErrInvalidQuote is returned for a nil or negative quoted output.
	ErrInvalidQuote = errors.New("router: quoted output must be non-negative")
	// ErrSlippageExceeded is returned when the net output lands below the
	// quote-derived minimum.
	ErrSlippageExceeded = errors.New("router: slippage tolerance exceeded")
	// ErrNoOutputProduced is returned when the route produced zero output.
	ErrNoOutputProduced = errors.New("router: no output produced")
)
