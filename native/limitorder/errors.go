package limitorder

import "errors"

var (
	// ErrOrderExists is returned when an order already occupies the
	// derived creator/nonce slot.
	ErrOrderExists = errors.New("limitorder: order already exists")
	// ErrOrderNotFound is returned when the referenced order does not
	// exist.
	ErrOrderNotFound = errors.New("limitorder: order not found")
	// ErrInvalidStatus is returned when an operation is attempted against
	// an order whose status does not admit it.
	ErrInvalidStatus = errors.New("limitorder: invalid order status")
	// ErrNotCreator is returned when a caller other than the order
	// creator attempts a creator-gated operation.
	ErrNotCreator = errors.New("limitorder: caller is not the order creator")
	// ErrNotOperator is returned when a caller lacks operator rights for
	// an operator-gated operation.
	ErrNotOperator = errors.New("limitorder: caller is not an operator")
	// ErrInvalidAmount is returned when the locked input amount is not
	// strictly positive.
	ErrInvalidAmount = errors.New("limitorder: input amount must be positive")
	// ErrInvalidMinOutput is returned when the minimum output is not
	// strictly positive.
	ErrInvalidMinOutput = errors.New("limitorder: minimum output must be positive")
	// ErrInvalidTriggerPrice is returned when the trigger price is zero or
	// exceeds the supported ceiling.
	ErrInvalidTriggerPrice = errors.New("limitorder: trigger price out of range")
	// ErrInvalidTriggerKind is returned when the trigger kind is not a
	// supported value.
	ErrInvalidTriggerKind = errors.New("limitorder: unsupported trigger kind")
	// ErrInvalidExpiry is returned when the expiry timestamp is not in the
	// future.
	ErrInvalidExpiry = errors.New("limitorder: expiry must be in the future")
	// ErrInvalidSlippage is returned when the slippage tolerance exceeds
	// the basis-point ceiling.
	ErrInvalidSlippage = errors.New("limitorder: slippage out of range")
	// ErrOrderExpired is returned when execution is attempted past the
	// order's expiry.
	ErrOrderExpired = errors.New("limitorder: order expired")
	// ErrOrderNotExpired is returned when an expiry sweep targets an order
	// that has not yet expired.
	ErrOrderNotExpired = errors.New("limitorder: order not expired")
	// ErrTriggerNotMet is returned when the trigger condition does not
	// hold at execution time.
	ErrTriggerNotMet = errors.New("limitorder: trigger condition not met")
	// ErrMinOutputNotMet is returned when the realized output falls below
	// the order's minimum output.
	ErrMinOutputNotMet = errors.New("limitorder: realized output below minimum")
)
