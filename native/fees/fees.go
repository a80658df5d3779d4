package fees

import (
	"errors"
	"math/big"

	"routevault/core/types"
)

var (
	// ErrFeeBpsOutOfRange is returned when a fee setting exceeds 100%.
	ErrFeeBpsOutOfRange = errors.New("fees: bps out of range")
	// ErrNegativeGross is returned when the gross amount is negative.
	ErrNegativeGross = errors.New("fees: gross amount must be non-negative")
)

// Result summarises the fee obligation computed for one gross amount.
type Result struct {
	Fee *big.Int
	Net *big.Int
}

// Apply computes the platform fee for a gross output amount. The fee rounds
// down so the payout side never exceeds what the vault actually holds:
// fee = floor(gross * bps / 10000), net = gross - fee.
func Apply(gross *big.Int, bps uint32) (Result, error) {
	if bps > types.MaxBps {
		return Result{}, ErrFeeBpsOutOfRange
	}
	amount := types.CloneBigInt(gross)
	if amount.Sign() < 0 {
		return Result{}, ErrNegativeGross
	}
	result := Result{Fee: big.NewInt(0), Net: amount}
	if bps == 0 || amount.Sign() == 0 {
		return result, nil
	}
	fee := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	fee.Div(fee, big.NewInt(types.BpsDenominator))
	result.Fee = fee
	result.Net = new(big.Int).Sub(amount, fee)
	return result, nil
}

// MinimumOut computes the lowest acceptable net output for a quoted amount at
// the given slippage tolerance: floor(quoted * (10000 - slippage) / 10000).
func MinimumOut(quoted *big.Int, slippageBps uint32) (*big.Int, error) {
	if slippageBps > types.MaxBps {
		return nil, ErrFeeBpsOutOfRange
	}
	amount := types.CloneBigInt(quoted)
	if amount.Sign() < 0 {
		return nil, ErrNegativeGross
	}
	min := new(big.Int).Mul(amount, big.NewInt(int64(types.MaxBps-slippageBps)))
	min.Div(min, big.NewInt(types.BpsDenominator))
	return min, nil
}
