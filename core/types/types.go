package types

import "math/big"

// Event is a structured state change emitted by the engine for off-chain
// consumers (indexers, the RPC surface).
type Event struct {
	Type       string
	Attributes map[string]string
}

// ZeroAddress is the all-zero address used to express "unset".
var ZeroAddress [20]byte

// BpsDenominator is the basis-point scale used for fees, slippage and limit
// order trigger prices.
const BpsDenominator = 10_000

// MaxBps is the highest accepted fee/slippage setting.
const MaxBps uint32 = 10_000

// MaxTriggerPriceBps bounds limit order trigger prices. Trigger prices may
// express a target above the input notional, so the domain exceeds MaxBps.
const MaxTriggerPriceBps uint64 = 100_000

// CloneBigInt copies v, treating nil as zero.
func CloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// IsPositive reports whether v is a non-nil positive amount.
func IsPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
