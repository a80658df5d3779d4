package dex

import (
	"errors"
	"math/big"
)

// SwapType tags the exchange family a route step executes against.
type SwapType uint8

const (
	// SwapConstantProduct is the x*y=k AMM family.
	SwapConstantProduct SwapType = iota + 1
	// SwapConcentrated is the concentrated-liquidity AMM family with
	// range-bucket accounts.
	SwapConcentrated
	// SwapBinLiquidity is the bin-based AMM family with discrete price bins.
	SwapBinLiquidity
)

// String returns the registry name for the swap type.
func (t SwapType) String() string {
	switch t {
	case SwapConstantProduct:
		return "constant-product"
	case SwapConcentrated:
		return "concentrated"
	case SwapBinLiquidity:
		return "bin"
	default:
		return "unknown"
	}
}

var (
	// ErrSwapNotSupported is returned when no adapter is registered for a
	// swap type.
	ErrSwapNotSupported = errors.New("dex: swap type not supported")
	// ErrPoolNotFound is returned when a pool has never been registered.
	ErrPoolNotFound = errors.New("dex: pool not found")
	// ErrPoolDisabled is returned when a registered pool has been disabled.
	ErrPoolDisabled = errors.New("dex: pool disabled")
	// ErrProgramMismatch is returned when the external program account does
	// not match the registry's program identity for the swap type.
	ErrProgramMismatch = errors.New("dex: external program mismatch")
	// ErrBadAccountShape is returned when a step's account list does not
	// match the fixed ordering the adapter requires.
	ErrBadAccountShape = errors.New("dex: account list does not match adapter shape")
	// ErrUnknownProgram is returned by the host when no program is
	// registered at the invoked address.
	ErrUnknownProgram = errors.New("dex: unknown external program")
	// ErrInsufficientLiquidity is returned by the external programs when a
	// trade cannot be filled from available reserves.
	ErrInsufficientLiquidity = errors.New("dex: insufficient pool liquidity")
)

// Ledger is the balance surface adapters and external programs operate on.
type Ledger interface {
	BalanceOf(account, mint [20]byte) *big.Int
	Credit(account, mint [20]byte, amount *big.Int) error
	Debit(account, mint [20]byte, amount *big.Int) error
}

// SwapContext carries everything one adapter invocation needs: the step's
// slice of the caller-supplied account list, the engine's vault pair for the
// leg, and the registry-resolved external program identity.
type SwapContext struct {
	Ledger      Ledger
	Host        *Host
	Accounts    [][20]byte
	Program     [20]byte // expected external program id from the registry
	Authority   [20]byte // escrow authority owning the engine vaults
	SourceVault [20]byte
	DestVault   [20]byte
	InputMint   [20]byte
	OutputMint  [20]byte
}

// Adapter is the capability contract every exchange family implements. The
// adapter owns the protocol-specific account ordering and the external call;
// it never applies fees or slippage, which belong to the route executor.
type Adapter interface {
	// ValidateAccounts checks the fixed account shape for the family.
	ValidateAccounts(ctx *SwapContext) error
	// ValidateProgram checks the external program identity.
	ValidateProgram(ctx *SwapContext) error
	// ExecuteSwap escrows the input into the pool and invokes the external
	// program, returning the produced output amount. The per-step minimum
	// out is always zero: the route executor enforces the global slippage
	// bound after aggregation.
	ExecuteSwap(ctx *SwapContext, amount *big.Int) (*big.Int, error)
}

// Pool returns the pool account for a validated context. All three families
// place the pool at index 1, after the program account.
func (ctx *SwapContext) PoolAccount() [20]byte {
	if len(ctx.Accounts) < 2 {
		return [20]byte{}
	}
	return ctx.Accounts[1]
}
