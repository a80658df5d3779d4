package dex

import (
	"fmt"
	"math/big"

	"routevault/core/types"
)

// Constant-product account ordering. The shape is fixed: exactly eleven
// accounts, no variable tail.
//
//	0  external program
//	1  pool
//	2  pool authority
//	3  engine source vault
//	4  engine destination vault
//	5  pool source token account
//	6  pool destination token account
//	7  input mint
//	8  output mint
//	9  escrow authority
//	10 token program
const constantProductAccounts = 11

// ConstantProductAdapter executes against the x*y=k family.
type ConstantProductAdapter struct{}

func (ConstantProductAdapter) ValidateAccounts(ctx *SwapContext) error {
	if len(ctx.Accounts) != constantProductAccounts {
		return fmt.Errorf("%w: constant-product wants %d accounts, got %d", ErrBadAccountShape, constantProductAccounts, len(ctx.Accounts))
	}
	pool := ctx.Accounts[1]
	if ctx.Accounts[3] != ctx.SourceVault {
		return fmt.Errorf("%w: source vault position", ErrBadAccountShape)
	}
	if ctx.Accounts[4] != ctx.DestVault {
		return fmt.Errorf("%w: destination vault position", ErrBadAccountShape)
	}
	if ctx.Accounts[5] != PoolTokenAccount(pool, ctx.InputMint) {
		return fmt.Errorf("%w: pool source token account", ErrBadAccountShape)
	}
	if ctx.Accounts[6] != PoolTokenAccount(pool, ctx.OutputMint) {
		return fmt.Errorf("%w: pool destination token account", ErrBadAccountShape)
	}
	if ctx.Accounts[7] != ctx.InputMint || ctx.Accounts[8] != ctx.OutputMint {
		return fmt.Errorf("%w: mint positions", ErrBadAccountShape)
	}
	if ctx.Accounts[9] != ctx.Authority {
		return fmt.Errorf("%w: escrow authority position", ErrBadAccountShape)
	}
	return nil
}

func (ConstantProductAdapter) ValidateProgram(ctx *SwapContext) error {
	if len(ctx.Accounts) == 0 || ctx.Accounts[0] != ctx.Program {
		return ErrProgramMismatch
	}
	return nil
}

func (a ConstantProductAdapter) ExecuteSwap(ctx *SwapContext, amount *big.Int) (*big.Int, error) {
	if err := a.ValidateAccounts(ctx); err != nil {
		return nil, err
	}
	if err := a.ValidateProgram(ctx); err != nil {
		return nil, err
	}
	in := types.CloneBigInt(amount)
	if in.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	pool := ctx.PoolAccount()
	// Input-side transfer first; the external call then settles the output
	// leg with minimum-out pinned to zero.
	if err := ctx.Ledger.Debit(ctx.SourceVault, ctx.InputMint, in); err != nil {
		return nil, err
	}
	if err := ctx.Ledger.Credit(PoolTokenAccount(pool, ctx.InputMint), ctx.InputMint, in); err != nil {
		return nil, err
	}
	return ctx.Host.Invoke(ctx.Program, ctx.Ledger, Call{
		Pool:       pool,
		Accounts:   ctx.Accounts,
		Source:     ctx.SourceVault,
		Dest:       ctx.DestVault,
		InputMint:  ctx.InputMint,
		OutputMint: ctx.OutputMint,
		AmountIn:   in,
		MinimumOut: big.NewInt(0),
	})
}

// CpmmPool holds the static parameters of one constant-product pool; its
// reserves live in the ledger at the derived pool token accounts.
type CpmmPool struct {
	MintA  [20]byte
	MintB  [20]byte
	FeeBps uint32
}

// CpmmProgram is the in-process constant-product exchange program.
type CpmmProgram struct {
	pools map[[20]byte]CpmmPool
}

// NewCpmmProgram creates an empty constant-product program.
func NewCpmmProgram() *CpmmProgram {
	return &CpmmProgram{pools: make(map[[20]byte]CpmmPool)}
}

// CreatePool registers a pool and seeds its reserves into the ledger.
func (p *CpmmProgram) CreatePool(ledger Ledger, pool [20]byte, cfg CpmmPool, reserveA, reserveB *big.Int) error {
	if cfg.FeeBps > types.MaxBps {
		return fmt.Errorf("dex: cpmm pool fee bps out of range: %d", cfg.FeeBps)
	}
	p.pools[pool] = cfg
	if err := ledger.Credit(PoolTokenAccount(pool, cfg.MintA), cfg.MintA, types.CloneBigInt(reserveA)); err != nil {
		return err
	}
	return ledger.Credit(PoolTokenAccount(pool, cfg.MintB), cfg.MintB, types.CloneBigInt(reserveB))
}

func (p *CpmmProgram) Execute(ledger Ledger, call Call) (*big.Int, error) {
	cfg, ok := p.pools[call.Pool]
	if !ok {
		return nil, ErrPoolNotFound
	}
	if !pairMatches(cfg.MintA, cfg.MintB, call.InputMint, call.OutputMint) {
		return nil, fmt.Errorf("dex: cpmm pool does not trade this pair")
	}
	inAccount := PoolTokenAccount(call.Pool, call.InputMint)
	outAccount := PoolTokenAccount(call.Pool, call.OutputMint)
	// The adapter already escrowed the input into the pool, so the pre-trade
	// input reserve excludes the incoming amount.
	reserveIn := new(big.Int).Sub(ledger.BalanceOf(inAccount, call.InputMint), call.AmountIn)
	reserveOut := ledger.BalanceOf(outAccount, call.OutputMint)
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	effective := new(big.Int).Mul(call.AmountIn, big.NewInt(int64(types.MaxBps-cfg.FeeBps)))
	effective.Div(effective, big.NewInt(types.BpsDenominator))
	// out = reserveOut * effective / (reserveIn + effective), floored.
	numerator := new(big.Int).Mul(reserveOut, effective)
	denominator := new(big.Int).Add(reserveIn, effective)
	out := numerator.Div(numerator, denominator)
	if out.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if call.MinimumOut != nil && out.Cmp(call.MinimumOut) < 0 {
		return nil, ErrInsufficientLiquidity
	}
	if err := ledger.Debit(outAccount, call.OutputMint, out); err != nil {
		return nil, err
	}
	if err := ledger.Credit(call.Dest, call.OutputMint, out); err != nil {
		return nil, err
	}
	return out, nil
}

func pairMatches(mintA, mintB, in, out [20]byte) bool {
	if in == mintA && out == mintB {
		return true
	}
	return in == mintB && out == mintA
}
