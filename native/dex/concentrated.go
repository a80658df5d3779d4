package dex

import (
	"fmt"
	"math/big"

	"routevault/core/types"
)

// Concentrated-liquidity account ordering: fifteen fixed accounts followed by
// the supplemental range-bucket tail.
//
//	0  external program
//	1  pool
//	2  pool config
//	3  vault for the pool's A side
//	4  vault for the pool's B side
//	5  pool vault A
//	6  pool vault B
//	7  mint A
//	8  mint B
//	9  escrow authority
//	10 token program
//	11 observation account
//	12 range index account
//	13 fee account
//	14 reserved
//	15.. range buckets, Derive("bucket", pool, i)
const concentratedFixedAccounts = 15

// ConcentratedAdapter executes against the concentrated-liquidity family.
// The account layout is oriented A-to-B; when the trade runs B-to-A the
// adapter swaps the vault pair so the engine's source vault still funds the
// input side.
type ConcentratedAdapter struct{}

func (ConcentratedAdapter) direction(ctx *SwapContext) (aToB bool, err error) {
	mintA := ctx.Accounts[7]
	mintB := ctx.Accounts[8]
	switch {
	case ctx.InputMint == mintA && ctx.OutputMint == mintB:
		return true, nil
	case ctx.InputMint == mintB && ctx.OutputMint == mintA:
		return false, nil
	default:
		return false, fmt.Errorf("%w: mint positions", ErrBadAccountShape)
	}
}

func (a ConcentratedAdapter) ValidateAccounts(ctx *SwapContext) error {
	if len(ctx.Accounts) < concentratedFixedAccounts+1 {
		return fmt.Errorf("%w: concentrated wants at least %d accounts, got %d", ErrBadAccountShape, concentratedFixedAccounts+1, len(ctx.Accounts))
	}
	aToB, err := a.direction(ctx)
	if err != nil {
		return err
	}
	vaultA, vaultB := ctx.Accounts[3], ctx.Accounts[4]
	if aToB {
		if vaultA != ctx.SourceVault || vaultB != ctx.DestVault {
			return fmt.Errorf("%w: vault pair for a-to-b", ErrBadAccountShape)
		}
	} else {
		// Reversed direction: the owner-account pair swaps.
		if vaultA != ctx.DestVault || vaultB != ctx.SourceVault {
			return fmt.Errorf("%w: vault pair for b-to-a", ErrBadAccountShape)
		}
	}
	pool := ctx.Accounts[1]
	if ctx.Accounts[5] != PoolTokenAccount(pool, ctx.Accounts[7]) || ctx.Accounts[6] != PoolTokenAccount(pool, ctx.Accounts[8]) {
		return fmt.Errorf("%w: pool vault positions", ErrBadAccountShape)
	}
	if ctx.Accounts[9] != ctx.Authority {
		return fmt.Errorf("%w: escrow authority position", ErrBadAccountShape)
	}
	for i, account := range ctx.Accounts[concentratedFixedAccounts:] {
		if account != BucketAccount(pool, uint8(i)) {
			return fmt.Errorf("%w: bucket %d", ErrBadAccountShape, i)
		}
	}
	return nil
}

func (ConcentratedAdapter) ValidateProgram(ctx *SwapContext) error {
	if len(ctx.Accounts) == 0 || ctx.Accounts[0] != ctx.Program {
		return ErrProgramMismatch
	}
	return nil
}

func (a ConcentratedAdapter) ExecuteSwap(ctx *SwapContext, amount *big.Int) (*big.Int, error) {
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

// Ratio is an exact price quote expressed as out-per-in.
type Ratio struct {
	Num uint64
	Den uint64
}

// ClmmPool holds the static parameters of one concentrated pool. Prices
// quote the B-per-A rate per bucket; bucket inventory lives in the ledger at
// the derived bucket accounts.
type ClmmPool struct {
	MintA  [20]byte
	MintB  [20]byte
	FeeBps uint32
	Prices []Ratio
}

// ClmmProgram is the in-process concentrated-liquidity exchange program.
type ClmmProgram struct {
	pools map[[20]byte]ClmmPool
}

// NewClmmProgram creates an empty concentrated-liquidity program.
func NewClmmProgram() *ClmmProgram {
	return &ClmmProgram{pools: make(map[[20]byte]ClmmPool)}
}

// CreatePool registers a pool and seeds per-bucket inventory on both sides.
func (p *ClmmProgram) CreatePool(ledger Ledger, pool [20]byte, cfg ClmmPool, liquidityA, liquidityB []*big.Int) error {
	if cfg.FeeBps > types.MaxBps {
		return fmt.Errorf("dex: clmm pool fee bps out of range: %d", cfg.FeeBps)
	}
	if len(liquidityA) != len(cfg.Prices) || len(liquidityB) != len(cfg.Prices) {
		return fmt.Errorf("dex: clmm pool wants liquidity per bucket")
	}
	for _, price := range cfg.Prices {
		if price.Num == 0 || price.Den == 0 {
			return fmt.Errorf("dex: clmm bucket price must be positive")
		}
	}
	p.pools[pool] = cfg
	for i := range cfg.Prices {
		bucket := BucketAccount(pool, uint8(i))
		if err := ledger.Credit(bucket, cfg.MintA, types.CloneBigInt(liquidityA[i])); err != nil {
			return err
		}
		if err := ledger.Credit(bucket, cfg.MintB, types.CloneBigInt(liquidityB[i])); err != nil {
			return err
		}
	}
	return nil
}

func (p *ClmmProgram) Execute(ledger Ledger, call Call) (*big.Int, error) {
	cfg, ok := p.pools[call.Pool]
	if !ok {
		return nil, ErrPoolNotFound
	}
	if !pairMatches(cfg.MintA, cfg.MintB, call.InputMint, call.OutputMint) {
		return nil, fmt.Errorf("dex: clmm pool does not trade this pair")
	}
	aToB := call.InputMint == cfg.MintA
	supplied := len(call.Accounts) - concentratedFixedAccounts
	if supplied <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	if supplied > len(cfg.Prices) {
		supplied = len(cfg.Prices)
	}
	remaining := new(big.Int).Mul(call.AmountIn, big.NewInt(int64(types.MaxBps-cfg.FeeBps)))
	remaining.Div(remaining, big.NewInt(types.BpsDenominator))
	total := big.NewInt(0)
	// A-to-B consumes buckets upward through the price range, B-to-A
	// downward.
	for step := 0; step < supplied && remaining.Sign() > 0; step++ {
		index := step
		if !aToB {
			index = supplied - 1 - step
		}
		bucket := BucketAccount(call.Pool, uint8(index))
		avail := ledger.BalanceOf(bucket, call.OutputMint)
		if avail.Sign() == 0 {
			continue
		}
		price := cfg.Prices[index]
		out := bucketQuote(remaining, price, aToB)
		used := new(big.Int).Set(remaining)
		if out.Cmp(avail) > 0 {
			out = new(big.Int).Set(avail)
			used = bucketCharge(out, price, aToB)
		}
		if out.Sign() == 0 {
			continue
		}
		if err := ledger.Debit(bucket, call.OutputMint, out); err != nil {
			return nil, err
		}
		if err := ledger.Credit(call.Dest, call.OutputMint, out); err != nil {
			return nil, err
		}
		total.Add(total, out)
		remaining.Sub(remaining, used)
	}
	if remaining.Sign() > 0 {
		return nil, ErrInsufficientLiquidity
	}
	if call.MinimumOut != nil && total.Cmp(call.MinimumOut) < 0 {
		return nil, ErrInsufficientLiquidity
	}
	return total, nil
}

// bucketQuote converts an input amount to output at the bucket price,
// rounding down.
func bucketQuote(in *big.Int, price Ratio, aToB bool) *big.Int {
	num, den := price.Num, price.Den
	if !aToB {
		num, den = den, num
	}
	out := new(big.Int).Mul(in, new(big.Int).SetUint64(num))
	return out.Div(out, new(big.Int).SetUint64(den))
}

// bucketCharge converts an output amount back to the input consumed,
// rounding up so the pool never pays out more than it was paid for.
func bucketCharge(out *big.Int, price Ratio, aToB bool) *big.Int {
	num, den := price.Num, price.Den
	if !aToB {
		num, den = den, num
	}
	in := new(big.Int).Mul(out, new(big.Int).SetUint64(den))
	in.Add(in, new(big.Int).SetUint64(num-1))
	return in.Div(in, new(big.Int).SetUint64(num))
}
