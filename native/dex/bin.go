package dex

import (
	"fmt"
	"math/big"

	"routevault/core/types"
)

// Bin-liquidity account ordering: sixteen fixed accounts followed by up to
// five dynamically appended bin accounts.
//
//	0  external program
//	1  pool
//	2  bin bitmap account
//	3  engine source vault
//	4  engine destination vault
//	5  pool reserve, input side
//	6  pool reserve, output side
//	7  input mint
//	8  output mint
//	9  escrow authority
//	10 token program
//	11 oracle account
//	12 host fee account
//	13 event authority
//	14 program self-reference
//	15 reserved
//	16.. appended bins, Derive("bin", pool, i), at most five
const (
	binFixedAccounts = 16
	maxBinsPerSwap   = 5
)

// BinAdapter executes against the bin-based AMM family. The variable-length
// bin tail is sliced from the caller-supplied account list and bounded at
// five bins per swap.
type BinAdapter struct{}

func (BinAdapter) ValidateAccounts(ctx *SwapContext) error {
	if len(ctx.Accounts) < binFixedAccounts+1 {
		return fmt.Errorf("%w: bin wants at least %d accounts, got %d", ErrBadAccountShape, binFixedAccounts+1, len(ctx.Accounts))
	}
	if len(ctx.Accounts) > binFixedAccounts+maxBinsPerSwap {
		return fmt.Errorf("%w: at most %d bins per swap", ErrBadAccountShape, maxBinsPerSwap)
	}
	pool := ctx.Accounts[1]
	if ctx.Accounts[3] != ctx.SourceVault {
		return fmt.Errorf("%w: source vault position", ErrBadAccountShape)
	}
	if ctx.Accounts[4] != ctx.DestVault {
		return fmt.Errorf("%w: destination vault position", ErrBadAccountShape)
	}
	if ctx.Accounts[5] != PoolTokenAccount(pool, ctx.InputMint) || ctx.Accounts[6] != PoolTokenAccount(pool, ctx.OutputMint) {
		return fmt.Errorf("%w: pool reserve positions", ErrBadAccountShape)
	}
	if ctx.Accounts[7] != ctx.InputMint || ctx.Accounts[8] != ctx.OutputMint {
		return fmt.Errorf("%w: mint positions", ErrBadAccountShape)
	}
	if ctx.Accounts[9] != ctx.Authority {
		return fmt.Errorf("%w: escrow authority position", ErrBadAccountShape)
	}
	return nil
}

func (BinAdapter) ValidateProgram(ctx *SwapContext) error {
	if len(ctx.Accounts) == 0 || ctx.Accounts[0] != ctx.Program {
		return ErrProgramMismatch
	}
	return nil
}

func (a BinAdapter) ExecuteSwap(ctx *SwapContext, amount *big.Int) (*big.Int, error) {
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

// DlmmPool holds the static parameters of one bin pool. Each bin quotes a
// fixed B-per-A price; bin inventory lives in the ledger at the derived bin
// accounts.
type DlmmPool struct {
	MintA  [20]byte
	MintB  [20]byte
	FeeBps uint32
	Prices []Ratio
}

// DlmmProgram is the in-process bin-liquidity exchange program.
type DlmmProgram struct {
	pools map[[20]byte]DlmmPool
}

// NewDlmmProgram creates an empty bin-liquidity program.
func NewDlmmProgram() *DlmmProgram {
	return &DlmmProgram{pools: make(map[[20]byte]DlmmPool)}
}

// CreatePool registers a pool and seeds per-bin inventory on both sides.
func (p *DlmmProgram) CreatePool(ledger Ledger, pool [20]byte, cfg DlmmPool, liquidityA, liquidityB []*big.Int) error {
	if cfg.FeeBps > types.MaxBps {
		return fmt.Errorf("dex: dlmm pool fee bps out of range: %d", cfg.FeeBps)
	}
	if len(liquidityA) != len(cfg.Prices) || len(liquidityB) != len(cfg.Prices) {
		return fmt.Errorf("dex: dlmm pool wants liquidity per bin")
	}
	for _, price := range cfg.Prices {
		if price.Num == 0 || price.Den == 0 {
			return fmt.Errorf("dex: dlmm bin price must be positive")
		}
	}
	p.pools[pool] = cfg
	for i := range cfg.Prices {
		bin := BinAccount(pool, uint8(i))
		if err := ledger.Credit(bin, cfg.MintA, types.CloneBigInt(liquidityA[i])); err != nil {
			return err
		}
		if err := ledger.Credit(bin, cfg.MintB, types.CloneBigInt(liquidityB[i])); err != nil {
			return err
		}
	}
	return nil
}

func (p *DlmmProgram) Execute(ledger Ledger, call Call) (*big.Int, error) {
	cfg, ok := p.pools[call.Pool]
	if !ok {
		return nil, ErrPoolNotFound
	}
	if !pairMatches(cfg.MintA, cfg.MintB, call.InputMint, call.OutputMint) {
		return nil, fmt.Errorf("dex: dlmm pool does not trade this pair")
	}
	tail := call.Accounts[binFixedAccounts:]
	if len(tail) == 0 || len(tail) > maxBinsPerSwap {
		return nil, ErrBadAccountShape
	}
	aToB := call.InputMint == cfg.MintA
	// The appended bins must be the consecutive derived accounts the swap
	// will consume, starting from the pool's first bin with inventory.
	start, found := p.firstActiveBin(ledger, call.Pool, cfg, call.OutputMint, aToB)
	if !found {
		return nil, ErrInsufficientLiquidity
	}
	remaining := new(big.Int).Mul(call.AmountIn, big.NewInt(int64(types.MaxBps-cfg.FeeBps)))
	remaining.Div(remaining, big.NewInt(types.BpsDenominator))
	total := big.NewInt(0)
	for offset, account := range tail {
		index := start + offset
		if !aToB {
			index = start - offset
		}
		if index < 0 || index >= len(cfg.Prices) {
			return nil, ErrInsufficientLiquidity
		}
		if account != BinAccount(call.Pool, uint8(index)) {
			return nil, fmt.Errorf("%w: bin account %d", ErrBadAccountShape, offset)
		}
		if remaining.Sign() == 0 {
			break
		}
		bin := BinAccount(call.Pool, uint8(index))
		avail := ledger.BalanceOf(bin, call.OutputMint)
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
		if err := ledger.Debit(bin, call.OutputMint, out); err != nil {
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

func (p *DlmmProgram) firstActiveBin(ledger Ledger, pool [20]byte, cfg DlmmPool, outMint [20]byte, aToB bool) (int, bool) {
	if aToB {
		for i := range cfg.Prices {
			if ledger.BalanceOf(BinAccount(pool, uint8(i)), outMint).Sign() > 0 {
				return i, true
			}
		}
		return 0, false
	}
	for i := len(cfg.Prices) - 1; i >= 0; i-- {
		if ledger.BalanceOf(BinAccount(pool, uint8(i)), outMint).Sign() > 0 {
			return i, true
		}
	}
	return 0, false
}
