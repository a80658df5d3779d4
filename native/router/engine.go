package router

import (
	"errors"
	"math/big"
	"time"

	"routevault/core/events"
	"routevault/core/types"
	"routevault/native/common"
	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/fees"
)

var errNilState = errors.New("router engine: state not configured")

const moduleName = "router"

type engineState interface {
	common.Snapshotter
	dex.Ledger
}

// Engine orchestrates route execution: escrow transfer-in, adapter
// invocation per plan step, fee application, slippage enforcement and escrow
// transfer-out. One call runs to completion or reverts entirely.
type Engine struct {
	state    engineState
	escrow   *escrow.Engine
	dispatch *dex.Dispatcher
	host     *dex.Host
	emitter  events.Emitter
	pauses   common.PauseView
	nowFn    func() int64
}

// NewEngine creates a route executor bound to the escrow engine and adapter
// dispatcher.
func NewEngine(esc *escrow.Engine, dispatch *dex.Dispatcher, host *dex.Host) *Engine {
	return &Engine{
		escrow:   esc,
		dispatch: dispatch,
		host:     host,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses configures the module pause switches.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Request carries one route call: the flat account table, the plan over it,
// the caller's funding and destination accounts, and the quote the slippage
// bound is anchored to.
type Request struct {
	Caller             [20]byte
	SourceAccount      [20]byte
	DestinationAccount [20]byte
	Accounts           [][20]byte
	Plan               Plan
	InAmount           *big.Int
	QuotedOut          *big.Int
	SlippageBps        uint32
	PlatformFeeBps     uint32
}

// Result summarises a completed route.
type Result struct {
	Output *big.Int // gross output before the platform fee
	Fee    *big.Int
	Net    *big.Int
	Steps  int
}

// Route executes the request as one atomic operation.
func (e *Engine) Route(req Request) (*Result, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !types.IsPositive(req.InAmount) {
		return nil, ErrInvalidAmount
	}
	if req.QuotedOut == nil || req.QuotedOut.Sign() < 0 {
		return nil, ErrInvalidQuote
	}
	if req.PlatformFeeBps > types.MaxBps {
		return nil, ErrInvalidFee
	}
	if err := Validate(req.Plan, len(req.Accounts), req.SlippageBps); err != nil {
		return nil, err
	}
	var result *Result
	err := common.Atomic(e.state, func() error {
		r, err := e.execute(req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) execute(req Request) (*Result, error) {
	authority, err := e.escrow.Authority()
	if err != nil {
		return nil, err
	}
	sourceVault := req.Accounts[req.Plan.Steps[0].InputIndex]
	if err := e.escrow.DepositTo(req.SourceAccount, sourceVault, req.InAmount); err != nil {
		return nil, err
	}
	// Amounts produced within this call, keyed by vault address. Residual
	// vault balances from earlier calls never leak into the aggregate.
	available := map[[20]byte]*big.Int{
		sourceVault: types.CloneBigInt(req.InAmount),
	}
	steps := 0
	var finalVault [20]byte
	for _, hop := range req.Plan.hopGroups() {
		hopVault := req.Accounts[hop[0].InputIndex]
		hopInput := available[hopVault]
		if hopInput == nil || hopInput.Sign() <= 0 {
			return nil, ErrNoOutputProduced
		}
		for _, step := range hop {
			// Each split leg takes its percent of the hop input,
			// rounded down; rounding dust stays escrowed.
			amount := new(big.Int).Mul(hopInput, big.NewInt(int64(step.Percent)))
			amount.Div(amount, big.NewInt(100))
			if amount.Sign() == 0 {
				return nil, ErrNoOutputProduced
			}
			out, ctx, err := e.runStep(req, step, authority.Address, amount)
			if err != nil {
				return nil, err
			}
			inVault := req.Accounts[step.InputIndex]
			outVault := req.Accounts[step.OutputIndex]
			available[inVault] = new(big.Int).Sub(available[inVault], amount)
			if available[outVault] == nil {
				available[outVault] = big.NewInt(0)
			}
			available[outVault] = new(big.Int).Add(available[outVault], out)
			finalVault = outVault
			steps++
			e.emitter.Emit(events.SwapExecuted{
				Adapter:    step.Swap.String(),
				Pool:       ctx.PoolAccount(),
				Program:    ctx.Program,
				InputMint:  ctx.InputMint,
				OutputMint: ctx.OutputMint,
				AmountIn:   amount,
				AmountOut:  out,
			})
		}
	}
	output := available[finalVault]
	if output == nil || output.Sign() == 0 {
		return nil, ErrNoOutputProduced
	}
	applied, err := fees.Apply(output, req.PlatformFeeBps)
	if err != nil {
		return nil, ErrInvalidFee
	}
	minOut, err := fees.MinimumOut(req.QuotedOut, req.SlippageBps)
	if err != nil {
		return nil, ErrInvalidSlippage
	}
	if applied.Net.Cmp(minOut) < 0 {
		return nil, ErrSlippageExceeded
	}
	if err := e.escrow.CollectFeeFrom(finalVault, applied.Fee); err != nil {
		return nil, err
	}
	if err := e.escrow.ReleaseFrom(finalVault, req.DestinationAccount, applied.Net); err != nil {
		return nil, err
	}
	outVaultRecord, err := e.escrow.VaultAt(finalVault)
	if err != nil {
		return nil, err
	}
	inVaultRecord, err := e.escrow.VaultAt(sourceVault)
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.RouteExecuted{
		Caller:     req.Caller,
		InputMint:  inVaultRecord.Mint,
		OutputMint: outVaultRecord.Mint,
		AmountIn:   req.InAmount,
		AmountOut:  applied.Net,
		Fee:        applied.Fee,
		Steps:      steps,
	})
	return &Result{Output: output, Fee: applied.Fee, Net: applied.Net, Steps: steps}, nil
}

func (e *Engine) runStep(req Request, step Step, authority [20]byte, amount *big.Int) (*big.Int, *dex.SwapContext, error) {
	inVault, err := e.escrow.VaultAt(req.Accounts[step.InputIndex])
	if err != nil {
		return nil, nil, err
	}
	outVault, err := e.escrow.VaultAt(req.Accounts[step.OutputIndex])
	if err != nil {
		return nil, nil, err
	}
	stepAccounts := make([][20]byte, len(step.Accounts))
	for i, idx := range step.Accounts {
		stepAccounts[i] = req.Accounts[idx]
	}
	ctx := &dex.SwapContext{
		Ledger:      e.state,
		Host:        e.host,
		Accounts:    stepAccounts,
		Authority:   authority,
		SourceVault: inVault.Address,
		DestVault:   outVault.Address,
		InputMint:   inVault.Mint,
		OutputMint:  outVault.Mint,
	}
	out, err := e.dispatch.Execute(ctx, step.Swap, amount)
	if err != nil {
		return nil, nil, err
	}
	return out, ctx, nil
}
