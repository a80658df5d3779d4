package aggregator

import (
	"errors"
	"math/big"

	"routevault/core/events"
	"routevault/core/types"
	"routevault/native/common"
	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/fees"
	"routevault/native/router"
)

var errNilState = errors.New("aggregator delegate: state not configured")

const moduleName = "aggregator"

// Fixed positions in the delegated account list that must alias the engine's
// own escrow accounts.
const (
	posProgram     = 0
	posAuthority   = 1
	posUserSource  = 2
	posUserDest    = 3
	minAccountList = 13
)

type delegateState interface {
	common.Snapshotter
	dex.Ledger
}

// Delegate forwards an entire route to the single configured external
// aggregator program instead of per-step adapters. The engine still owns
// custody: input is escrowed first, and the delegated call's embedded
// account list must alias the engine's own vaults before the call is issued.
type Delegate struct {
	state   delegateState
	escrow  *escrow.Engine
	host    *dex.Host
	emitter events.Emitter
	pauses  common.PauseView
}

// NewDelegate creates a shared-route delegate.
func NewDelegate(esc *escrow.Engine, host *dex.Host) *Delegate {
	return &Delegate{
		escrow:  esc,
		host:    host,
		emitter: events.NoopEmitter{},
	}
}

// SetState configures the state backend used by the delegate.
func (d *Delegate) SetState(state delegateState) { d.state = state }

// SetPauses configures the module pause switches.
func (d *Delegate) SetPauses(p common.PauseView) { d.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (d *Delegate) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		d.emitter = events.NoopEmitter{}
		return
	}
	d.emitter = emitter
}

// Request carries one delegated route call. Payload is the opaque call data
// handed to the aggregator program untouched.
type Request struct {
	Caller             [20]byte
	SourceAccount      [20]byte
	DestinationAccount [20]byte
	InputMint          [20]byte
	OutputMint         [20]byte
	Accounts           [][20]byte
	Payload            []byte
	InAmount           *big.Int
	QuotedOut          *big.Int
	SlippageBps        uint32
	PlatformFeeBps     uint32
}

// Route executes the delegated request as one atomic operation. Fee
// application and slippage enforcement are identical to the per-step route
// executor.
func (d *Delegate) Route(req Request) (*router.Result, error) {
	if d == nil || d.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(d.pauses, moduleName); err != nil {
		return nil, err
	}
	if !types.IsPositive(req.InAmount) {
		return nil, router.ErrInvalidAmount
	}
	if req.QuotedOut == nil || req.QuotedOut.Sign() < 0 {
		return nil, router.ErrInvalidQuote
	}
	if req.SlippageBps > types.MaxBps {
		return nil, router.ErrInvalidSlippage
	}
	if req.PlatformFeeBps > types.MaxBps {
		return nil, router.ErrInvalidFee
	}
	if len(req.Accounts) < minAccountList {
		return nil, ErrNotEnoughAccounts
	}
	authority, err := d.escrow.Authority()
	if err != nil {
		return nil, err
	}
	if authority.Aggregator == types.ZeroAddress {
		return nil, ErrAggregatorNotConfigured
	}
	if req.Accounts[posProgram] != authority.Aggregator {
		return nil, ErrInvalidAggregatorProgram
	}
	sourceVault, err := d.escrow.Vault(req.InputMint)
	if err != nil {
		return nil, err
	}
	destVault, err := d.escrow.Vault(req.OutputMint)
	if err != nil {
		return nil, err
	}
	// Aliasing checks run before the delegated call is ever issued.
	if req.Accounts[posAuthority] != authority.Address {
		return nil, ErrAuthorityMismatch
	}
	if req.Accounts[posUserSource] != sourceVault.Address {
		return nil, ErrSourceMismatch
	}
	if req.Accounts[posUserDest] != destVault.Address {
		return nil, ErrDestinationMismatch
	}
	var result *router.Result
	err = common.Atomic(d.state, func() error {
		if err := d.escrow.DepositTo(req.SourceAccount, sourceVault.Address, req.InAmount); err != nil {
			return err
		}
		before := d.state.BalanceOf(destVault.Address, req.OutputMint)
		out, err := d.host.Invoke(authority.Aggregator, d.state, dex.Call{
			Accounts:   req.Accounts,
			Source:     sourceVault.Address,
			Dest:       destVault.Address,
			InputMint:  req.InputMint,
			OutputMint: req.OutputMint,
			AmountIn:   types.CloneBigInt(req.InAmount),
			MinimumOut: big.NewInt(0),
			Payload:    req.Payload,
		})
		if err != nil {
			return err
		}
		// Trust the vault delta over the program's reported output.
		delta := new(big.Int).Sub(d.state.BalanceOf(destVault.Address, req.OutputMint), before)
		if out == nil || out.Cmp(delta) > 0 {
			out = delta
		}
		if out.Sign() == 0 {
			return router.ErrNoOutputProduced
		}
		applied, err := fees.Apply(out, req.PlatformFeeBps)
		if err != nil {
			return router.ErrInvalidFee
		}
		minOut, err := fees.MinimumOut(req.QuotedOut, req.SlippageBps)
		if err != nil {
			return router.ErrInvalidSlippage
		}
		if applied.Net.Cmp(minOut) < 0 {
			return router.ErrSlippageExceeded
		}
		if err := d.escrow.CollectFeeFrom(destVault.Address, applied.Fee); err != nil {
			return err
		}
		if err := d.escrow.ReleaseFrom(destVault.Address, req.DestinationAccount, applied.Net); err != nil {
			return err
		}
		d.emitter.Emit(events.RouteExecuted{
			Caller:     req.Caller,
			InputMint:  req.InputMint,
			OutputMint: req.OutputMint,
			AmountIn:   req.InAmount,
			AmountOut:  applied.Net,
			Fee:        applied.Fee,
			Steps:      1,
			Delegated:  true,
		})
		result = &router.Result{Output: out, Fee: applied.Fee, Net: applied.Net, Steps: 1}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
