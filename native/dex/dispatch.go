package dex

import "math/big"

// RegistryView is the registry surface dispatch consults before any external
// call: the program identity enabled for a swap type and the status of the
// individual pool.
type RegistryView interface {
	SupportedAdapter(t SwapType) ([20]byte, bool)
	PoolStatus(t SwapType, pool [20]byte) error
}

// Dispatcher maps a swap-type tag to exactly one adapter implementation and
// gates execution on the adapter registry.
type Dispatcher struct {
	registry RegistryView
	adapters map[SwapType]Adapter
}

// NewDispatcher builds a dispatcher with the three supported exchange
// families installed.
func NewDispatcher(registry RegistryView) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		adapters: map[SwapType]Adapter{
			SwapConstantProduct: ConstantProductAdapter{},
			SwapConcentrated:    ConcentratedAdapter{},
			SwapBinLiquidity:    BinAdapter{},
		},
	}
}

// Resolve returns the adapter for a swap type.
func (d *Dispatcher) Resolve(t SwapType) (Adapter, error) {
	adapter, ok := d.adapters[t]
	if !ok {
		return nil, ErrSwapNotSupported
	}
	return adapter, nil
}

// Execute runs one step: resolves the adapter, checks the registry for the
// enabled program identity and pool status, then delegates to the adapter.
func (d *Dispatcher) Execute(ctx *SwapContext, t SwapType, amount *big.Int) (*big.Int, error) {
	adapter, err := d.Resolve(t)
	if err != nil {
		return nil, err
	}
	program, ok := d.registry.SupportedAdapter(t)
	if !ok {
		return nil, ErrSwapNotSupported
	}
	ctx.Program = program
	if err := d.registry.PoolStatus(t, ctx.PoolAccount()); err != nil {
		return nil, err
	}
	return adapter.ExecuteSwap(ctx, amount)
}
