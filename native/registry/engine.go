package registry

import (
	"errors"

	"routevault/native/common"
	"routevault/native/dex"
)

var errNilState = errors.New("registry engine: state not configured")

const moduleName = "registry"

type engineState interface {
	common.Snapshotter
	RegistryPut(*Registry) error
	RegistryGet() (*Registry, bool)
	PoolPut(*Pool) error
	PoolGet(swapType dex.SwapType, addr [20]byte) (*Pool, bool)
	ManagerPut(*Manager) error
	ManagerGet() (*Manager, bool)
}

// Engine owns the adapter registry, the tracked pool set and the global
// manager singleton.
type Engine struct {
	state  engineState
	pauses common.PauseView
}

// NewEngine creates a registry engine.
func NewEngine() *Engine {
	return &Engine{}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses configures the module pause switches.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

func (e *Engine) loadRegistry() (*Registry, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	reg, ok := e.state.RegistryGet()
	if !ok {
		return nil, ErrRegistryNotFound
	}
	return reg, nil
}

func (e *Engine) requireAuthority(caller [20]byte) (*Registry, error) {
	reg, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	if reg.Authority != caller {
		return nil, ErrNotAuthority
	}
	return reg, nil
}

func (e *Engine) requireAuthorized(caller [20]byte) (*Registry, error) {
	reg, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	if reg.Authority != caller && !reg.IsOperator(caller) {
		return nil, ErrNotOperator
	}
	return reg, nil
}

// Initialize creates the registry singleton with the supplied authority.
func (e *Engine) Initialize(authority [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		if _, ok := e.state.RegistryGet(); ok {
			return ErrRegistryExists
		}
		return e.state.RegistryPut(&Registry{Authority: authority})
	})
}

// InitializeAdapter enables a new exchange integration for a swap type.
func (e *Engine) InitializeAdapter(caller [20]byte, name string, programID [20]byte, swapType dex.SwapType) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	normalized, err := NormalizeAdapterName(name)
	if err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthorized(caller)
		if err != nil {
			return err
		}
		if _, ok := reg.AdapterFor(swapType); ok {
			return ErrAdapterExists
		}
		reg.Adapters = append(reg.Adapters, Adapter{
			Name:      normalized,
			ProgramID: programID,
			SwapType:  swapType,
			Enabled:   true,
		})
		return e.state.RegistryPut(reg)
	})
}

// ConfigureAdapter updates the name and program identity of an existing
// adapter and re-enables it.
func (e *Engine) ConfigureAdapter(caller [20]byte, name string, programID [20]byte, swapType dex.SwapType) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	normalized, err := NormalizeAdapterName(name)
	if err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthorized(caller)
		if err != nil {
			return err
		}
		for i := range reg.Adapters {
			if reg.Adapters[i].SwapType == swapType {
				reg.Adapters[i].Name = normalized
				reg.Adapters[i].ProgramID = programID
				reg.Adapters[i].Enabled = true
				return e.state.RegistryPut(reg)
			}
		}
		return ErrAdapterNotFound
	})
}

// DisableAdapter switches off dispatch for a swap type without removing the
// entry.
func (e *Engine) DisableAdapter(caller [20]byte, swapType dex.SwapType) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthorized(caller)
		if err != nil {
			return err
		}
		for i := range reg.Adapters {
			if reg.Adapters[i].SwapType == swapType {
				reg.Adapters[i].Enabled = false
				return e.state.RegistryPut(reg)
			}
		}
		return ErrAdapterNotFound
	})
}

// InitializePool starts tracking a pool under an already-configured swap
// type.
func (e *Engine) InitializePool(caller [20]byte, swapType dex.SwapType, address [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthorized(caller)
		if err != nil {
			return err
		}
		if _, ok := reg.AdapterFor(swapType); !ok {
			return ErrAdapterNotFound
		}
		if _, ok := e.state.PoolGet(swapType, address); ok {
			return ErrPoolExists
		}
		return e.state.PoolPut(&Pool{SwapType: swapType, Address: address, Enabled: true})
	})
}

// DisablePool soft-deletes a pool. The record stays so the pool can never be
// re-initialised behind the authority's back.
func (e *Engine) DisablePool(caller [20]byte, swapType dex.SwapType, address [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		if _, err := e.requireAuthorized(caller); err != nil {
			return err
		}
		pool, ok := e.state.PoolGet(swapType, address)
		if !ok {
			return dex.ErrPoolNotFound
		}
		pool.Enabled = false
		return e.state.PoolPut(pool)
	})
}

// AddOperator appends an operator. Authority only.
func (e *Engine) AddOperator(caller, operator [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthority(caller)
		if err != nil {
			return err
		}
		if reg.IsOperator(operator) {
			return ErrOperatorExists
		}
		reg.Operators = append(reg.Operators, operator)
		return e.state.RegistryPut(reg)
	})
}

// RemoveOperator deletes an operator. Authority only.
func (e *Engine) RemoveOperator(caller, operator [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthority(caller)
		if err != nil {
			return err
		}
		for i, op := range reg.Operators {
			if op == operator {
				reg.Operators = append(reg.Operators[:i], reg.Operators[i+1:]...)
				return e.state.RegistryPut(reg)
			}
		}
		return ErrOperatorNotFound
	})
}

// SetAuthority hands the registry to a new authority.
func (e *Engine) SetAuthority(caller, next [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthority(caller)
		if err != nil {
			return err
		}
		reg.Authority = next
		return e.state.RegistryPut(reg)
	})
}

// Reset clears the adapter and operator sets, keeping the authority. Tracked
// pools stay on record but become unreachable until their swap types are
// configured again.
func (e *Engine) Reset(caller [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		reg, err := e.requireAuthority(caller)
		if err != nil {
			return err
		}
		reg.Adapters = nil
		reg.Operators = nil
		return e.state.RegistryPut(reg)
	})
}

// IsOperator reports whether addr is an operator on the current registry.
func (e *Engine) IsOperator(addr [20]byte) bool {
	reg, err := e.loadRegistry()
	if err != nil {
		return false
	}
	return reg.IsOperator(addr)
}

// Registry returns a copy of the current registry record.
func (e *Engine) Registry() (*Registry, error) {
	reg, err := e.loadRegistry()
	if err != nil {
		return nil, err
	}
	return reg.Clone(), nil
}

// SupportedAdapter implements dex.RegistryView: it resolves the enabled
// program identity for a swap type.
func (e *Engine) SupportedAdapter(t dex.SwapType) ([20]byte, bool) {
	reg, err := e.loadRegistry()
	if err != nil {
		return [20]byte{}, false
	}
	adapter, ok := reg.AdapterFor(t)
	if !ok || !adapter.Enabled {
		return [20]byte{}, false
	}
	return adapter.ProgramID, true
}

// PoolStatus implements dex.RegistryView: unknown pools fail with
// dex.ErrPoolNotFound, disabled pools with dex.ErrPoolDisabled.
func (e *Engine) PoolStatus(t dex.SwapType, pool [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	record, ok := e.state.PoolGet(t, pool)
	if !ok {
		return dex.ErrPoolNotFound
	}
	if !record.Enabled {
		return dex.ErrPoolDisabled
	}
	return nil
}

// InitializeManager creates the global manager singleton, first caller wins.
func (e *Engine) InitializeManager(caller [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return common.Atomic(e.state, func() error {
		if _, ok := e.state.ManagerGet(); ok {
			return ErrManagerExists
		}
		return e.state.ManagerPut(&Manager{Address: caller})
	})
}

// TransferManager hands the super-admin role to a new address.
func (e *Engine) TransferManager(caller, next [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return common.Atomic(e.state, func() error {
		manager, ok := e.state.ManagerGet()
		if !ok || manager.Address != caller {
			return ErrNotManager
		}
		return e.state.ManagerPut(&Manager{Address: next})
	})
}

// IsGlobalManager reports whether addr holds the super-admin role.
func (e *Engine) IsGlobalManager(addr [20]byte) bool {
	if e == nil || e.state == nil {
		return false
	}
	manager, ok := e.state.ManagerGet()
	return ok && manager.Address == addr
}
