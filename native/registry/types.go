package registry

import (
	"fmt"
	"strings"

	"routevault/native/dex"
)

// Adapter is one enabled exchange integration: a human-readable name, the
// external program identity, and the swap-type tag dispatch keys on.
type Adapter struct {
	Name      string
	ProgramID [20]byte
	SwapType  dex.SwapType
	Enabled   bool
}

// Registry is the authoritative list of enabled protocols and the operator
// set allowed to act on limit orders. Created once, mutated by the authority
// and operators, never destroyed.
type Registry struct {
	Authority [20]byte
	Operators [][20]byte
	Adapters  []Adapter
}

// Pool is one tracked liquidity pool under a swap type. Pools are disabled,
// never deleted.
type Pool struct {
	SwapType dex.SwapType
	Address  [20]byte
	Enabled  bool
}

// Manager is the global super-admin singleton, created first-caller-wins and
// transferable.
type Manager struct {
	Address [20]byte
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := &Registry{Authority: r.Authority}
	if len(r.Operators) > 0 {
		clone.Operators = make([][20]byte, len(r.Operators))
		copy(clone.Operators, r.Operators)
	}
	if len(r.Adapters) > 0 {
		clone.Adapters = make([]Adapter, len(r.Adapters))
		copy(clone.Adapters, r.Adapters)
	}
	return clone
}

// IsOperator reports whether addr is in the operator set.
func (r *Registry) IsOperator(addr [20]byte) bool {
	if r == nil {
		return false
	}
	for _, op := range r.Operators {
		if op == addr {
			return true
		}
	}
	return false
}

// AdapterFor returns the adapter entry for a swap type.
func (r *Registry) AdapterFor(t dex.SwapType) (Adapter, bool) {
	if r == nil {
		return Adapter{}, false
	}
	for _, adapter := range r.Adapters {
		if adapter.SwapType == t {
			return adapter, true
		}
	}
	return Adapter{}, false
}

// NormalizeAdapterName canonicalises adapter names for storage.
func NormalizeAdapterName(name string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return "", fmt.Errorf("registry: adapter name must not be empty")
	}
	return trimmed, nil
}
