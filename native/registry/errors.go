package registry

import "errors"

var (
	// ErrRegistryExists is returned when initialising an already-initialised
	// registry.
	ErrRegistryExists = errors.New("registry: already initialised")
	// ErrRegistryNotFound is returned when the registry singleton has not
	// been created yet.
	ErrRegistryNotFound = errors.New("registry: not initialised")
	// ErrNotAuthority is returned when a mutation requires the registry
	// authority.
	ErrNotAuthority = errors.New("registry: caller is not the authority")
	// ErrNotOperator is returned when an operation requires an operator.
	ErrNotOperator = errors.New("registry: caller is not an operator")
	// ErrAdapterExists is returned when initialising a swap type twice.
	ErrAdapterExists = errors.New("registry: adapter already configured for swap type")
	// ErrAdapterNotFound is returned when configuring an unknown swap type.
	ErrAdapterNotFound = errors.New("registry: adapter not found for swap type")
	// ErrOperatorExists is returned when adding a duplicate operator.
	ErrOperatorExists = errors.New("registry: operator already present")
	// ErrOperatorNotFound is returned when removing an unknown operator.
	ErrOperatorNotFound = errors.New("registry: operator not present")
	// ErrPoolExists is returned when initialising a pool twice.
	ErrPoolExists = errors.New("registry: pool already tracked")
	// ErrManagerExists is returned when the global manager singleton already
	// exists.
	ErrManagerExists = errors.New("registry: global manager already created")
	// ErrNotManager is returned when an operation requires the global
	// manager.
	ErrNotManager = errors.New("registry: caller is not the global manager")
)
