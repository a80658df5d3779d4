package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/limitorder"
	"routevault/native/registry"
)

// Stored record layouts. RLP has no signed integer support, so timestamps
// are persisted as uint64.

type storedAuthority struct {
	Address    [20]byte
	Admin      [20]byte
	Aggregator [20]byte
	CreatedAt  uint64
}

type storedVault struct {
	Address   [20]byte
	Mint      [20]byte
	Standard  uint8
	CreatedAt uint64
}

type storedAdapter struct {
	Name      string
	ProgramID [20]byte
	SwapType  uint8
	Enabled   bool
}

type storedRegistry struct {
	Authority [20]byte
	Operators [][20]byte
	Adapters  []storedAdapter
}

type storedPool struct {
	SwapType uint8
	Address  [20]byte
	Enabled  bool
}

type storedManager struct {
	Address [20]byte
}

type storedOrder struct {
	Address         [20]byte
	Creator         [20]byte
	Nonce           uint64
	InputMint       [20]byte
	OutputMint      [20]byte
	Vault           [20]byte
	InAmount        *big.Int
	MinOut          *big.Int
	TriggerPriceBps uint64
	Kind            uint8
	ExpiresAt       uint64
	SlippageBps     uint32
	Destination     [20]byte
	Status          uint8
	CreatedAt       uint64
	UpdatedAt       uint64
}

func (s *State) putRecord(key []byte, record interface{}) error {
	encoded, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	s.set(key, encoded)
	return nil
}

func (s *State) getRecord(key []byte, out interface{}) (bool, error) {
	raw, ok, err := s.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

// AuthorityPut persists the escrow authority singleton.
func (s *State) AuthorityPut(authority *escrow.Authority) error {
	return s.putRecord(escrowAuthorityKey, storedAuthority{
		Address:    authority.Address,
		Admin:      authority.Admin,
		Aggregator: authority.Aggregator,
		CreatedAt:  uint64(authority.CreatedAt),
	})
}

// AuthorityGet loads the escrow authority singleton.
func (s *State) AuthorityGet() (*escrow.Authority, bool) {
	var stored storedAuthority
	ok, err := s.getRecord(escrowAuthorityKey, &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &escrow.Authority{
		Address:    stored.Address,
		Admin:      stored.Admin,
		Aggregator: stored.Aggregator,
		CreatedAt:  int64(stored.CreatedAt),
	}, true
}

// VaultPut persists a vault record under its address.
func (s *State) VaultPut(vault *escrow.Vault) error {
	return s.putRecord(escrowVaultKey(vault.Address), storedVault{
		Address:   vault.Address,
		Mint:      vault.Mint,
		Standard:  uint8(vault.Standard),
		CreatedAt: uint64(vault.CreatedAt),
	})
}

// VaultGet loads the vault record at the given address.
func (s *State) VaultGet(addr [20]byte) (*escrow.Vault, bool) {
	var stored storedVault
	ok, err := s.getRecord(escrowVaultKey(addr), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &escrow.Vault{
		Address:   stored.Address,
		Mint:      stored.Mint,
		Standard:  escrow.TokenStandard(stored.Standard),
		CreatedAt: int64(stored.CreatedAt),
	}, true
}

// VaultDelete removes the vault record at the given address.
func (s *State) VaultDelete(addr [20]byte) error {
	s.delete(escrowVaultKey(addr))
	return nil
}

// RegistryPut persists the adapter registry singleton.
func (s *State) RegistryPut(reg *registry.Registry) error {
	stored := storedRegistry{
		Authority: reg.Authority,
		Operators: reg.Operators,
		Adapters:  make([]storedAdapter, len(reg.Adapters)),
	}
	for i, adapter := range reg.Adapters {
		stored.Adapters[i] = storedAdapter{
			Name:      adapter.Name,
			ProgramID: adapter.ProgramID,
			SwapType:  uint8(adapter.SwapType),
			Enabled:   adapter.Enabled,
		}
	}
	return s.putRecord(registryKey, stored)
}

// RegistryGet loads the adapter registry singleton.
func (s *State) RegistryGet() (*registry.Registry, bool) {
	var stored storedRegistry
	ok, err := s.getRecord(registryKey, &stored)
	if err != nil || !ok {
		return nil, false
	}
	reg := &registry.Registry{
		Authority: stored.Authority,
		Operators: stored.Operators,
		Adapters:  make([]registry.Adapter, len(stored.Adapters)),
	}
	for i, adapter := range stored.Adapters {
		reg.Adapters[i] = registry.Adapter{
			Name:      adapter.Name,
			ProgramID: adapter.ProgramID,
			SwapType:  dex.SwapType(adapter.SwapType),
			Enabled:   adapter.Enabled,
		}
	}
	return reg, true
}

// PoolPut persists a tracked pool record.
func (s *State) PoolPut(pool *registry.Pool) error {
	return s.putRecord(registryPoolKey(pool.SwapType, pool.Address), storedPool{
		SwapType: uint8(pool.SwapType),
		Address:  pool.Address,
		Enabled:  pool.Enabled,
	})
}

// PoolGet loads the tracked pool record for the swap type and address.
func (s *State) PoolGet(swapType dex.SwapType, addr [20]byte) (*registry.Pool, bool) {
	var stored storedPool
	ok, err := s.getRecord(registryPoolKey(swapType, addr), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &registry.Pool{
		SwapType: dex.SwapType(stored.SwapType),
		Address:  stored.Address,
		Enabled:  stored.Enabled,
	}, true
}

// ManagerPut persists the global manager singleton.
func (s *State) ManagerPut(manager *registry.Manager) error {
	return s.putRecord(managerKey, storedManager{Address: manager.Address})
}

// ManagerGet loads the global manager singleton.
func (s *State) ManagerGet() (*registry.Manager, bool) {
	var stored storedManager
	ok, err := s.getRecord(managerKey, &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &registry.Manager{Address: stored.Address}, true
}

// OrderPut persists a limit order record under its address.
func (s *State) OrderPut(order *limitorder.Order) error {
	stored := storedOrder{
		Address:         order.Address,
		Creator:         order.Creator,
		Nonce:           order.Nonce,
		InputMint:       order.InputMint,
		OutputMint:      order.OutputMint,
		Vault:           order.Vault,
		InAmount:        order.InAmount,
		MinOut:          order.MinOut,
		TriggerPriceBps: order.TriggerPriceBps,
		Kind:            uint8(order.Kind),
		ExpiresAt:       uint64(order.ExpiresAt),
		SlippageBps:     order.SlippageBps,
		Destination:     order.Destination,
		Status:          uint8(order.Status),
		CreatedAt:       uint64(order.CreatedAt),
		UpdatedAt:       uint64(order.UpdatedAt),
	}
	if stored.InAmount == nil {
		stored.InAmount = big.NewInt(0)
	}
	if stored.MinOut == nil {
		stored.MinOut = big.NewInt(0)
	}
	return s.putRecord(orderKey(order.Address), stored)
}

// OrderGet loads the limit order record at the given address.
func (s *State) OrderGet(addr [20]byte) (*limitorder.Order, bool) {
	var stored storedOrder
	ok, err := s.getRecord(orderKey(addr), &stored)
	if err != nil || !ok {
		return nil, false
	}
	return &limitorder.Order{
		Address:         stored.Address,
		Creator:         stored.Creator,
		Nonce:           stored.Nonce,
		InputMint:       stored.InputMint,
		OutputMint:      stored.OutputMint,
		Vault:           stored.Vault,
		InAmount:        stored.InAmount,
		MinOut:          stored.MinOut,
		TriggerPriceBps: stored.TriggerPriceBps,
		Kind:            limitorder.TriggerKind(stored.Kind),
		ExpiresAt:       int64(stored.ExpiresAt),
		SlippageBps:     stored.SlippageBps,
		Destination:     stored.Destination,
		Status:          limitorder.Status(stored.Status),
		CreatedAt:       int64(stored.CreatedAt),
		UpdatedAt:       int64(stored.UpdatedAt),
	}, true
}

// OrderDelete removes the limit order record at the given address.
func (s *State) OrderDelete(addr [20]byte) error {
	s.delete(orderKey(addr))
	return nil
}
