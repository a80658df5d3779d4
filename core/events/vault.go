package events

import (
	"math/big"

	"routevault/core/types"
	"routevault/crypto"
)

const (
	TypeVaultCreated  = "vault.created"
	TypeVaultClosed   = "vault.closed"
	TypeFeesWithdrawn = "vault.fees_withdrawn"
	TypeAdminRotated  = "authority.admin_rotated"
	TypeAggregatorSet = "authority.aggregator_set"
)

// VaultCreated records a new per-mint escrow vault.
type VaultCreated struct {
	Vault [20]byte
	Mint  [20]byte
}

func (VaultCreated) EventType() string { return TypeVaultCreated }

func (e VaultCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultCreated,
		Attributes: map[string]string{
			"vault": crypto.EncodeAddress(e.Vault),
			"mint":  crypto.EncodeAddress(e.Mint),
		},
	}
}

// VaultClosed records the removal of an empty vault.
type VaultClosed struct {
	Vault [20]byte
	Mint  [20]byte
}

func (VaultClosed) EventType() string { return TypeVaultClosed }

func (e VaultClosed) Event() *types.Event {
	return &types.Event{
		Type: TypeVaultClosed,
		Attributes: map[string]string{
			"vault": crypto.EncodeAddress(e.Vault),
			"mint":  crypto.EncodeAddress(e.Mint),
		},
	}
}

// FeesWithdrawn records accumulated platform fees leaving the fee vault.
type FeesWithdrawn struct {
	Mint   [20]byte
	To     [20]byte
	Amount *big.Int
}

func (FeesWithdrawn) EventType() string { return TypeFeesWithdrawn }

func (e FeesWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: TypeFeesWithdrawn,
		Attributes: map[string]string{
			"mint":   crypto.EncodeAddress(e.Mint),
			"to":     crypto.EncodeAddress(e.To),
			"amount": formatAmount(e.Amount),
		},
	}
}

// AdminRotated records a super-admin driven change of the escrow authority
// admin.
type AdminRotated struct {
	Previous [20]byte
	Next     [20]byte
}

func (AdminRotated) EventType() string { return TypeAdminRotated }

func (e AdminRotated) Event() *types.Event {
	return &types.Event{
		Type: TypeAdminRotated,
		Attributes: map[string]string{
			"previous": crypto.EncodeAddress(e.Previous),
			"next":     crypto.EncodeAddress(e.Next),
		},
	}
}

// AggregatorSet records configuration of the delegated aggregator program.
type AggregatorSet struct {
	Program [20]byte
}

func (AggregatorSet) EventType() string { return TypeAggregatorSet }

func (e AggregatorSet) Event() *types.Event {
	return &types.Event{
		Type: TypeAggregatorSet,
		Attributes: map[string]string{
			"program": crypto.EncodeAddress(e.Program),
		},
	}
}
