package escrow

import "routevault/crypto"

// TokenStandard distinguishes the two token program families a vault can
// custody.
type TokenStandard uint8

const (
	// TokenLegacy is the original token program.
	TokenLegacy TokenStandard = iota
	// Token2022 is the extensions-aware token program.
	Token2022
)

// Valid reports whether the standard is a supported value.
func (s TokenStandard) Valid() bool {
	return s == TokenLegacy || s == Token2022
}

// Authority is the single signer empowering all vault transfers. It has no
// independent owner: its address is derived from a fixed label, and only the
// engine moves funds on its behalf.
type Authority struct {
	Address    [20]byte
	Admin      [20]byte
	Aggregator [20]byte // delegated aggregator program, zero until configured
	CreatedAt  int64
}

// Vault is a per-mint custodial holding account exclusively owned by the
// escrow authority. Its balance lives in the ledger under the vault address.
type Vault struct {
	Address   [20]byte
	Mint      [20]byte
	Standard  TokenStandard
	CreatedAt int64
}

// AuthorityAddress derives the singleton escrow authority address.
func AuthorityAddress() [20]byte {
	return crypto.DeriveAddress("escrow-authority")
}

// VaultAddress derives the vault address for a mint.
func VaultAddress(mint [20]byte) [20]byte {
	return crypto.DeriveAddress("vault", mint[:])
}

// Clone returns a deep copy of the authority record.
func (a *Authority) Clone() *Authority {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// Clone returns a deep copy of the vault record.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}
