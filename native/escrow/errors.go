package escrow

import "errors"

var (
	// ErrAuthorityExists is returned when the authority singleton has
	// already been created.
	ErrAuthorityExists = errors.New("escrow: authority already exists")
	// ErrAuthorityNotFound is returned when the authority has not been
	// created yet.
	ErrAuthorityNotFound = errors.New("escrow: authority not found")
	// ErrNotAdmin is returned when an operation requires the authority
	// admin.
	ErrNotAdmin = errors.New("escrow: caller is not the authority admin")
	// ErrNotSuperAdmin is returned when admin rotation is attempted by
	// anyone but the global manager.
	ErrNotSuperAdmin = errors.New("escrow: caller is not the global manager")
	// ErrVaultExists is returned when a vault for the mint already exists.
	ErrVaultExists = errors.New("escrow: vault already exists for mint")
	// ErrVaultNotFound is returned when no vault exists for the mint.
	ErrVaultNotFound = errors.New("escrow: vault not found")
	// ErrVaultNotEmpty is returned when closing a vault that still holds
	// funds.
	ErrVaultNotEmpty = errors.New("escrow: vault not empty")
	// ErrInvalidStandard is returned for an unknown token standard.
	ErrInvalidStandard = errors.New("escrow: invalid token standard")
	// ErrInvalidAmount is returned for nil, zero or negative transfer
	// amounts.
	ErrInvalidAmount = errors.New("escrow: amount must be positive")
)
