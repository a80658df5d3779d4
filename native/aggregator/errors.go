package aggregator

import "errors"

var (
	// ErrInvalidAggregatorProgram is returned when the delegated program
	// account does not match the configured aggregator identity.
	ErrInvalidAggregatorProgram = errors.New("aggregator: program does not match configured identity")
	// ErrNotEnoughAccounts is returned when the delegated account list is
	// shorter than the aggregator's minimum.
	ErrNotEnoughAccounts = errors.New("aggregator: not enough accounts for delegated call")
	// ErrAuthorityMismatch is returned when the delegated transfer
	// authority position does not alias the escrow authority.
	ErrAuthorityMismatch = errors.New("aggregator: transfer authority does not alias escrow authority")
	// ErrSourceMismatch is returned when the delegated user-source position
	// does not alias the engine's source vault.
	ErrSourceMismatch = errors.New("aggregator: user source does not alias source vault")
	// ErrDestinationMismatch is returned when the delegated
	// user-destination position does not alias the engine's destination
	// vault.
	ErrDestinationMismatch = errors.New("aggregator: user destination does not alias destination vault")
	// ErrAggregatorNotConfigured is returned when no aggregator identity
	// has been set on the escrow authority.
	ErrAggregatorNotConfigured = errors.New("aggregator: no aggregator program configured")
)
