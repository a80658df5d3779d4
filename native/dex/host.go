package dex

import (
	"math/big"

	"routevault/crypto"
)

// Call is the payload handed to an external program. Accounts carries the
// step's account slice verbatim; Payload is opaque data only the delegated
// aggregator path uses.
type Call struct {
	Pool       [20]byte
	Accounts   [][20]byte
	Source     [20]byte
	Dest       [20]byte
	InputMint  [20]byte
	OutputMint [20]byte
	AmountIn   *big.Int
	MinimumOut *big.Int
	Payload    []byte
}

// Program is an external exchange protocol reachable through the host. The
// in-process implementations stand in for the foreign programs the engine
// composes with; they hold their own pool inventory in the shared ledger so
// every mutation they make participates in the call's snapshot.
type Program interface {
	Execute(ledger Ledger, call Call) (*big.Int, error)
}

// Host routes external calls to registered programs by address, the engine's
// analogue of cross-program invocation.
type Host struct {
	programs map[[20]byte]Program
}

// NewHost creates an empty program host.
func NewHost() *Host {
	return &Host{programs: make(map[[20]byte]Program)}
}

// Register installs a program at the given address, replacing any previous
// registration.
func (h *Host) Register(addr [20]byte, p Program) {
	h.programs[addr] = p
}

// Invoke dispatches a call to the program registered at addr.
func (h *Host) Invoke(addr [20]byte, ledger Ledger, call Call) (*big.Int, error) {
	program, ok := h.programs[addr]
	if !ok {
		return nil, ErrUnknownProgram
	}
	return program.Execute(ledger, call)
}

// PoolTokenAccount derives the token account holding a pool's inventory for
// one mint.
func PoolTokenAccount(pool, mint [20]byte) [20]byte {
	return crypto.DeriveAddress("pool-token", pool[:], mint[:])
}

// BucketAccount derives the address of a concentrated-liquidity range bucket.
func BucketAccount(pool [20]byte, index uint8) [20]byte {
	return crypto.DeriveAddress("bucket", pool[:], []byte{index})
}

// BinAccount derives the address of a bin-liquidity price bin.
func BinAccount(pool [20]byte, index uint8) [20]byte {
	return crypto.DeriveAddress("bin", pool[:], []byte{index})
}
