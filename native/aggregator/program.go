package aggregator

import (
	"math/big"

	"routevault/core/types"
	"routevault/crypto"
	"routevault/native/dex"
)

// InventoryProgram is an in-process aggregator that fills delegated swaps
// from its own token inventory at a fixed quote. It stands in for the
// external aggregator in the daemon's single-process deployment and in
// tests; production deployments register their own dex.Program.
type InventoryProgram struct {
	address [20]byte
	rates   map[[2][20]byte]dex.Ratio
}

// NewInventoryProgram creates an inventory aggregator at the given address.
func NewInventoryProgram(address [20]byte) *InventoryProgram {
	return &InventoryProgram{
		address: address,
		rates:   make(map[[2][20]byte]dex.Ratio),
	}
}

// Address returns the program's address.
func (p *InventoryProgram) Address() [20]byte { return p.address }

// InventoryAccount derives the account holding the program's inventory.
func (p *InventoryProgram) InventoryAccount() [20]byte {
	return crypto.DeriveAddress("aggregator-inventory", p.address[:])
}

// SetRate quotes a pair at out-per-in and must be called before the pair can
// fill.
func (p *InventoryProgram) SetRate(inputMint, outputMint [20]byte, rate dex.Ratio) {
	p.rates[[2][20]byte{inputMint, outputMint}] = rate
}

// Fund seeds the program's inventory for a mint.
func (p *InventoryProgram) Fund(ledger dex.Ledger, mint [20]byte, amount *big.Int) error {
	return ledger.Credit(p.InventoryAccount(), mint, types.CloneBigInt(amount))
}

// Execute implements dex.Program: it pulls the escrowed input from the
// source vault into inventory and pays the quoted output to the destination
// vault.
func (p *InventoryProgram) Execute(ledger dex.Ledger, call dex.Call) (*big.Int, error) {
	rate, ok := p.rates[[2][20]byte{call.InputMint, call.OutputMint}]
	if !ok {
		return nil, dex.ErrInsufficientLiquidity
	}
	out := new(big.Int).Mul(call.AmountIn, new(big.Int).SetUint64(rate.Num))
	out.Div(out, new(big.Int).SetUint64(rate.Den))
	if out.Sign() <= 0 {
		return nil, dex.ErrInsufficientLiquidity
	}
	inventory := p.InventoryAccount()
	if ledger.BalanceOf(inventory, call.OutputMint).Cmp(out) < 0 {
		return nil, dex.ErrInsufficientLiquidity
	}
	if err := ledger.Debit(call.Source, call.InputMint, call.AmountIn); err != nil {
		return nil, err
	}
	if err := ledger.Credit(inventory, call.InputMint, call.AmountIn); err != nil {
		return nil, err
	}
	if err := ledger.Debit(inventory, call.OutputMint, out); err != nil {
		return nil, err
	}
	if err := ledger.Credit(call.Dest, call.OutputMint, out); err != nil {
		return nil, err
	}
	return out, nil
}
