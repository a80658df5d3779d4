package fees

import (
	"errors"
	"math/big"

	"routevault/core/events"
	"routevault/core/types"
	"routevault/crypto"
)

var (
	errNilLedger = errors.New("fees: ledger not configured")
	// ErrNothingAccrued is returned when a withdrawal targets a mint with no
	// accumulated fees.
	ErrNothingAccrued = errors.New("fees: nothing accrued for mint")
)

// Ledger is the balance surface the collector needs from the state backend.
type Ledger interface {
	BalanceOf(account, mint [20]byte) *big.Int
	Credit(account, mint [20]byte, amount *big.Int) error
	Debit(account, mint [20]byte, amount *big.Int) error
}

// Collector accumulates platform fees per mint in a derived fee vault and
// pays them out on demand. Authorization is the caller's concern; the escrow
// engine gates withdrawals on the authority admin.
type Collector struct {
	ledger  Ledger
	vault   [20]byte
	emitter events.Emitter
}

// NewCollector creates a collector over the supplied ledger.
func NewCollector(ledger Ledger) *Collector {
	return &Collector{
		ledger:  ledger,
		vault:   crypto.DeriveAddress("fee-vault"),
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (c *Collector) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// Vault returns the derived fee vault address.
func (c *Collector) Vault() [20]byte {
	return c.vault
}

// Accrue moves a computed fee from the source account into the fee vault.
// Zero fees are a no-op so fee-free routes skip the transfer entirely.
func (c *Collector) Accrue(source, mint [20]byte, amount *big.Int) error {
	if c == nil || c.ledger == nil {
		return errNilLedger
	}
	fee := types.CloneBigInt(amount)
	if fee.Sign() == 0 {
		return nil
	}
	if fee.Sign() < 0 {
		return ErrNegativeGross
	}
	if err := c.ledger.Debit(source, mint, fee); err != nil {
		return err
	}
	return c.ledger.Credit(c.vault, mint, fee)
}

// Accrued reports the fee balance held for a mint.
func (c *Collector) Accrued(mint [20]byte) *big.Int {
	if c == nil || c.ledger == nil {
		return big.NewInt(0)
	}
	return c.ledger.BalanceOf(c.vault, mint)
}

// Withdraw pays the full accrued balance for a mint out to the destination
// account.
func (c *Collector) Withdraw(mint, to [20]byte) (*big.Int, error) {
	if c == nil || c.ledger == nil {
		return nil, errNilLedger
	}
	balance := c.ledger.BalanceOf(c.vault, mint)
	if balance.Sign() == 0 {
		return nil, ErrNothingAccrued
	}
	if err := c.ledger.Debit(c.vault, mint, balance); err != nil {
		return nil, err
	}
	if err := c.ledger.Credit(to, mint, balance); err != nil {
		return nil, err
	}
	c.emitter.Emit(events.FeesWithdrawn{Mint: mint, To: to, Amount: balance})
	return balance, nil
}
