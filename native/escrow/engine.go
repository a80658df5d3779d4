package escrow

import (
	"errors"
	"math/big"
	"time"

	"routevault/core/events"
	"routevault/core/types"
	"routevault/native/common"
	"routevault/native/fees"
)

var errNilState = errors.New("escrow engine: state not configured")

const moduleName = "escrow"

type engineState interface {
	common.Snapshotter
	AuthorityPut(*Authority) error
	AuthorityGet() (*Authority, bool)
	VaultPut(*Vault) error
	VaultGet(addr [20]byte) (*Vault, bool)
	VaultDelete(addr [20]byte) error
	BalanceOf(account, mint [20]byte) *big.Int
	Credit(account, mint [20]byte, amount *big.Int) error
	Debit(account, mint [20]byte, amount *big.Int) error
}

type managerView interface {
	IsGlobalManager(addr [20]byte) bool
}

// Engine owns the escrow authority and the per-mint vault set. All value
// movement into or out of a vault goes through this engine; external callers
// never hold vault-moving authority directly.
type Engine struct {
	state     engineState
	managers  managerView
	collector *fees.Collector
	emitter   events.Emitter
	pauses    common.PauseView
	nowFn     func() int64
}

// NewEngine creates an escrow engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetManagerView configures the global manager lookup used for admin
// rotation.
func (e *Engine) SetManagerView(m managerView) { e.managers = m }

// SetCollector configures the platform fee collector.
func (e *Engine) SetCollector(c *fees.Collector) { e.collector = c }

// SetPauses configures the module pause switches.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Authority returns a copy of the authority record.
func (e *Engine) Authority() (*Authority, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	authority, ok := e.state.AuthorityGet()
	if !ok {
		return nil, ErrAuthorityNotFound
	}
	return authority.Clone(), nil
}

func (e *Engine) requireAdmin(caller [20]byte) (*Authority, error) {
	authority, err := e.Authority()
	if err != nil {
		return nil, err
	}
	if authority.Admin != caller {
		return nil, ErrNotAdmin
	}
	return authority, nil
}

// CreateAuthority creates the singleton escrow authority. Exactly one exists.
func (e *Engine) CreateAuthority(admin [20]byte) (*Authority, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	var created *Authority
	err := common.Atomic(e.state, func() error {
		if _, ok := e.state.AuthorityGet(); ok {
			return ErrAuthorityExists
		}
		created = &Authority{
			Address:   AuthorityAddress(),
			Admin:     admin,
			CreatedAt: e.now(),
		}
		return e.state.AuthorityPut(created)
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// ChangeAdmin rotates the authority admin. Restricted to the global
// super-admin.
func (e *Engine) ChangeAdmin(caller, next [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if e.managers == nil || !e.managers.IsGlobalManager(caller) {
		return ErrNotSuperAdmin
	}
	return common.Atomic(e.state, func() error {
		authority, err := e.Authority()
		if err != nil {
			return err
		}
		previous := authority.Admin
		authority.Admin = next
		if err := e.state.AuthorityPut(authority); err != nil {
			return err
		}
		e.emitter.Emit(events.AdminRotated{Previous: previous, Next: next})
		return nil
	})
}

// SetAggregator configures the single external aggregator identity the
// shared-route delegate accepts.
func (e *Engine) SetAggregator(caller, program [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		authority, err := e.requireAdmin(caller)
		if err != nil {
			return err
		}
		authority.Aggregator = program
		if err := e.state.AuthorityPut(authority); err != nil {
			return err
		}
		e.emitter.Emit(events.AggregatorSet{Program: program})
		return nil
	})
}

// CreateVault creates the vault for a mint at its derived address.
func (e *Engine) CreateVault(caller, mint [20]byte, standard TokenStandard) (*Vault, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !standard.Valid() {
		return nil, ErrInvalidStandard
	}
	var created *Vault
	err := common.Atomic(e.state, func() error {
		if _, err := e.requireAdmin(caller); err != nil {
			return err
		}
		addr := VaultAddress(mint)
		if _, ok := e.state.VaultGet(addr); ok {
			return ErrVaultExists
		}
		created = &Vault{
			Address:   addr,
			Mint:      mint,
			Standard:  standard,
			CreatedAt: e.now(),
		}
		if err := e.state.VaultPut(created); err != nil {
			return err
		}
		e.emitter.Emit(events.VaultCreated{Vault: addr, Mint: mint})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// CloseVault removes an empty vault.
func (e *Engine) CloseVault(caller, mint [20]byte) error {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return common.Atomic(e.state, func() error {
		if _, err := e.requireAdmin(caller); err != nil {
			return err
		}
		addr := VaultAddress(mint)
		vault, ok := e.state.VaultGet(addr)
		if !ok {
			return ErrVaultNotFound
		}
		if e.state.BalanceOf(addr, mint).Sign() != 0 {
			return ErrVaultNotEmpty
		}
		if err := e.state.VaultDelete(addr); err != nil {
			return err
		}
		e.emitter.Emit(events.VaultClosed{Vault: vault.Address, Mint: vault.Mint})
		return nil
	})
}

// Vault returns the vault record for a mint.
func (e *Engine) Vault(mint [20]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault, ok := e.state.VaultGet(VaultAddress(mint))
	if !ok {
		return nil, ErrVaultNotFound
	}
	return vault.Clone(), nil
}

// VaultAt returns the vault record stored at an address.
func (e *Engine) VaultAt(addr [20]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault, ok := e.state.VaultGet(addr)
	if !ok {
		return nil, ErrVaultNotFound
	}
	return vault.Clone(), nil
}

// VaultBalance reports the escrowed balance for a mint.
func (e *Engine) VaultBalance(mint [20]byte) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	return e.state.BalanceOf(VaultAddress(mint), mint)
}

// ProvisionVault creates a vault record at a caller-derived address, used
// for dedicated per-order vaults. The address is expected to come from a
// deterministic derivation owned by the calling engine.
func (e *Engine) ProvisionVault(addr, mint [20]byte) (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, ok := e.state.VaultGet(addr); ok {
		return nil, ErrVaultExists
	}
	vault := &Vault{
		Address:   addr,
		Mint:      mint,
		Standard:  TokenLegacy,
		CreatedAt: e.now(),
	}
	if err := e.state.VaultPut(vault); err != nil {
		return nil, err
	}
	e.emitter.Emit(events.VaultCreated{Vault: addr, Mint: mint})
	return vault.Clone(), nil
}

// RemoveVault deletes an empty vault record by address.
func (e *Engine) RemoveVault(addr [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	vault, ok := e.state.VaultGet(addr)
	if !ok {
		return ErrVaultNotFound
	}
	if e.state.BalanceOf(addr, vault.Mint).Sign() != 0 {
		return ErrVaultNotEmpty
	}
	if err := e.state.VaultDelete(addr); err != nil {
		return err
	}
	e.emitter.Emit(events.VaultClosed{Vault: vault.Address, Mint: vault.Mint})
	return nil
}

// BalanceAt reports the escrowed balance held by the vault at addr.
func (e *Engine) BalanceAt(addr [20]byte) *big.Int {
	if e == nil || e.state == nil {
		return big.NewInt(0)
	}
	vault, ok := e.state.VaultGet(addr)
	if !ok {
		return big.NewInt(0)
	}
	return e.state.BalanceOf(addr, vault.Mint)
}

// DepositTo moves funds from an external account into the vault at addr.
// This is the transfer-in leg of a route; the matching transfer-out must
// happen within the same atomic operation or not at all.
func (e *Engine) DepositTo(from, addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !types.IsPositive(amount) {
		return ErrInvalidAmount
	}
	vault, ok := e.state.VaultGet(addr)
	if !ok {
		return ErrVaultNotFound
	}
	if err := e.state.Debit(from, vault.Mint, amount); err != nil {
		return err
	}
	return e.state.Credit(vault.Address, vault.Mint, amount)
}

// ReleaseFrom moves funds out of the vault at addr to an external account
// under the authority's signature.
func (e *Engine) ReleaseFrom(addr, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if !types.IsPositive(amount) {
		return ErrInvalidAmount
	}
	vault, ok := e.state.VaultGet(addr)
	if !ok {
		return ErrVaultNotFound
	}
	if err := e.state.Debit(vault.Address, vault.Mint, amount); err != nil {
		return err
	}
	return e.state.Credit(to, vault.Mint, amount)
}

// Deposit moves funds from an external account into the per-mint vault.
func (e *Engine) Deposit(from, mint [20]byte, amount *big.Int) error {
	return e.DepositTo(from, VaultAddress(mint), amount)
}

// Release moves funds out of the per-mint vault to an external account.
func (e *Engine) Release(mint, to [20]byte, amount *big.Int) error {
	return e.ReleaseFrom(VaultAddress(mint), to, amount)
}

// CollectFeeFrom moves a computed platform fee from the vault at addr into
// the fee collector.
func (e *Engine) CollectFeeFrom(addr [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.collector == nil || amount == nil || amount.Sign() == 0 {
		return nil
	}
	vault, ok := e.state.VaultGet(addr)
	if !ok {
		return ErrVaultNotFound
	}
	return e.collector.Accrue(vault.Address, vault.Mint, amount)
}

// WithdrawFees pays accumulated platform fees for a mint out to the
// destination account. Admin only.
func (e *Engine) WithdrawFees(caller, mint, to [20]byte) (*big.Int, error) {
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if e.collector == nil {
		return nil, fees.ErrNothingAccrued
	}
	var withdrawn *big.Int
	err := common.Atomic(e.state, func() error {
		if _, err := e.requireAdmin(caller); err != nil {
			return err
		}
		amount, err := e.collector.Withdraw(mint, to)
		if err != nil {
			return err
		}
		withdrawn = amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	return withdrawn, nil
}
