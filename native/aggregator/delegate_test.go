package aggregator_test

import (
	"errors"
	"math/big"
	"testing"

	"routevault/core/state"
	"routevault/crypto"
	"routevault/native/aggregator"
	"routevault/native/dex"
	"routevault/native/escrow"
	"routevault/native/fees"
	"routevault/native/router"
	"routevault/storage"
)

type recordingProgram struct {
	inner   dex.Program
	invoked bool
}

func (r *recordingProgram) Execute(ledger dex.Ledger, call dex.Call) (*big.Int, error) {
	r.invoked = true
	return r.inner.Execute(ledger, call)
}

type fixture struct {
	st        *state.State
	escrow    *escrow.Engine
	delegate  *aggregator.Delegate
	inventory *aggregator.InventoryProgram
	recorder  *recordingProgram
	admin     [20]byte
	user      [20]byte
	mintA     [20]byte
	mintB     [20]byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.New(storage.NewMemDB())
	f := &fixture{
		st:    st,
		admin: crypto.DeriveAddress("admin"),
		user:  crypto.DeriveAddress("user"),
		mintA: crypto.DeriveAddress("mint-a"),
		mintB: crypto.DeriveAddress("mint-b"),
	}

	f.escrow = escrow.NewEngine()
	f.escrow.SetState(st)
	f.escrow.SetCollector(fees.NewCollector(st))
	if _, err := f.escrow.CreateAuthority(f.admin); err != nil {
		t.Fatalf("create authority: %v", err)
	}
	if _, err := f.escrow.CreateVault(f.admin, f.mintA, escrow.TokenLegacy); err != nil {
		t.Fatalf("create vault a: %v", err)
	}
	if _, err := f.escrow.CreateVault(f.admin, f.mintB, escrow.TokenLegacy); err != nil {
		t.Fatalf("create vault b: %v", err)
	}

	program := crypto.DeriveAddress("shared-aggregator")
	f.inventory = aggregator.NewInventoryProgram(program)
	f.recorder = &recordingProgram{inner: f.inventory}
	host := dex.NewHost()
	host.Register(program, f.recorder)
	if err := f.escrow.SetAggregator(f.admin, program); err != nil {
		t.Fatalf("set aggregator: %v", err)
	}

	f.delegate = aggregator.NewDelegate(f.escrow, host)
	f.delegate.SetState(st)
	return f
}

// accounts builds the minimum delegated account list with the four alias
// positions filled in.
func (f *fixture) accounts(t *testing.T) [][20]byte {
	t.Helper()
	authority, err := f.escrow.Authority()
	if err != nil {
		t.Fatalf("authority: %v", err)
	}
	list := make([][20]byte, 13)
	list[0] = f.inventory.Address()
	list[1] = authority.Address
	list[2] = escrow.VaultAddress(f.mintA)
	list[3] = escrow.VaultAddress(f.mintB)
	for i := 4; i < len(list); i++ {
		list[i] = crypto.DeriveAddress("filler", []byte{byte(i)})
	}
	return list
}

func (f *fixture) request(t *testing.T) aggregator.Request {
	return aggregator.Request{
		Caller:             f.user,
		SourceAccount:      f.user,
		DestinationAccount: f.user,
		InputMint:          f.mintA,
		OutputMint:         f.mintB,
		Accounts:           f.accounts(t),
		Payload:            []byte{0x01, 0x02},
		InAmount:           big.NewInt(1_000),
		QuotedOut:          big.NewInt(2_000),
		SlippageBps:        100,
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	if err := f.st.Credit(f.user, f.mintA, big.NewInt(1_000)); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	f.inventory.SetRate(f.mintA, f.mintB, dex.Ratio{Num: 2, Den: 1})
	if err := f.inventory.Fund(f.st, f.mintB, big.NewInt(10_000)); err != nil {
		t.Fatalf("fund inventory: %v", err)
	}
}

func TestDelegatedRoute(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	res, err := f.delegate.Route(f.request(t))
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if res.Net.Int64() != 2_000 || res.Fee.Sign() != 0 || res.Steps != 1 {
		t.Fatalf("result = net %s fee %s steps %d", res.Net, res.Fee, res.Steps)
	}
	if got := f.st.BalanceOf(f.user, f.mintB); got.Int64() != 2_000 {
		t.Fatalf("user output balance = %s", got)
	}
	if got := f.st.BalanceOf(f.user, f.mintA); got.Sign() != 0 {
		t.Fatalf("user input balance = %s", got)
	}
	if !f.recorder.invoked {
		t.Fatalf("delegated call never issued")
	}
}

func TestDelegatedRouteWithholdsPlatformFee(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	req := f.request(t)
	req.PlatformFeeBps = 25
	res, err := f.delegate.Route(req)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if res.Fee.Int64() != 5 || res.Net.Int64() != 1_995 {
		t.Fatalf("fee = %s net = %s", res.Fee, res.Net)
	}
	if got := f.st.BalanceOf(f.user, f.mintB); got.Int64() != 1_995 {
		t.Fatalf("user output balance = %s", got)
	}
}

func TestSourceAliasMismatchStopsBeforeDelegation(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	req := f.request(t)
	req.Accounts[2] = crypto.DeriveAddress("attacker-source")
	_, err := f.delegate.Route(req)
	if !errors.Is(err, aggregator.ErrSourceMismatch) {
		t.Fatalf("expected ErrSourceMismatch, got %v", err)
	}
	if f.recorder.invoked {
		t.Fatalf("delegated call issued despite alias mismatch")
	}
	if got := f.st.BalanceOf(f.user, f.mintA); got.Int64() != 1_000 {
		t.Fatalf("user balance touched: %s", got)
	}
}

func TestAliasPositionsChecked(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	wrongAuthority := f.request(t)
	wrongAuthority.Accounts[1] = crypto.DeriveAddress("impostor")
	if _, err := f.delegate.Route(wrongAuthority); !errors.Is(err, aggregator.ErrAuthorityMismatch) {
		t.Fatalf("authority: got %v", err)
	}

	wrongDest := f.request(t)
	wrongDest.Accounts[3] = crypto.DeriveAddress("attacker-dest")
	if _, err := f.delegate.Route(wrongDest); !errors.Is(err, aggregator.ErrDestinationMismatch) {
		t.Fatalf("destination: got %v", err)
	}

	wrongProgram := f.request(t)
	wrongProgram.Accounts[0] = crypto.DeriveAddress("impostor-program")
	if _, err := f.delegate.Route(wrongProgram); !errors.Is(err, aggregator.ErrInvalidAggregatorProgram) {
		t.Fatalf("program: got %v", err)
	}

	short := f.request(t)
	short.Accounts = short.Accounts[:12]
	if _, err := f.delegate.Route(short); !errors.Is(err, aggregator.ErrNotEnoughAccounts) {
		t.Fatalf("short list: got %v", err)
	}

	if f.recorder.invoked {
		t.Fatalf("delegated call issued despite failed validation")
	}
}

func TestUnconfiguredAggregatorRejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	// Reset the aggregator identity on the authority.
	if err := f.escrow.SetAggregator(f.admin, [20]byte{}); err != nil {
		t.Fatalf("clear aggregator: %v", err)
	}
	_, err := f.delegate.Route(f.request(t))
	if !errors.Is(err, aggregator.ErrAggregatorNotConfigured) {
		t.Fatalf("expected ErrAggregatorNotConfigured, got %v", err)
	}
}

func TestDelegatedSlippageRevertsEverything(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	req := f.request(t)
	req.QuotedOut = big.NewInt(3_000)
	_, err := f.delegate.Route(req)
	if !errors.Is(err, router.ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	// The failed call must leave no trace: input back with the user, vaults
	// and inventory untouched.
	if got := f.st.BalanceOf(f.user, f.mintA); got.Int64() != 1_000 {
		t.Fatalf("user input balance = %s", got)
	}
	if got := f.escrow.VaultBalance(f.mintA); got.Sign() != 0 {
		t.Fatalf("source vault balance = %s", got)
	}
	if got := f.st.BalanceOf(f.inventory.InventoryAccount(), f.mintB); got.Int64() != 10_000 {
		t.Fatalf("inventory balance = %s", got)
	}
}

func TestDelegatedInsufficientInventory(t *testing.T) {
	f := newFixture(t)
	if err := f.st.Credit(f.user, f.mintA, big.NewInt(1_000)); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	f.inventory.SetRate(f.mintA, f.mintB, dex.Ratio{Num: 2, Den: 1})
	// Inventory holds less than the quoted fill.
	if err := f.inventory.Fund(f.st, f.mintB, big.NewInt(100)); err != nil {
		t.Fatalf("fund inventory: %v", err)
	}

	_, err := f.delegate.Route(f.request(t))
	if !errors.Is(err, dex.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if got := f.st.BalanceOf(f.user, f.mintA); got.Int64() != 1_000 {
		t.Fatalf("user input balance = %s", got)
	}
}
