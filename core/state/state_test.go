package state

import (
	"errors"
	"math/big"
	"testing"

	"routevault/native/escrow"
	"routevault/native/limitorder"
	"routevault/native/registry"
	"routevault/storage"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestSnapshotRevertRestoresBalances(t *testing.T) {
	st := New(storage.NewMemDB())
	account := addr(1)
	mint := addr(2)

	if err := st.Credit(account, mint, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	snap := st.Snapshot()
	if err := st.Credit(account, mint, big.NewInt(50)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := st.Debit(account, mint, big.NewInt(25)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if got := st.BalanceOf(account, mint); got.Cmp(big.NewInt(125)) != 0 {
		t.Fatalf("balance before revert = %s", got)
	}

	st.RevertToSnapshot(snap)
	if got := st.BalanceOf(account, mint); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance after revert = %s, want 100", got)
	}
}

func TestNestedSnapshots(t *testing.T) {
	st := New(storage.NewMemDB())
	account := addr(1)
	mint := addr(2)

	outer := st.Snapshot()
	if err := st.Credit(account, mint, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	inner := st.Snapshot()
	if err := st.Credit(account, mint, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	st.RevertToSnapshot(inner)
	if got := st.BalanceOf(account, mint); got.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("after inner revert = %s, want 10", got)
	}
	st.RevertToSnapshot(outer)
	if got := st.BalanceOf(account, mint); got.Sign() != 0 {
		t.Fatalf("after outer revert = %s, want 0", got)
	}
}

func TestDebitInsufficient(t *testing.T) {
	st := New(storage.NewMemDB())
	if err := st.Debit(addr(1), addr(2), big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestCommitPersists(t *testing.T) {
	db := storage.NewMemDB()
	st := New(db)
	account := addr(1)
	mint := addr(2)

	if err := st.Credit(account, mint, big.NewInt(42)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := st.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reopened := New(db)
	if got := reopened.BalanceOf(account, mint); got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("reopened balance = %s, want 42", got)
	}
}

func TestRevertAfterDelete(t *testing.T) {
	st := New(storage.NewMemDB())
	vault := &escrow.Vault{Address: addr(3), Mint: addr(4), CreatedAt: 7}
	if err := st.VaultPut(vault); err != nil {
		t.Fatalf("vault put: %v", err)
	}
	snap := st.Snapshot()
	if err := st.VaultDelete(vault.Address); err != nil {
		t.Fatalf("vault delete: %v", err)
	}
	if _, ok := st.VaultGet(vault.Address); ok {
		t.Fatal("vault still visible after delete")
	}
	st.RevertToSnapshot(snap)
	restored, ok := st.VaultGet(vault.Address)
	if !ok {
		t.Fatal("vault not restored by revert")
	}
	if restored.Mint != vault.Mint || restored.CreatedAt != vault.CreatedAt {
		t.Fatalf("restored vault mismatch: %+v", restored)
	}
}

func TestEscrowRecordRoundTrip(t *testing.T) {
	st := New(storage.NewMemDB())
	authority := &escrow.Authority{
		Address:    addr(1),
		Admin:      addr(2),
		Aggregator: addr(3),
		CreatedAt:  1700000000,
	}
	if err := st.AuthorityPut(authority); err != nil {
		t.Fatalf("authority put: %v", err)
	}
	loaded, ok := st.AuthorityGet()
	if !ok {
		t.Fatal("authority not found")
	}
	if *loaded != *authority {
		t.Fatalf("authority mismatch: %+v", loaded)
	}
}

func TestRegistryRecordRoundTrip(t *testing.T) {
	st := New(storage.NewMemDB())
	reg := &registry.Registry{
		Authority: addr(1),
		Operators: [][20]byte{addr(2), addr(3)},
		Adapters: []registry.Adapter{
			{Name: "cpmm", ProgramID: addr(4), SwapType: 1, Enabled: true},
			{Name: "clmm", ProgramID: addr(5), SwapType: 2, Enabled: false},
		},
	}
	if err := st.RegistryPut(reg); err != nil {
		t.Fatalf("registry put: %v", err)
	}
	loaded, ok := st.RegistryGet()
	if !ok {
		t.Fatal("registry not found")
	}
	if loaded.Authority != reg.Authority || len(loaded.Operators) != 2 || len(loaded.Adapters) != 2 {
		t.Fatalf("registry mismatch: %+v", loaded)
	}
	if loaded.Adapters[0] != reg.Adapters[0] || loaded.Adapters[1] != reg.Adapters[1] {
		t.Fatalf("adapters mismatch: %+v", loaded.Adapters)
	}
}

func TestOrderRecordRoundTrip(t *testing.T) {
	st := New(storage.NewMemDB())
	order := &limitorder.Order{
		Address:         addr(1),
		Creator:         addr(2),
		Nonce:           9,
		InputMint:       addr(3),
		OutputMint:      addr(4),
		Vault:           addr(5),
		InAmount:        big.NewInt(1_000_000),
		MinOut:          big.NewInt(900_000),
		TriggerPriceBps: 12_000,
		Kind:            limitorder.TriggerTakeProfit,
		ExpiresAt:       1800000000,
		SlippageBps:     100,
		Destination:     addr(6),
		Status:          limitorder.StatusOpen,
		CreatedAt:       1700000000,
		UpdatedAt:       1700000100,
	}
	if err := st.OrderPut(order); err != nil {
		t.Fatalf("order put: %v", err)
	}
	loaded, ok := st.OrderGet(order.Address)
	if !ok {
		t.Fatal("order not found")
	}
	if loaded.InAmount.Cmp(order.InAmount) != 0 || loaded.MinOut.Cmp(order.MinOut) != 0 {
		t.Fatalf("amounts mismatch: %+v", loaded)
	}
	if loaded.Status != limitorder.StatusOpen || loaded.Kind != limitorder.TriggerTakeProfit {
		t.Fatalf("enums mismatch: %+v", loaded)
	}
	if loaded.ExpiresAt != order.ExpiresAt || loaded.TriggerPriceBps != order.TriggerPriceBps {
		t.Fatalf("fields mismatch: %+v", loaded)
	}
	if err := st.OrderDelete(order.Address); err != nil {
		t.Fatalf("order delete: %v", err)
	}
	if _, ok := st.OrderGet(order.Address); ok {
		t.Fatal("order still present after delete")
	}
}
