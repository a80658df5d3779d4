package dex

import (
	"errors"
	"math/big"
	"testing"

	"routevault/crypto"
)

type mapLedger struct {
	balances map[[40]byte]*big.Int
}

func newMapLedger() *mapLedger {
	return &mapLedger{balances: make(map[[40]byte]*big.Int)}
}

func ledgerKey(account, mint [20]byte) [40]byte {
	var key [40]byte
	copy(key[:20], account[:])
	copy(key[20:], mint[:])
	return key
}

func (l *mapLedger) BalanceOf(account, mint [20]byte) *big.Int {
	if balance, ok := l.balances[ledgerKey(account, mint)]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func (l *mapLedger) Credit(account, mint [20]byte, amount *big.Int) error {
	key := ledgerKey(account, mint)
	current, ok := l.balances[key]
	if !ok {
		current = big.NewInt(0)
	}
	l.balances[key] = new(big.Int).Add(current, amount)
	return nil
}

func (l *mapLedger) Debit(account, mint [20]byte, amount *big.Int) error {
	key := ledgerKey(account, mint)
	current, ok := l.balances[key]
	if !ok || current.Cmp(amount) < 0 {
		return errors.New("ledger: insufficient balance")
	}
	l.balances[key] = new(big.Int).Sub(current, amount)
	return nil
}

var (
	mintA        = crypto.DeriveAddress("mint-a")
	mintB        = crypto.DeriveAddress("mint-b")
	authority    = crypto.DeriveAddress("authority")
	tokenProgram = crypto.DeriveAddress("token-program")
	sourceVault  = crypto.DeriveAddress("vault", mintA[:])
	destVault    = crypto.DeriveAddress("vault", mintB[:])
)

func cpmmAccounts(program, pool [20]byte) [][20]byte {
	return [][20]byte{
		program,
		pool,
		crypto.DeriveAddress("pool-authority", pool[:]),
		sourceVault,
		destVault,
		PoolTokenAccount(pool, mintA),
		PoolTokenAccount(pool, mintB),
		mintA,
		mintB,
		authority,
		tokenProgram,
	}
}

func cpmmContext(ledger Ledger, host *Host, program, pool [20]byte) *SwapContext {
	return &SwapContext{
		Ledger:      ledger,
		Host:        host,
		Accounts:    cpmmAccounts(program, pool),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
}

func TestConstantProductAccountShape(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("cpmm"))
	pool := crypto.DeriveAddress("pool")
	adapter := ConstantProductAdapter{}

	ctx := cpmmContext(newMapLedger(), NewHost(), program, pool)
	if err := adapter.ValidateAccounts(ctx); err != nil {
		t.Fatalf("valid shape rejected: %v", err)
	}

	short := cpmmContext(newMapLedger(), NewHost(), program, pool)
	short.Accounts = short.Accounts[:10]
	if err := adapter.ValidateAccounts(short); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("short list: got %v", err)
	}

	swapped := cpmmContext(newMapLedger(), NewHost(), program, pool)
	swapped.Accounts[3], swapped.Accounts[4] = swapped.Accounts[4], swapped.Accounts[3]
	if err := adapter.ValidateAccounts(swapped); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("swapped vaults: got %v", err)
	}

	wrongPoolSide := cpmmContext(newMapLedger(), NewHost(), program, pool)
	wrongPoolSide.Accounts[5] = PoolTokenAccount(pool, mintB)
	if err := adapter.ValidateAccounts(wrongPoolSide); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("wrong pool token account: got %v", err)
	}

	badProgram := cpmmContext(newMapLedger(), NewHost(), program, pool)
	badProgram.Accounts[0] = crypto.DeriveAddress("impostor")
	if err := adapter.ValidateProgram(badProgram); !errors.Is(err, ErrProgramMismatch) {
		t.Fatalf("program mismatch: got %v", err)
	}
}

func TestConstantProductSwap(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("cpmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	cpmm := NewCpmmProgram()
	host.Register(program, cpmm)

	cfg := CpmmPool{MintA: mintA, MintB: mintB}
	if err := cpmm.CreatePool(ledger, pool, cfg, big.NewInt(1_000_000), big.NewInt(1_900_000)); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := ledger.Credit(sourceVault, mintA, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx := cpmmContext(ledger, host, program, pool)
	out, err := ConstantProductAdapter{}.ExecuteSwap(ctx, big.NewInt(1_000_000))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Int64() != 950_000 {
		t.Fatalf("out = %s, want 950000", out)
	}
	if got := ledger.BalanceOf(destVault, mintB); got.Int64() != 950_000 {
		t.Fatalf("dest vault = %s", got)
	}
	if got := ledger.BalanceOf(PoolTokenAccount(pool, mintA), mintA); got.Int64() != 2_000_000 {
		t.Fatalf("pool input reserve = %s", got)
	}
}

func TestConstantProductFee(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("cpmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	cpmm := NewCpmmProgram()
	host.Register(program, cpmm)

	// 100 bps pool fee trims the effective input to 99% before quoting.
	cfg := CpmmPool{MintA: mintA, MintB: mintB, FeeBps: 100}
	if err := cpmm.CreatePool(ledger, pool, cfg, big.NewInt(1_000_000), big.NewInt(1_000_000)); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := ledger.Credit(sourceVault, mintA, big.NewInt(100_000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := ConstantProductAdapter{}.ExecuteSwap(cpmmContext(ledger, host, program, pool), big.NewInt(100_000))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// effective = 99000, out = 1000000*99000/(1000000+99000) = 90081.
	if out.Int64() != 90_081 {
		t.Fatalf("out = %s, want 90081", out)
	}
}

func TestConstantProductEmptyPool(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("cpmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	cpmm := NewCpmmProgram()
	host.Register(program, cpmm)

	if err := cpmm.CreatePool(ledger, pool, CpmmPool{MintA: mintA, MintB: mintB}, big.NewInt(1_000), big.NewInt(0)); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := ledger.Credit(sourceVault, mintA, big.NewInt(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := ConstantProductAdapter{}.ExecuteSwap(cpmmContext(ledger, host, program, pool), big.NewInt(100))
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

// clmmAccounts builds the fixed A-oriented layout: vault3 and vault4 sit at
// the pool's A and B sides regardless of trade direction.
func clmmAccounts(program, pool, vault3, vault4 [20]byte, buckets int) [][20]byte {
	accounts := [][20]byte{
		program,
		pool,
		crypto.DeriveAddress("pool-config", pool[:]),
		vault3,
		vault4,
		PoolTokenAccount(pool, mintA),
		PoolTokenAccount(pool, mintB),
		mintA,
		mintB,
		authority,
		tokenProgram,
		crypto.DeriveAddress("observation", pool[:]),
		crypto.DeriveAddress("range-index", pool[:]),
		crypto.DeriveAddress("fee-account", pool[:]),
		crypto.DeriveAddress("reserved", pool[:]),
	}
	for i := 0; i < buckets; i++ {
		accounts = append(accounts, BucketAccount(pool, uint8(i)))
	}
	return accounts
}

func TestConcentratedVaultPairFollowsDirection(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("clmm"))
	pool := crypto.DeriveAddress("pool")
	adapter := ConcentratedAdapter{}

	aToB := &SwapContext{
		Accounts:    clmmAccounts(program, pool, sourceVault, destVault, 1),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	if err := adapter.ValidateAccounts(aToB); err != nil {
		t.Fatalf("a-to-b shape rejected: %v", err)
	}

	// B-to-A keeps the account layout A-oriented while the engine's source
	// and destination vaults flip.
	bToA := &SwapContext{
		Accounts:    clmmAccounts(program, pool, sourceVault, destVault, 1),
		Program:     program,
		Authority:   authority,
		SourceVault: destVault,
		DestVault:   sourceVault,
		InputMint:   mintB,
		OutputMint:  mintA,
	}
	if err := adapter.ValidateAccounts(bToA); err != nil {
		t.Fatalf("b-to-a shape rejected: %v", err)
	}

	unflipped := &SwapContext{
		Accounts:    clmmAccounts(program, pool, sourceVault, destVault, 1),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintB,
		OutputMint:  mintA,
	}
	if err := adapter.ValidateAccounts(unflipped); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("unflipped vault pair: got %v", err)
	}

	foreign := &SwapContext{
		Accounts:    clmmAccounts(program, pool, sourceVault, destVault, 1),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   crypto.DeriveAddress("mint-c"),
		OutputMint:  mintB,
	}
	if err := adapter.ValidateAccounts(foreign); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("foreign mint: got %v", err)
	}
}

func TestConcentratedSwapSpansBuckets(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("clmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	clmm := NewClmmProgram()
	host.Register(program, clmm)

	// Bucket 0 pays 1 B per A, bucket 1 pays 1 B per 2 A.
	cfg := ClmmPool{
		MintA:  mintA,
		MintB:  mintB,
		Prices: []Ratio{{Num: 1, Den: 1}, {Num: 1, Den: 2}},
	}
	liquidityA := []*big.Int{big.NewInt(0), big.NewInt(0)}
	liquidityB := []*big.Int{big.NewInt(100), big.NewInt(100)}
	if err := clmm.CreatePool(ledger, pool, cfg, liquidityA, liquidityB); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := ledger.Credit(sourceVault, mintA, big.NewInt(1_000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx := &SwapContext{
		Ledger:      ledger,
		Host:        host,
		Accounts:    clmmAccounts(program, pool, sourceVault, destVault, 2),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	out, err := ConcentratedAdapter{}.ExecuteSwap(ctx, big.NewInt(300))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	// 100 A drains bucket 0 for 100 B, the remaining 200 A buys 100 B from
	// bucket 1.
	if out.Int64() != 200 {
		t.Fatalf("out = %s, want 200", out)
	}

	// Both buckets are dry on the B side now.
	_, err = ConcentratedAdapter{}.ExecuteSwap(ctx, big.NewInt(10))
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
}

func dlmmAccounts(program, pool [20]byte, inMint, outMint [20]byte, bins []int) [][20]byte {
	accounts := [][20]byte{
		program,
		pool,
		crypto.DeriveAddress("bin-bitmap", pool[:]),
		sourceVault,
		destVault,
		PoolTokenAccount(pool, inMint),
		PoolTokenAccount(pool, outMint),
		inMint,
		outMint,
		authority,
		tokenProgram,
		crypto.DeriveAddress("oracle", pool[:]),
		crypto.DeriveAddress("host-fee", pool[:]),
		crypto.DeriveAddress("event-authority", pool[:]),
		program,
		crypto.DeriveAddress("reserved", pool[:]),
	}
	for _, i := range bins {
		accounts = append(accounts, BinAccount(pool, uint8(i)))
	}
	return accounts
}

func TestBinTailBounded(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("dlmm"))
	pool := crypto.DeriveAddress("pool")
	adapter := BinAdapter{}

	ctx := &SwapContext{
		Accounts:    dlmmAccounts(program, pool, mintA, mintB, []int{0}),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	if err := adapter.ValidateAccounts(ctx); err != nil {
		t.Fatalf("single bin rejected: %v", err)
	}

	bare := &SwapContext{
		Accounts:    dlmmAccounts(program, pool, mintA, mintB, nil),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	if err := adapter.ValidateAccounts(bare); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("empty tail: got %v", err)
	}

	over := &SwapContext{
		Accounts:    dlmmAccounts(program, pool, mintA, mintB, []int{0, 1, 2, 3, 4, 5}),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	if err := adapter.ValidateAccounts(over); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("six bins: got %v", err)
	}
}

func TestBinSwapWalksConsecutiveBins(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("dlmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	dlmm := NewDlmmProgram()
	host.Register(program, dlmm)

	cfg := DlmmPool{
		MintA:  mintA,
		MintB:  mintB,
		Prices: []Ratio{{Num: 1, Den: 1}, {Num: 1, Den: 1}, {Num: 1, Den: 1}},
	}
	liquidityA := []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
	liquidityB := []*big.Int{big.NewInt(100), big.NewInt(100), big.NewInt(100)}
	if err := dlmm.CreatePool(ledger, pool, cfg, liquidityA, liquidityB); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := ledger.Credit(sourceVault, mintA, big.NewInt(1_000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx := &SwapContext{
		Ledger:      ledger,
		Host:        host,
		Accounts:    dlmmAccounts(program, pool, mintA, mintB, []int{0, 1, 2}),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	out, err := BinAdapter{}.ExecuteSwap(ctx, big.NewInt(250))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Int64() != 250 {
		t.Fatalf("out = %s, want 250", out)
	}
	if got := ledger.BalanceOf(BinAccount(pool, 2), mintB); got.Int64() != 50 {
		t.Fatalf("bin 2 inventory = %s, want 50", got)
	}

	// The appended tail must start at the first bin with inventory.
	stale := &SwapContext{
		Ledger:      ledger,
		Host:        host,
		Accounts:    dlmmAccounts(program, pool, mintA, mintB, []int{0, 1}),
		Program:     program,
		Authority:   authority,
		SourceVault: sourceVault,
		DestVault:   destVault,
		InputMint:   mintA,
		OutputMint:  mintB,
	}
	if _, err := (BinAdapter{}).ExecuteSwap(stale, big.NewInt(10)); !errors.Is(err, ErrBadAccountShape) {
		t.Fatalf("stale tail: got %v", err)
	}
}

func TestBinSwapReverseDirection(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("dlmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	dlmm := NewDlmmProgram()
	host.Register(program, dlmm)

	cfg := DlmmPool{
		MintA:  mintA,
		MintB:  mintB,
		Prices: []Ratio{{Num: 1, Den: 1}, {Num: 1, Den: 1}, {Num: 1, Den: 1}},
	}
	liquidityA := []*big.Int{big.NewInt(100), big.NewInt(100), big.NewInt(100)}
	liquidityB := []*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(0)}
	if err := dlmm.CreatePool(ledger, pool, cfg, liquidityA, liquidityB); err != nil {
		t.Fatalf("create pool: %v", err)
	}

	reverseSource := crypto.DeriveAddress("vault", mintB[:])
	reverseDest := crypto.DeriveAddress("vault", mintA[:])
	if err := ledger.Credit(reverseSource, mintB, big.NewInt(200)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// B-to-A walks bins downward from the top.
	accounts := dlmmAccounts(program, pool, mintB, mintA, []int{2, 1})
	ctx := &SwapContext{
		Ledger:      ledger,
		Host:        host,
		Accounts:    accounts,
		Program:     program,
		Authority:   authority,
		SourceVault: reverseSource,
		DestVault:   reverseDest,
		InputMint:   mintB,
		OutputMint:  mintA,
	}
	ctx.Accounts[3] = reverseSource
	ctx.Accounts[4] = reverseDest
	out, err := BinAdapter{}.ExecuteSwap(ctx, big.NewInt(150))
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out.Int64() != 150 {
		t.Fatalf("out = %s, want 150", out)
	}
	if got := ledger.BalanceOf(BinAccount(pool, 1), mintA); got.Int64() != 50 {
		t.Fatalf("bin 1 inventory = %s, want 50", got)
	}
}

type stubRegistry struct {
	program [20]byte
	enabled bool
	poolErr error
}

func (s stubRegistry) SupportedAdapter(SwapType) ([20]byte, bool) { return s.program, s.enabled }

func (s stubRegistry) PoolStatus(SwapType, [20]byte) error { return s.poolErr }

func TestDispatcherGatesOnRegistry(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("cpmm"))
	pool := crypto.DeriveAddress("pool")

	d := NewDispatcher(stubRegistry{program: program, enabled: true})
	if _, err := d.Resolve(SwapType(99)); !errors.Is(err, ErrSwapNotSupported) {
		t.Fatalf("unknown type: got %v", err)
	}

	disabled := NewDispatcher(stubRegistry{enabled: false})
	ctx := cpmmContext(newMapLedger(), NewHost(), program, pool)
	if _, err := disabled.Execute(ctx, SwapConstantProduct, big.NewInt(1)); !errors.Is(err, ErrSwapNotSupported) {
		t.Fatalf("unregistered adapter: got %v", err)
	}

	paused := NewDispatcher(stubRegistry{program: program, enabled: true, poolErr: ErrPoolDisabled})
	if _, err := paused.Execute(ctx, SwapConstantProduct, big.NewInt(1)); !errors.Is(err, ErrPoolDisabled) {
		t.Fatalf("disabled pool: got %v", err)
	}
}

func TestDispatcherSetsProgramFromRegistry(t *testing.T) {
	program := crypto.DeriveAddress("program", []byte("cpmm"))
	pool := crypto.DeriveAddress("pool")
	ledger := newMapLedger()
	host := NewHost()
	cpmm := NewCpmmProgram()
	host.Register(program, cpmm)

	if err := cpmm.CreatePool(ledger, pool, CpmmPool{MintA: mintA, MintB: mintB}, big.NewInt(1_000), big.NewInt(1_000)); err != nil {
		t.Fatalf("create pool: %v", err)
	}
	if err := ledger.Credit(sourceVault, mintA, big.NewInt(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	d := NewDispatcher(stubRegistry{program: program, enabled: true})
	ctx := cpmmContext(ledger, host, program, pool)
	ctx.Program = [20]byte{} // dispatch fills this in from the registry
	out, err := d.Execute(ctx, SwapConstantProduct, big.NewInt(100))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Sign() <= 0 {
		t.Fatalf("out = %s", out)
	}
	if ctx.Program != program {
		t.Fatalf("program not resolved from registry")
	}
}

func TestHostRejectsUnknownProgram(t *testing.T) {
	host := NewHost()
	_, err := host.Invoke(crypto.DeriveAddress("nowhere"), newMapLedger(), Call{})
	if !errors.Is(err, ErrUnknownProgram) {
		t.Fatalf("expected ErrUnknownProgram, got %v", err)
	}
}
