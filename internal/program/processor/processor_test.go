package processor

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/program/ledger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

const sol = program.LamportsPerSOL

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type()
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	p        *Processor
	l        *ledger.Ledger
	rec      *recorder
	admin    solana.PublicKey
	creator  solana.PublicKey
	mint     solana.PublicKey
	treasury solana.PublicKey
}

// referenceParams prices on real SOL only, so the textbook numbers apply.
func referenceParams() Params {
	params := DefaultParams()
	params.DefaultVirtualSol = 0
	params.LaunchFee = 0
	return params
}

func newFixture(t *testing.T, params Params, opts ...Option) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	rec := &recorder{}
	l := ledger.New(ledger.WithLogger(logger))
	opts = append([]Option{WithPublisher(rec)}, opts...)
	p, err := New(program.DefaultProgramID, l, params, logger, opts...)
	require.NoError(t, err)

	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		p:       p,
		l:       l,
		rec:     rec,
		admin:   solana.NewWallet().PublicKey(),
		creator: solana.NewWallet().PublicKey(),
	}
	_, err = p.Initialize(f.ctx, f.admin, 0, 5_000)
	require.NoError(t, err)
	f.treasury, err = p.Treasury()
	require.NoError(t, err)
	return f
}

func (f *fixture) wallet(lamports uint64) solana.PublicKey {
	w := solana.NewWallet().PublicKey()
	require.NoError(f.t, f.l.Airdrop(f.ctx, w, lamports))
	return w
}

func (f *fixture) launch(supply, solReserve uint64) {
	require.NoError(f.t, f.l.Airdrop(f.ctx, f.creator, solReserve+sol))
	res, err := f.p.Launch(f.ctx, f.creator, &instruction.Launch{
		TokenName:         "Paper Hands",
		Symbol:            "PHBT",
		URI:               "https://example.org/phbt.json",
		Decimals:          6,
		InitialSupply:     supply,
		InitialSolReserve: solReserve,
	})
	require.NoError(f.t, err)
	f.mint = res.Mint
}

func (f *fixture) pool() *state.Pool {
	_, pool, err := f.p.Pool(f.mint)
	require.NoError(f.t, err)
	return pool
}

func TestInitialize_Once(t *testing.T) {
	f := newFixture(t, DefaultParams())

	cfg, err := f.p.Config()
	require.NoError(t, err)
	assert.Equal(t, f.admin, cfg.Admin)
	assert.Equal(t, uint16(5_000), cfg.PaperhandTaxBps)
	assert.Equal(t, program.DefaultVirtualSol, cfg.DefaultVirtualSol)

	_, err = f.p.Initialize(f.ctx, f.admin, 0, 5_000)
	assert.ErrorIs(t, err, program.ErrAccountAlreadyInitialized)
}

func TestInitialize_RejectsInvalidRates(t *testing.T) {
	l := ledger.New()
	p, err := New(program.DefaultProgramID, l, DefaultParams(), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = p.Initialize(context.Background(), solana.NewWallet().PublicKey(), 10_001, 0)
	assert.ErrorIs(t, err, program.ErrInvalidFee)
	_, err = p.Initialize(context.Background(), solana.NewWallet().PublicKey(), 0, 10_001)
	assert.ErrorIs(t, err, program.ErrInvalidTaxBps)
	_, err = p.Config()
	assert.ErrorIs(t, err, program.ErrAccountNotFound)
}

func TestUpdateConfiguration_AdminOnly(t *testing.T) {
	f := newFixture(t, DefaultParams())
	before, err := f.p.Config()
	require.NoError(t, err)

	fee := uint16(250)
	_, err = f.p.UpdateConfiguration(f.ctx, solana.NewWallet().PublicKey(), &instruction.UpdateConfiguration{Fees: &fee})
	assert.ErrorIs(t, err, program.ErrUnauthorized)

	badFee := uint16(10_001)
	newTreasury := solana.NewWallet().PublicKey()
	_, err = f.p.UpdateConfiguration(f.ctx, f.admin, &instruction.UpdateConfiguration{Fees: &badFee, Treasury: &newTreasury})
	assert.ErrorIs(t, err, program.ErrInvalidFee)

	badTax := uint16(20_000)
	_, err = f.p.UpdateConfiguration(f.ctx, f.admin, &instruction.UpdateConfiguration{Treasury: &newTreasury, PaperhandTaxBps: &badTax})
	assert.ErrorIs(t, err, program.ErrInvalidTaxBps)

	after, err := f.p.Config()
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected updates must not touch the configuration")

	res, err := f.p.UpdateConfiguration(f.ctx, f.admin, &instruction.UpdateConfiguration{Fees: &fee, Treasury: &newTreasury})
	require.NoError(t, err)
	assert.Equal(t, fee, res.Config.Fees)
	assert.Equal(t, newTreasury, res.Config.Treasury)
	assert.Equal(t, before.PaperhandTaxBps, res.Config.PaperhandTaxBps)
}

func TestLaunch(t *testing.T) {
	params := DefaultParams()
	f := newFixture(t, params)
	f.launch(1_000_000_000_000_000, sol)

	pool := f.pool()
	assert.Equal(t, f.mint, pool.TokenOne)
	assert.Equal(t, solana.WrappedSol, pool.TokenTwo)
	assert.Equal(t, uint64(1_000_000_000_000_000), pool.TokenReserve())
	assert.Equal(t, sol, pool.RealSolReserve())
	assert.Equal(t, program.DefaultVirtualSol, pool.VirtualSolReserve)
	assert.False(t, pool.Legacy)

	global, err := f.p.derive.Global()
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000_000_000), f.l.TokenBalance(global.Key, f.mint))
	assert.Equal(t, sol, f.l.Lamports(global.Key))
	assert.Equal(t, params.LaunchFee, f.l.Lamports(f.treasury))
	assert.Equal(t, sol-params.LaunchFee, f.l.Lamports(f.creator))

	md, err := f.p.Metadata(f.mint)
	require.NoError(t, err)
	assert.Equal(t, "PHBT", md.Symbol)
	assert.Equal(t, f.creator, md.Creator)

	// same symbol from the same creator derives the same mint
	require.NoError(t, f.l.Airdrop(f.ctx, f.creator, 2*sol))
	_, err = f.p.Launch(f.ctx, f.creator, &instruction.Launch{TokenName: "Again", Symbol: "PHBT", InitialSupply: 1, InitialSolReserve: 1})
	assert.ErrorIs(t, err, program.ErrAccountAlreadyInitialized)

	assert.Equal(t, []events.EventType{events.ConfigUpdated, events.PoolLaunched}, f.rec.types())
}

func TestLaunch_Validation(t *testing.T) {
	f := newFixture(t, DefaultParams())
	require.NoError(t, f.l.Airdrop(f.ctx, f.creator, 10*sol))

	_, err := f.p.Launch(f.ctx, f.creator, &instruction.Launch{TokenName: "x", Symbol: "TOOLONGSYMBOL", InitialSupply: 1, InitialSolReserve: 1})
	assert.ErrorIs(t, err, program.ErrInvalidMetadata)

	_, err = f.p.Launch(f.ctx, f.creator, &instruction.Launch{TokenName: "x", Symbol: "X", InitialSupply: 0, InitialSolReserve: 1})
	assert.ErrorIs(t, err, program.ErrInvalidAmount)

	poor := solana.NewWallet().PublicKey()
	_, err = f.p.Launch(f.ctx, poor, &instruction.Launch{TokenName: "x", Symbol: "X", InitialSupply: 1, InitialSolReserve: 1})
	assert.ErrorIs(t, err, program.ErrInsufficientBalance)
	mint, err := f.p.MintAddress("X", poor)
	require.NoError(t, err)
	_, ok := f.l.Mint(mint)
	assert.False(t, ok, "failed launch must not leave a mint behind")
}

func TestBuy_ReferenceScenario(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	buyer := f.wallet(sol)
	f.rec.reset()

	res, err := f.p.Buy(f.ctx, buyer, f.mint, 100_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000_000), res.Trade.AmountOut)

	pool := f.pool()
	assert.Equal(t, uint64(500_000_000_000), pool.ReserveOne)
	assert.Equal(t, uint64(200_000_000), pool.ReserveTwo)

	pos, err := f.p.Position(f.mint, buyer)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, uint64(100_000_000), pos.TotalSol)
	assert.Equal(t, uint64(500_000_000_000), pos.TotalTokens)

	assert.Equal(t, uint64(500_000_000_000), f.l.TokenBalance(buyer, f.mint))
	assert.Equal(t, sol-100_000_000, f.l.Lamports(buyer))
	assert.Equal(t, []events.EventType{events.TradeExecuted, events.PositionUpdated}, f.rec.types())
}

func TestBuy_AccumulatesWeightedCostBasis(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	buyer := f.wallet(sol)

	first, err := f.p.Buy(f.ctx, buyer, f.mint, 100_000_000, 0)
	require.NoError(t, err)
	second, err := f.p.Buy(f.ctx, buyer, f.mint, 50_000_000, 0)
	require.NoError(t, err)

	pos, err := f.p.Position(f.mint, buyer)
	require.NoError(t, err)
	assert.Equal(t, uint64(150_000_000), pos.TotalSol)
	assert.Equal(t, first.Trade.AmountOut+second.Trade.AmountOut, pos.TotalTokens)

	// selling leaves the position alone
	_, err = f.p.Sell(f.ctx, buyer, f.mint, pos.TotalTokens/2, 0)
	require.NoError(t, err)
	after, err := f.p.Position(f.mint, buyer)
	require.NoError(t, err)
	assert.Equal(t, pos, after)
}

func TestBuy_SlippageLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	buyer := f.wallet(sol)
	before := f.l.Snapshot()

	_, err := f.p.Buy(f.ctx, buyer, f.mint, 100_000_000, 500_000_000_001)
	assert.ErrorIs(t, err, program.ErrSlippageExceeded)
	assert.Equal(t, before, f.l.Snapshot())

	_, err = f.p.Buy(f.ctx, buyer, f.mint, 0, 0)
	assert.ErrorIs(t, err, program.ErrInvalidAmount)

	_, err = f.p.Buy(f.ctx, buyer, f.mint, 2*sol, 0)
	assert.ErrorIs(t, err, program.ErrInsufficientBalance)
	assert.Equal(t, before, f.l.Snapshot())
}

func TestSell_TaxesLossAndPaysTreasury(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	early := f.wallet(sol)
	late := f.wallet(sol)

	_, err := f.p.Buy(f.ctx, early, f.mint, 100_000_000, 0)
	require.NoError(t, err)
	lateBuy, err := f.p.Buy(f.ctx, late, f.mint, 200_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(250_000_000_000), lateBuy.Trade.AmountOut)

	// early seller is in profit: no tax
	treasuryBefore := f.l.Lamports(f.treasury)
	profit, err := f.p.Sell(f.ctx, early, f.mint, 500_000_000_000, 0)
	require.NoError(t, err)
	assert.False(t, profit.Trade.Taxed)
	assert.Zero(t, profit.Trade.Tax)
	assert.Equal(t, uint64(266_666_666), profit.Trade.AmountOut)
	assert.Equal(t, treasuryBefore, f.l.Lamports(f.treasury))

	// late buyer now sells below cost basis
	pool := f.pool()
	expectedGross, err := curve.SwapOutput(250_000_000_000, pool.ReserveOne, pool.ReserveTwo, 0)
	require.NoError(t, err)
	f.rec.reset()
	lateSol := f.l.Lamports(late)

	loss, err := f.p.Sell(f.ctx, late, f.mint, 250_000_000_000, 0)
	require.NoError(t, err)
	tr := loss.Trade
	assert.True(t, tr.Taxed)
	assert.False(t, tr.Untracked)
	assert.Equal(t, expectedGross, tr.GrossOut)
	assert.Equal(t, expectedGross*5_000/10_000, tr.Tax)
	assert.Equal(t, tr.GrossOut-tr.Tax, tr.AmountOut)

	assert.Equal(t, tr.GrossOut-tr.AmountOut, f.l.Lamports(f.treasury)-treasuryBefore)
	assert.Equal(t, tr.AmountOut, f.l.Lamports(late)-lateSol)
	assert.Equal(t, []events.EventType{events.PaperhandTaxApplied, events.TradeExecuted}, f.rec.types())

	taxEvent := f.rec.events[0].(*events.PaperhandTaxAppliedEvent)
	assert.Equal(t, uint64(200_000_000), taxEvent.CostBasisForSale)
	assert.Equal(t, tr.Tax, taxEvent.Tax)
}

func TestSell_SlippageCheckedAfterTax(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	early, late := f.wallet(sol), f.wallet(sol)
	_, err := f.p.Buy(f.ctx, early, f.mint, 100_000_000, 0)
	require.NoError(t, err)
	_, err = f.p.Buy(f.ctx, late, f.mint, 200_000_000, 0)
	require.NoError(t, err)
	_, err = f.p.Sell(f.ctx, early, f.mint, 500_000_000_000, 0)
	require.NoError(t, err)

	pool := f.pool()
	gross, err := curve.SwapOutput(250_000_000_000, pool.ReserveOne, pool.ReserveTwo, 0)
	require.NoError(t, err)

	// gross would satisfy the minimum, net after tax does not
	_, err = f.p.Sell(f.ctx, late, f.mint, 250_000_000_000, gross)
	assert.ErrorIs(t, err, program.ErrSlippageExceeded)
	assert.Equal(t, pool, f.pool())
}

func TestSell_UntrackedPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy UntrackedSellPolicy
		taxed  bool
	}{
		{UntrackedSellTax, true},
		{UntrackedSellExempt, false},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			params := referenceParams()
			params.UntrackedSellPolicy = tc.policy
			f := newFixture(t, params)
			f.launch(1_000_000_000_000, 100_000_000)
			buyer, holder := f.wallet(sol), f.wallet(sol)

			_, err := f.p.Buy(f.ctx, buyer, f.mint, 100_000_000, 0)
			require.NoError(t, err)

			// tokens received off-curve carry no cost basis
			buyerATA, err := ledger.TokenAddress(buyer, f.mint)
			require.NoError(t, err)
			holderATA, err := ledger.TokenAddress(holder, f.mint)
			require.NoError(t, err)
			require.NoError(t, f.l.Execute(f.ctx, []solana.PublicKey{buyerATA, holderATA}, func(tx *ledger.Txn) error {
				return tx.TransferTokens(f.mint, buyer, holder, 100_000_000_000)
			}))

			res, err := f.p.Sell(f.ctx, holder, f.mint, 100_000_000_000, 0)
			require.NoError(t, err)
			assert.True(t, res.Trade.Untracked)
			assert.Equal(t, tc.taxed, res.Trade.Taxed)
			if tc.taxed {
				assert.Equal(t, res.Trade.GrossOut/2, res.Trade.Tax)
			} else {
				assert.Zero(t, res.Trade.Tax)
			}
		})
	}
}

func TestSell_VirtualSolIsNotWithdrawable(t *testing.T) {
	f := newFixture(t, DefaultParams())
	f.launch(1_000_000_000_000, 100_000_000)
	holder := f.wallet(sol)

	global, err := f.p.derive.Global()
	require.NoError(t, err)
	holderATA, err := ledger.TokenAddress(holder, f.mint)
	require.NoError(t, err)
	vault, err := ledger.TokenAddress(global.Key, f.mint)
	require.NoError(t, err)
	require.NoError(t, f.l.Execute(f.ctx, []solana.PublicKey{vault, holderATA}, func(tx *ledger.Txn) error {
		return tx.TransferTokens(f.mint, global.Key, holder, 500_000_000_000)
	}))

	// priced against 50.1 SOL, the sale would pay out far more than the 0.1 SOL real reserve
	_, err = f.p.Sell(f.ctx, holder, f.mint, 500_000_000_000, 0)
	assert.ErrorIs(t, err, program.ErrInsufficientLiquidity)
}

func TestSwap_StyleSelectsSide(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	user := f.wallet(sol)

	bought, err := f.p.Swap(f.ctx, user, f.mint, &instruction.Swap{Amount: 100_000_000, Style: 7})
	require.NoError(t, err)
	assert.Equal(t, events.SideBuy, bought.Trade.Side)
	assert.Equal(t, instruction.NameSwap, bought.Instruction)

	sold, err := f.p.Swap(f.ctx, user, f.mint, &instruction.Swap{Amount: bought.Trade.AmountOut, Style: program.StyleSell})
	require.NoError(t, err)
	assert.Equal(t, events.SideSell, sold.Trade.Side)
	assert.Zero(t, f.l.TokenBalance(user, f.mint))
}

func TestGraduation(t *testing.T) {
	params := DefaultParams()
	params.GraduationThreshold = 3 * sol
	var calls int
	migrator := MigratorFunc(func(_ context.Context, req MigrationRequest) (solana.PublicKey, error) {
		calls++
		assert.GreaterOrEqual(t, req.SolReserve, 3*sol)
		return solana.NewWallet().PublicKey(), nil
	})
	f := newFixture(t, params, WithMigrator(migrator))
	f.launch(1_000_000_000_000_000, sol)
	whale := f.wallet(10 * sol)

	res, err := f.p.Buy(f.ctx, whale, f.mint, sol, 0)
	require.NoError(t, err)
	assert.False(t, res.Trade.Graduated)

	_, err = f.p.Graduate(f.ctx, whale, f.mint)
	require.NoError(t, err, "crank below threshold is a no-op")
	assert.Zero(t, calls)

	f.rec.reset()
	res, err = f.p.Buy(f.ctx, whale, f.mint, sol, 0)
	require.NoError(t, err)
	assert.True(t, res.Trade.Graduated)
	require.NotNil(t, res.Migration)
	assert.Equal(t, 1, calls)
	assert.Equal(t, program.DefaultVirtualSol, res.Migration.VirtualSolCut)
	assert.Contains(t, f.rec.types(), events.PoolGraduated)

	pool := f.pool()
	assert.Zero(t, pool.VirtualSolReserve)
	assert.Equal(t, 3*sol, pool.RealSolReserve())

	rec, err := f.p.Graduated(f.mint)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// graduation happens once; the pool keeps trading as an AMM
	res, err = f.p.Buy(f.ctx, whale, f.mint, sol, 0)
	require.NoError(t, err)
	assert.False(t, res.Trade.Graduated)
	assert.Equal(t, 1, calls)
	assert.Zero(t, f.pool().VirtualSolReserve)

	_, err = f.p.Graduate(f.ctx, whale, f.mint)
	assert.ErrorIs(t, err, program.ErrAlreadyGraduated)
}

func TestGraduation_MigratorFailureRollsBackBuy(t *testing.T) {
	params := DefaultParams()
	params.GraduationThreshold = 2 * sol
	handoff := errors.New("amm unavailable")
	fail := true
	migrator := MigratorFunc(func(_ context.Context, req MigrationRequest) (solana.PublicKey, error) {
		if fail {
			return solana.PublicKey{}, handoff
		}
		return req.Pool, nil
	})
	f := newFixture(t, params, WithMigrator(migrator))
	f.launch(1_000_000_000_000_000, sol)
	whale := f.wallet(10 * sol)
	before := f.l.Snapshot()

	_, err := f.p.Buy(f.ctx, whale, f.mint, sol, 0)
	assert.ErrorIs(t, err, program.ErrMigrationFailed)
	assert.ErrorIs(t, err, handoff)
	assert.Equal(t, before, f.l.Snapshot())

	pos, err := f.p.Position(f.mint, whale)
	require.NoError(t, err)
	assert.Nil(t, pos)

	// the crank cannot graduate either: real reserve is still below threshold
	fail = false
	res, err := f.p.Graduate(f.ctx, whale, f.mint)
	require.NoError(t, err)
	assert.Nil(t, res.Migration)

	res, err = f.p.Buy(f.ctx, whale, f.mint, sol, 0)
	require.NoError(t, err)
	assert.True(t, res.Trade.Graduated)
}

func TestProcessInstruction_ChecksAccounts(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)
	user := f.wallet(sol)

	ix, err := f.p.Builder().Buy(user, f.mint, solana.NewWallet().PublicKey(), &instruction.Buy{Amount: 1_000, MinAmountOut: 0})
	require.NoError(t, err)
	_, err = f.p.Execute(f.ctx, ix)
	assert.ErrorIs(t, err, program.ErrInvalidAccounts, "treasury must match the configuration")

	ix, err = f.p.Builder().Buy(user, f.mint, f.treasury, &instruction.Buy{Amount: 1_000, MinAmountOut: 0})
	require.NoError(t, err)
	metas := ix.Accounts()
	metas[instruction.TradeUser] = solana.Meta(user).WRITE()
	data, err := ix.Data()
	require.NoError(t, err)
	_, err = f.p.ProcessInstruction(f.ctx, metas, data)
	assert.ErrorIs(t, err, program.ErrInvalidAccounts, "user must sign")

	_, err = f.p.ProcessInstruction(f.ctx, metas, []byte{0, 1, 2, 3, 4, 5, 6, 7})
	assert.ErrorIs(t, err, program.ErrInvalidInstruction)

	other := solana.NewInstruction(solana.SystemProgramID, ix.Accounts(), data)
	_, err = f.p.Execute(f.ctx, other)
	assert.ErrorIs(t, err, program.ErrInvalidAccounts)
}

func TestLegacyPoolKeepsLayout(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000, 100_000_000)

	// rewrite the pool in the pre-virtual layout
	poolKey, pool, err := f.p.Pool(f.mint)
	require.NoError(t, err)
	pool.Legacy = true
	data, err := pool.Marshal()
	require.NoError(t, err)
	require.Len(t, data, state.LegacyPoolSize)
	require.NoError(t, f.l.Execute(f.ctx, []solana.PublicKey{poolKey}, func(tx *ledger.Txn) error {
		return tx.Store(poolKey, program.DefaultProgramID, data)
	}))

	buyer := f.wallet(sol)
	res, err := f.p.Buy(f.ctx, buyer, f.mint, 100_000_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000_000), res.Trade.AmountOut)

	acc, ok := f.l.Account(poolKey)
	require.True(t, ok)
	assert.Len(t, acc.Data, state.LegacyPoolSize)
}

func TestConcurrentTradesSerializePerPool(t *testing.T) {
	f := newFixture(t, referenceParams())
	f.launch(1_000_000_000_000_000, sol)

	traders := make([]solana.PublicKey, 12)
	for i := range traders {
		traders[i] = f.wallet(sol)
	}

	var wg sync.WaitGroup
	for _, trader := range traders {
		wg.Add(1)
		go func(user solana.PublicKey) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				_, err := f.p.Buy(f.ctx, user, f.mint, 10_000_000, 0)
				assert.NoError(t, err)
			}
		}(trader)
	}
	wg.Wait()

	pool := f.pool()
	assert.Equal(t, sol+uint64(len(traders))*5*10_000_000, pool.ReserveTwo)

	var held uint64
	for _, trader := range traders {
		held += f.l.TokenBalance(trader, f.mint)
	}
	assert.Equal(t, uint64(1_000_000_000_000_000), held+pool.ReserveOne)
}
