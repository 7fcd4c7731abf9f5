package report

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/journal"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
	"github.com/cryptobluejava/phbt-sub000/internal/simulate"
)

func testPool() *state.Pool {
	return &state.Pool{
		TokenOne:          solana.NewWallet().PublicKey(),
		TokenTwo:          solana.WrappedSol,
		TotalSupply:       1_000_000_000,
		ReserveOne:        500_000_000,
		ReserveTwo:        2 * program.LamportsPerSOL,
		VirtualSolReserve: 50 * program.LamportsPerSOL,
	}
}

func TestPool(t *testing.T) {
	pool := testPool()
	out, err := Pool(PoolView{Key: solana.NewWallet().PublicKey(), Pool: pool, Symbol: "PHBT", Decimals: 6, Threshold: 4 * program.LamportsPerSOL})
	require.NoError(t, err)
	assert.Contains(t, out, "Pool PHBT")
	assert.Contains(t, out, "2.0000 SOL")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "bonding curve")

	amm := solana.NewWallet().PublicKey()
	out, err = Pool(PoolView{Pool: pool, Symbol: "PHBT", Decimals: 6, Migration: &state.MigrationRecord{AmmPool: amm, Slot: 42}})
	require.NoError(t, err)
	assert.Contains(t, out, "graduated")
	assert.Contains(t, out, amm.String())
}

func TestPosition(t *testing.T) {
	pool := testPool()
	owner := solana.NewWallet().PublicKey()

	out, err := Position(owner, pool, nil, 10, "PHBT", 6)
	require.NoError(t, err)
	assert.Contains(t, out, "untracked")

	// bought at twice the current spot price
	pos := &state.UserPosition{Owner: owner, TotalTokens: 1_000_000, TotalSol: 2 * 104_000_000}
	out, err = Position(owner, pool, pos, pos.TotalTokens, "PHBT", 6)
	require.NoError(t, err)
	assert.Contains(t, out, "paper-hand tax applies")
	assert.Contains(t, out, "-50.00%")
}

func TestConfig(t *testing.T) {
	cfg := state.NewCurveConfiguration(100, solana.NewWallet().PublicKey(), 5_000, solana.NewWallet().PublicKey())
	out := Config(cfg, processor.DefaultParams())
	assert.Contains(t, out, "1.00%")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "85.0000 SOL")
	assert.Contains(t, out, "tax")
}

func TestTrade(t *testing.T) {
	res := &processor.Result{Slot: 7, Trade: &processor.TradeResult{
		Side:      events.SideSell,
		AmountIn:  1_000_000,
		GrossOut:  program.LamportsPerSOL,
		Tax:       program.LamportsPerSOL / 2,
		AmountOut: program.LamportsPerSOL / 2,
		Taxed:     true,
	}}
	out := Trade(res, "PHBT", 6)
	assert.Contains(t, out, "SELL PHBT")
	assert.Contains(t, out, "Paper-hand tax")
	assert.Contains(t, out, "0.5000 SOL")
}

func TestSimulationAndStatistics(t *testing.T) {
	out := Simulation(&simulate.Report{Trades: 3, Rejected: map[string]int{"SlippageExceeded": 1}})
	assert.Contains(t, out, "Rejected SlippageExceeded")

	out = Statistics(journal.Statistics{TotalTrades: 4, SellCount: 2, TaxedSells: 1, TaxCollected: program.LamportsPerSOL})
	assert.Contains(t, out, "1 (50.0%)")
	assert.Contains(t, out, "1.0000 SOL")
}
