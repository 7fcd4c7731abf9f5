package simulate

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/program/ledger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
)

func launchPool(t *testing.T, params processor.Params) (*processor.Processor, solana.PublicKey) {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	p, err := processor.New(program.DefaultProgramID, ledger.New(ledger.WithLogger(logger)), params, logger)
	require.NoError(t, err)

	admin := solana.NewWallet().PublicKey()
	_, err = p.Initialize(ctx, admin, 100, 5_000)
	require.NoError(t, err)

	creator := solana.NewWallet().PublicKey()
	require.NoError(t, p.Ledger().Airdrop(ctx, creator, 2*program.LamportsPerSOL))
	res, err := p.Launch(ctx, creator, &instruction.Launch{
		TokenName:         "Sim",
		Symbol:            "SIM",
		URI:               "https://example.org/sim.json",
		Decimals:          6,
		InitialSupply:     1_000_000_000_000,
		InitialSolReserve: program.LamportsPerSOL,
	})
	require.NoError(t, err)
	return p, res.Mint
}

func TestRun_TreasuryMatchesTax(t *testing.T) {
	p, mint := launchPool(t, processor.DefaultParams())

	report, err := New(p, zaptest.NewLogger(t)).Run(context.Background(), mint, DefaultConfig())
	require.NoError(t, err)
	assert.Positive(t, report.Trades)
	assert.Positive(t, report.Buys)
	assert.Equal(t, report.TaxCollected, report.TreasuryDelta)
	assert.Len(t, report.Traders, DefaultConfig().Traders)
}

func TestRun_SingleTraderPaysTaxOnTheWayDown(t *testing.T) {
	p, mint := launchPool(t, processor.DefaultParams())

	cfg := DefaultConfig()
	cfg.Traders = 1
	cfg.Rounds = 30
	cfg.SellChance = 0.9
	report, err := New(p, zaptest.NewLogger(t)).Run(context.Background(), mint, cfg)
	require.NoError(t, err)
	assert.Positive(t, report.Sells)
	assert.Positive(t, report.TaxedSells)
	assert.Positive(t, report.TaxCollected)
	assert.Equal(t, report.TaxCollected, report.TreasuryDelta)
}

func TestRun_BuyersGraduatePool(t *testing.T) {
	params := processor.DefaultParams()
	params.GraduationThreshold = 3 * program.LamportsPerSOL
	p, mint := launchPool(t, params)

	cfg := DefaultConfig()
	cfg.SellChance = 0
	report, err := New(p, zaptest.NewLogger(t)).Run(context.Background(), mint, cfg)
	require.NoError(t, err)
	assert.True(t, report.Graduated)
	assert.Zero(t, report.Sells)
	assert.Zero(t, report.TreasuryDelta)

	_, pool, err := p.Pool(mint)
	require.NoError(t, err)
	assert.Zero(t, pool.VirtualSolReserve)
}

func TestRun_Validation(t *testing.T) {
	p, mint := launchPool(t, processor.DefaultParams())
	sim := New(p, zaptest.NewLogger(t))

	cfg := DefaultConfig()
	cfg.Traders = 0
	_, err := sim.Run(context.Background(), mint, cfg)
	assert.Error(t, err)

	_, err = sim.Run(context.Background(), solana.NewWallet().PublicKey(), DefaultConfig())
	assert.ErrorIs(t, err, program.ErrAccountNotFound)
}

func TestReport_RejectionNames(t *testing.T) {
	r := &Report{Rejected: map[string]int{"SlippageExceeded": 2, "InsufficientBalance": 1}}
	assert.Equal(t, []string{"InsufficientBalance", "SlippageExceeded"}, r.RejectionNames())
}
