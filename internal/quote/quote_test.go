package quote

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func referencePool() *state.Pool {
	return &state.Pool{
		TokenOne:    solana.NewWallet().PublicKey(),
		TokenTwo:    solana.WrappedSol,
		TotalSupply: 1_000_000_000_000,
		ReserveOne:  1_000_000_000_000,
		ReserveTwo:  100_000_000,
	}
}

func config(taxBps uint16) *state.CurveConfiguration {
	return &state.CurveConfiguration{PaperhandTaxBps: taxBps}
}

func TestConversions(t *testing.T) {
	assert.True(t, SOL(1_500_000_000).Equal(dec("1.5")))
	assert.Equal(t, uint64(1_500_000_000), Lamports(dec("1.5")))
	assert.Equal(t, uint64(1), Lamports(dec("0.0000000019")))
	assert.True(t, Tokens(1_234_567, 6).Equal(dec("1.234567")))
	assert.Equal(t, uint64(1_234_567), RawTokens(dec("1.2345679"), 6))
	assert.True(t, Bps(5_000).Equal(dec("50")))
}

func TestPriceAndMarketCap(t *testing.T) {
	pool := referencePool()

	price, err := Price(pool, 6)
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("0.0000001")), price.String())

	mcap, err := MarketCap(pool, 6)
	require.NoError(t, err)
	assert.True(t, mcap.Equal(dec("0.1")), mcap.String())

	pool.VirtualSolReserve = 100_000_000
	price, err = Price(pool, 6)
	require.NoError(t, err)
	assert.True(t, price.Equal(dec("0.0000002")), "virtual SOL counts toward price")
}

func TestPositionPnL(t *testing.T) {
	pool := referencePool()
	pool.ReserveOne = 500_000_000_000
	pool.ReserveTwo = 200_000_000
	pos := &state.UserPosition{TotalTokens: 500_000_000_000, TotalSol: 100_000_000}

	pnl, err := PositionPnL(pool, pos)
	require.NoError(t, err)
	assert.True(t, pnl.Cost.Equal(dec("0.1")))
	assert.True(t, pnl.Value.Equal(dec("0.2")))
	assert.True(t, pnl.Percent.Equal(dec("100")))
	assert.False(t, pnl.InLoss)
	assert.True(t, CostBasis(pos, 6).Equal(dec("0.0000002")))

	pool.ReserveTwo = 50_000_000
	pnl, err = PositionPnL(pool, pos)
	require.NoError(t, err)
	assert.True(t, pnl.Percent.Equal(dec("-50")))
	assert.True(t, pnl.InLoss)
}

func TestPreviewBuy(t *testing.T) {
	q, err := PreviewBuy(config(5_000), referencePool(), 100_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000_000), q.TokensOut)
	assert.True(t, q.ImpactPercent.Equal(dec("300")), q.ImpactPercent.String())
}

func TestPreviewSell(t *testing.T) {
	pool := referencePool()
	pool.ReserveOne = 500_000_000_000
	pool.ReserveTwo = 200_000_000
	pos := &state.UserPosition{TotalTokens: 500_000_000_000, TotalSol: 100_000_000}

	q, err := PreviewSell(config(5_000), pool, pos, processor.UntrackedSellTax, 500_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), q.Gross)
	assert.False(t, q.Taxed)
	assert.Equal(t, q.Gross, q.Net)

	q, err = PreviewSell(config(5_000), pool, nil, processor.UntrackedSellTax, 500_000_000_000)
	require.NoError(t, err)
	assert.True(t, q.Taxed)
	assert.True(t, q.Untracked)
	assert.Equal(t, uint64(50_000_000), q.Tax)
	assert.Equal(t, q.Gross-q.Tax, q.Net)

	q, err = PreviewSell(config(5_000), pool, nil, processor.UntrackedSellExempt, 500_000_000_000)
	require.NoError(t, err)
	assert.False(t, q.Taxed)

	pool.VirtualSolReserve = 50_000_000_000
	q, err = PreviewSell(config(0), pool, nil, processor.UntrackedSellExempt, 500_000_000_000)
	require.NoError(t, err)
	assert.True(t, q.Exceeds)
}

func TestGraduationProgress(t *testing.T) {
	pool := referencePool()
	assert.True(t, GraduationProgress(pool, 400_000_000).Equal(dec("25")))
	assert.True(t, GraduationProgress(pool, 50_000_000).Equal(dec("100")))
}

func TestSlippage(t *testing.T) {
	tests := []struct {
		in       string
		expected uint64
		want     uint64
		wantErr  bool
	}{
		{in: "1%", expected: 1_000, want: 990},
		{in: "0.5", expected: 1_000_001, want: 995_000},
		{in: "none", expected: 1_000, want: 0},
		{in: "", expected: 1_000, want: 0},
		{in: "fixed:777", expected: 1_000, want: 777},
		{in: "abc", wantErr: true},
		{in: "150", wantErr: true},
		{in: "fixed:-1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cfg, err := ParseSlippage(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, MinAmountOut(tt.expected, cfg))
		})
	}
}
