package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
)

var (
	alice = solana.NewWallet().PublicKey()
	bob   = solana.NewWallet().PublicKey()
	mintA = solana.NewWallet().PublicKey()
	mintB = solana.NewWallet().PublicKey()
	poolA = solana.NewWallet().PublicKey()
)

func tradeEvent(user, mint solana.PublicKey, side string, slot, tokens, sol, gross, tax uint64) *events.TradeExecutedEvent {
	return &events.TradeExecutedEvent{
		BaseEvent:   events.NewBase(events.TradeExecuted, time.Unix(1_700_000_000+int64(slot), 0).UTC(), slot),
		User:        user,
		Pool:        poolA,
		Mint:        mint,
		Side:        side,
		TokenAmount: tokens,
		SolAmount:   sol,
		GrossSol:    gross,
		Tax:         tax,
	}
}

func TestJournal_RecordsTradeEvents(t *testing.T) {
	dir := t.TempDir()
	j, err := New(dir, 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, j.Handle(ctx, tradeEvent(alice, mintA, events.SideBuy, 1, 500, 100, 100, 0)))
	require.NoError(t, j.Handle(ctx, &events.PaperhandTaxAppliedEvent{
		BaseEvent:        events.NewBase(events.PaperhandTaxApplied, time.Now(), 2),
		User:             alice,
		Pool:             poolA,
		SolOutBeforeTax:  60,
		CostBasisForSale: 100,
		Tax:              30,
		SolToUser:        30,
	}))
	require.NoError(t, j.Handle(ctx, tradeEvent(alice, mintA, events.SideSell, 2, 500, 30, 60, 30)))
	require.NoError(t, j.Handle(ctx, tradeEvent(bob, mintA, events.SideSell, 3, 10, 5, 5, 0)))
	require.NoError(t, j.Handle(ctx, &events.PoolLaunchedEvent{}), "other events are ignored")

	stats := j.Statistics()
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 1, stats.BuyCount)
	assert.Equal(t, 2, stats.SellCount)
	assert.Equal(t, 1, stats.TaxedSells)
	assert.Equal(t, uint64(30), stats.TaxCollected)
	assert.Equal(t, uint64(100), stats.BuyVolume)
	assert.Equal(t, uint64(65), stats.SellVolume)
	assert.Equal(t, 2, stats.UniqueTraders)
	assert.InDelta(t, 50.0, stats.TaxedRate(), 0.001)

	recent := j.Recent(2)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].Taxed)
	assert.Equal(t, uint64(100), recent[0].CostBasis)
	assert.False(t, recent[1].Taxed)

	require.NoError(t, j.Close())

	f, err := os.Open(filepath.Join(dir, FileName))
	require.NoError(t, err)
	defer f.Close()
	entries, err := ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, recent[0], entries[1])
}

func TestJournal_KeepsBoundedWindow(t *testing.T) {
	j, err := New(t.TempDir(), 3, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer j.Close()

	for slot := uint64(1); slot <= 5; slot++ {
		require.NoError(t, j.Record(FromTrade(tradeEvent(alice, mintA, events.SideBuy, slot, 1, 1, 1, 0), nil)))
	}
	recent := j.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, uint64(3), recent[0].Slot)
	assert.Equal(t, uint64(5), recent[2].Slot)
	assert.Equal(t, 5, j.Statistics().TotalTrades)
	assert.Len(t, j.ByMint(mintA), 3)
	assert.Empty(t, j.ByMint(mintB))
}

func TestJournal_ViaBus(t *testing.T) {
	j, err := New(t.TempDir(), 10, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer j.Close()

	bus := events.NewBus(zaptest.NewLogger(t), 16)
	j.Attach(bus)
	require.NoError(t, bus.Publish(tradeEvent(bob, mintB, events.SideBuy, 7, 1, 2, 2, 0)))
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.Len(t, j.ByMint(mintB), 1)
}

func TestExporter(t *testing.T) {
	entries := []Entry{
		FromTrade(tradeEvent(bob, mintB, events.SideSell, 9, 1, 4, 8, 4), &events.PaperhandTaxAppliedEvent{}),
		FromTrade(tradeEvent(alice, mintA, events.SideBuy, 1, 1, 10, 10, 0), nil),
		FromTrade(tradeEvent(alice, mintA, events.SideSell, 5, 1, 3, 6, 3), &events.PaperhandTaxAppliedEvent{}),
	}
	x := NewExporter(zaptest.NewLogger(t))
	x.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	dir := t.TempDir()

	path, err := x.Export(entries, ExportOptions{Format: FormatJSON, OnlyTaxed: true, OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "trades_all_taxed_20260102_030405.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		TradeCount int           `json:"trade_count"`
		Summary    ExportSummary `json:"summary"`
		Trades     []Entry       `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 2, doc.TradeCount)
	assert.Equal(t, uint64(7), doc.Summary.TaxCollected)
	assert.Equal(t, 2, doc.Summary.UniqueTokens)
	assert.Equal(t, uint64(5), doc.Trades[0].Slot, "sorted by time")

	path, err = x.Export(entries, ExportOptions{Format: FormatCSV, Mint: mintA, Side: events.SideBuy, OutputDir: dir})
	require.NoError(t, err)
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, alice, rows[0].User)

	_, err = x.Export(entries, ExportOptions{Format: FormatCSV, Side: "hold", OutputDir: dir})
	assert.Error(t, err)
}
