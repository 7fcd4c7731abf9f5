package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cryptobluejava/phbt-sub000/internal/config"
	"github.com/cryptobluejava/phbt-sub000/internal/journal"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.StatePath = filepath.Join(dir, "state.json")
	cfg.JournalDir = filepath.Join(dir, "journal")
	cfg.LogFile = filepath.Join(dir, "logs", "phbt.log")
	cfg.PostgresURL = ""
	return cfg
}

func TestApp_PersistsLedgerAndJournal(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var console bytes.Buffer

	a, err := New(cfg, Options{Console: &console})
	require.NoError(t, err)

	admin := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	buyer := solana.NewWallet().PublicKey()
	_, err = a.Processor.Initialize(ctx, admin, 0, 5_000)
	require.NoError(t, err)
	require.NoError(t, a.Ledger.Airdrop(ctx, creator, 3*program.LamportsPerSOL))
	require.NoError(t, a.Ledger.Airdrop(ctx, buyer, 3*program.LamportsPerSOL))

	res, err := a.Processor.Launch(ctx, creator, &instruction.Launch{
		TokenName:         "Paper Hands",
		Symbol:            "PHBT",
		URI:               "https://example.org/phbt.json",
		Decimals:          6,
		InitialSupply:     1_000_000_000,
		InitialSolReserve: program.LamportsPerSOL,
	})
	require.NoError(t, err)
	mint := res.Mint

	_, err = a.Processor.Buy(ctx, buyer, mint, program.LamportsPerSOL/10, 1)
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	assert.Contains(t, console.String(), "Trade executed")
	assert.FileExists(t, cfg.LogFile)

	f, err := os.Open(filepath.Join(cfg.JournalDir, journal.FileName))
	require.NoError(t, err)
	defer f.Close()
	entries, err := journal.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, buyer, entries[0].User)

	reopened, err := New(cfg, Options{Console: &console, ReadOnly: true})
	require.NoError(t, err)
	defer reopened.Close(ctx)

	_, pool, err := reopened.Processor.Pool(mint)
	require.NoError(t, err)
	assert.Equal(t, program.LamportsPerSOL+program.LamportsPerSOL/10, pool.ReserveTwo)
	pos, err := reopened.Processor.Position(mint, buyer)
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.Equal(t, program.LamportsPerSOL/10, pos.TotalSol)
}

func TestApp_RejectsBadParams(t *testing.T) {
	cfg := testConfig(t)
	cfg.UntrackedSellPolicy = "sometimes"
	_, err := New(cfg, Options{Console: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestShutdownHandler_ReverseOrderOnce(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 0)
	var order []string
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return errors.New("boom") })
	sh.AddFunc("third", func() error { order = append(order, "third"); return nil })

	err := sh.Shutdown(context.Background())
	assert.ErrorContains(t, err, "second: boom")
	assert.Equal(t, []string{"third", "second", "first"}, order)

	assert.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}
