// Package journal keeps a CSV trade log of committed trades with an in-memory
// window of recent entries and running totals.
package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/logger"
)

// FileName is the journal file inside the journal directory.
const FileName = "trades.csv"

// Journal records trades. It is an events.Handler for TradeExecuted and
// PaperhandTaxApplied.
type Journal struct {
	mu         sync.RWMutex
	csvWriter  *logger.SafeCSVWriter
	entries    []Entry
	maxEntries int
	pendingTax map[taxKey]*events.PaperhandTaxAppliedEvent
	stats      Statistics
	logger     *zap.Logger
}

type taxKey struct {
	user, pool solana.PublicKey
	slot       uint64
}

// Statistics are running totals over every recorded trade.
type Statistics struct {
	TotalTrades    int    `json:"total_trades"`
	BuyCount       int    `json:"buy_count"`
	SellCount      int    `json:"sell_count"`
	TaxedSells     int    `json:"taxed_sells"`
	UntrackedSells int    `json:"untracked_sells"`
	BuyVolume      uint64 `json:"buy_volume"`
	SellVolume     uint64 `json:"sell_volume"`
	TaxCollected   uint64 `json:"tax_collected"`
	UniqueTraders  int    `json:"unique_traders"`

	traders map[solana.PublicKey]struct{}
}

// TaxedRate is the share of sells that paid tax, in percent.
func (s Statistics) TaxedRate() float64 {
	if s.SellCount == 0 {
		return 0
	}
	return float64(s.TaxedSells) / float64(s.SellCount) * 100
}

// New opens dir/trades.csv for appending and keeps up to maxEntries in memory.
func New(dir string, maxEntries int, zapLogger *zap.Logger) (*Journal, error) {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	path := filepath.Join(dir, FileName)
	w, err := logger.NewSafeCSVWriter(path, CSVHeaders(), 5*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	j := &Journal{
		csvWriter:  w,
		entries:    make([]Entry, 0, maxEntries),
		maxEntries: maxEntries,
		pendingTax: make(map[taxKey]*events.PaperhandTaxAppliedEvent),
		stats:      Statistics{traders: make(map[solana.PublicKey]struct{})},
		logger:     zapLogger.Named("journal"),
	}
	j.logger.Debug("Trade journal opened",
		zap.String("csv_file", path),
		zap.Int("max_memory_entries", maxEntries))
	return j, nil
}

// Attach subscribes the journal to the trade events of bus.
func (j *Journal) Attach(bus *events.Bus) []events.Subscription {
	return []events.Subscription{
		bus.Subscribe(events.PaperhandTaxApplied, j),
		bus.Subscribe(events.TradeExecuted, j),
	}
}

// Handle implements events.Handler.
func (j *Journal) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.PaperhandTaxAppliedEvent:
		j.mu.Lock()
		j.pendingTax[taxKey{e.User, e.Pool, e.Slot}] = e
		j.mu.Unlock()
		return nil
	case *events.TradeExecutedEvent:
		j.mu.Lock()
		key := taxKey{e.User, e.Pool, e.Slot}
		tax := j.pendingTax[key]
		delete(j.pendingTax, key)
		j.mu.Unlock()
		return j.Record(FromTrade(e, tax))
	default:
		return nil
	}
}

// Record appends entry to the CSV file and the in-memory window.
func (j *Journal) Record(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := j.csvWriter.WriteRecord(entry.ToCSV()); err != nil {
		j.logger.Error("Failed to write trade to journal",
			zap.String("id", entry.ID),
			zap.Error(err))
		return fmt.Errorf("failed to write trade: %w", err)
	}

	if len(j.entries) >= j.maxEntries {
		j.entries = j.entries[1:]
	}
	j.entries = append(j.entries, entry)
	j.count(entry)

	j.logger.Debug("Trade journaled",
		zap.String("id", entry.ID),
		zap.String("side", entry.Side),
		zap.Uint64("sol", entry.SolAmount),
		zap.Uint64("tax", entry.Tax))
	return nil
}

func (j *Journal) count(e Entry) {
	s := &j.stats
	s.TotalTrades++
	switch e.Side {
	case events.SideBuy:
		s.BuyCount++
		s.BuyVolume += e.SolAmount
	case events.SideSell:
		s.SellCount++
		s.SellVolume += e.GrossSol
		if e.Taxed {
			s.TaxedSells++
			s.TaxCollected += e.Tax
		}
		if e.Untracked {
			s.UntrackedSells++
		}
	}
	s.traders[e.User] = struct{}{}
	s.UniqueTraders = len(s.traders)
}

// Recent returns up to limit of the newest entries, oldest first.
func (j *Journal) Recent(limit int) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > len(j.entries) {
		limit = len(j.entries)
	}
	out := make([]Entry, limit)
	copy(out, j.entries[len(j.entries)-limit:])
	return out
}

// ByMint returns the in-memory entries for mint.
func (j *Journal) ByMint(mint solana.PublicKey) []Entry {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []Entry
	for _, e := range j.entries {
		if e.Mint.Equals(mint) {
			out = append(out, e)
		}
	}
	return out
}

// Statistics returns the running totals.
func (j *Journal) Statistics() Statistics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	s := j.stats
	s.traders = nil
	return s
}

// Flush forces buffered rows to disk.
func (j *Journal) Flush() error {
	return j.csvWriter.Flush()
}

// Close flushes and closes the journal file.
func (j *Journal) Close() error {
	stats := j.Statistics()
	j.logger.Info("Closing trade journal",
		zap.Int("total_trades", stats.TotalTrades),
		zap.Int("taxed_sells", stats.TaxedSells),
		zap.Uint64("tax_collected", stats.TaxCollected))
	return j.csvWriter.Close()
}
