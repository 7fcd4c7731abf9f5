package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ExportOptions filters and places an export.
type ExportOptions struct {
	Format    ExportFormat
	StartTime time.Time
	EndTime   time.Time
	Mint      solana.PublicKey // zero key matches every mint
	Side      string           // buy, sell or empty
	OnlyTaxed bool
	OutputDir string
}

// ExportSummary aggregates the exported entries.
type ExportSummary struct {
	TotalTrades  int       `json:"total_trades"`
	BuyCount     int       `json:"buy_count"`
	SellCount    int       `json:"sell_count"`
	TaxedSells   int       `json:"taxed_sells"`
	UniqueTokens int       `json:"unique_tokens"`
	BuyVolume    uint64    `json:"buy_volume"`
	SellVolume   uint64    `json:"sell_volume"`
	TaxCollected uint64    `json:"tax_collected"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// Exporter writes filtered journal entries to CSV or JSON files.
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates an exporter.
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("export"), now: time.Now}
}

// Export writes the entries matching options and returns the file path.
func (x *Exporter) Export(entries []Entry, options ExportOptions) (string, error) {
	filtered := Filter(entries, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(options.OutputDir, x.filename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportCSV(filtered, path)
	case FormatJSON:
		err = exportJSON(filtered, path, x.now())
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	x.logger.Info("Trades exported",
		zap.String("file", path),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return path, nil
}

// Filter returns the entries matching options, in input order.
func Filter(entries []Entry, options ExportOptions) []Entry {
	var out []Entry
	for _, e := range entries {
		if !options.StartTime.IsZero() && e.Timestamp.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && e.Timestamp.After(options.EndTime) {
			continue
		}
		if !options.Mint.IsZero() && !e.Mint.Equals(options.Mint) {
			continue
		}
		if options.Side != "" && e.Side != options.Side {
			continue
		}
		if options.OnlyTaxed && !e.Taxed {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (x *Exporter) filename(options ExportOptions) string {
	prefix := "trades_all"
	if options.Side != "" {
		prefix = "trades_" + options.Side
	}
	if options.OnlyTaxed {
		prefix += "_taxed"
	}
	if !options.Mint.IsZero() {
		prefix += "_" + options.Mint.String()[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, x.now().Format("20060102_150405"), options.Format)
}

func exportCSV(entries []Entry, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(CSVHeaders()); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for i := range entries {
		if err := w.Write(entries[i].ToCSV()); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func exportJSON(entries []Entry, path string, at time.Time) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	data := struct {
		ExportTime time.Time     `json:"export_time"`
		TradeCount int           `json:"trade_count"`
		Summary    ExportSummary `json:"summary"`
		Trades     []Entry       `json:"trades"`
	}{
		ExportTime: at,
		TradeCount: len(entries),
		Summary:    Summarize(entries),
		Trades:     entries,
	}
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize aggregates entries, which must be sorted by time.
func Summarize(entries []Entry) ExportSummary {
	s := ExportSummary{TotalTrades: len(entries)}
	if len(entries) == 0 {
		return s
	}
	s.StartDate = entries[0].Timestamp
	s.EndDate = entries[len(entries)-1].Timestamp

	mints := make(map[solana.PublicKey]struct{})
	for _, e := range entries {
		mints[e.Mint] = struct{}{}
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
		}
	}
	s.UniqueTokens = len(mints)
	return s
}
