package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
)

// Entry is one executed trade as recorded in the journal. SOL amounts are
// lamports; SolAmount is what the user paid (buy) or received after tax (sell).
type Entry struct {
	ID          string           `json:"id"`
	Timestamp   time.Time        `json:"timestamp"`
	Slot        uint64           `json:"slot"`
	Side        string           `json:"side"`
	User        solana.PublicKey `json:"user"`
	Mint        solana.PublicKey `json:"mint"`
	Pool        solana.PublicKey `json:"pool"`
	TokenAmount uint64           `json:"token_amount"`
	SolAmount   uint64           `json:"sol_amount"`
	GrossSol    uint64           `json:"gross_sol"`
	Tax         uint64           `json:"tax"`
	Taxed       bool             `json:"taxed"`
	Untracked   bool             `json:"untracked,omitempty"`
	CostBasis   uint64           `json:"cost_basis,omitempty"`
}

// FromTrade builds an entry from a trade event and, for taxed sells, the tax
// event published just before it.
func FromTrade(e *events.TradeExecutedEvent, tax *events.PaperhandTaxAppliedEvent) Entry {
	entry := Entry{
		Timestamp:   e.EventTime,
		Slot:        e.Slot,
		Side:        e.Side,
		User:        e.User,
		Mint:        e.Mint,
		Pool:        e.Pool,
		TokenAmount: e.TokenAmount,
		SolAmount:   e.SolAmount,
		GrossSol:    e.GrossSol,
		Tax:         e.Tax,
	}
	if tax != nil {
		entry.Taxed = true
		entry.Untracked = tax.Untracked
		entry.CostBasis = tax.CostBasisForSale
	}
	return entry
}

// CSVHeaders returns the journal column names.
func CSVHeaders() []string {
	return []string{
		"id",
		"timestamp",
		"slot",
		"side",
		"user",
		"mint",
		"pool",
		"token_amount",
		"sol_amount",
		"gross_sol",
		"tax",
		"taxed",
		"untracked",
		"cost_basis",
	}
}

// ToCSV renders the entry in CSVHeaders order.
func (e *Entry) ToCSV() []string {
	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		u(e.Slot),
		e.Side,
		e.User.String(),
		e.Mint.String(),
		e.Pool.String(),
		u(e.TokenAmount),
		u(e.SolAmount),
		u(e.GrossSol),
		u(e.Tax),
		strconv.FormatBool(e.Taxed),
		strconv.FormatBool(e.Untracked),
		u(e.CostBasis),
	}
}

// ParseCSVRecord is the inverse of ToCSV.
func ParseCSVRecord(rec []string) (Entry, error) {
	if len(rec) != len(CSVHeaders()) {
		return Entry{}, fmt.Errorf("journal row has %d columns, want %d", len(rec), len(CSVHeaders()))
	}
	var (
		e   Entry
		err error
	)
	e.ID = rec[0]
	if e.Timestamp, err = time.Parse(time.RFC3339Nano, rec[1]); err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	e.Side = rec[3]

	keys := []*solana.PublicKey{&e.User, &e.Mint, &e.Pool}
	for i, k := range keys {
		if *k, err = solana.PublicKeyFromBase58(rec[4+i]); err != nil {
			return Entry{}, fmt.Errorf("%s: %w", CSVHeaders()[4+i], err)
		}
	}

	nums := map[int]*uint64{2: &e.Slot, 7: &e.TokenAmount, 8: &e.SolAmount, 9: &e.GrossSol, 10: &e.Tax, 13: &e.CostBasis}
	for col, dst := range nums {
		if *dst, err = strconv.ParseUint(rec[col], 10, 64); err != nil {
			return Entry{}, fmt.Errorf("%s: %w", CSVHeaders()[col], err)
		}
	}
	if e.Taxed, err = strconv.ParseBool(rec[11]); err != nil {
		return Entry{}, fmt.Errorf("taxed: %w", err)
	}
	if e.Untracked, err = strconv.ParseBool(rec[12]); err != nil {
		return Entry{}, fmt.Errorf("untracked: %w", err)
	}
	return e, nil
}

// ReadCSV loads every entry from a journal file written by Journal.
func ReadCSV(r io.Reader) ([]Entry, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	var out []Entry
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "id" {
			continue
		}
		e, err := ParseCSVRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, e)
	}
	return out, nil
}
