// =============================
// File: internal/report/tables.go
// =============================

// Package report renders launchpad state as terminal tables.
package report

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/journal"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
	"github.com/cryptobluejava/phbt-sub000/internal/quote"
	"github.com/cryptobluejava/phbt-sub000/internal/simulate"
)

const maxWidth = 120

func newTable(title string) (table.Writer, *strings.Builder) {
	b := &strings.Builder{}
	t := table.NewWriter()
	t.SetOutputMirror(b)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Size.WidthMax = maxWidth
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})
	return t, b
}

func render(t table.Writer, b *strings.Builder) string {
	t.Render()
	return b.String()
}

func sol(lamports uint64) string {
	return quote.SOL(lamports).StringFixed(4) + " SOL"
}

func tokens(raw uint64, decimals uint8, symbol string) string {
	return quote.Tokens(raw, decimals).StringFixed(2) + " " + symbol
}

func percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}

// PoolView is what the pool report needs besides the pool itself.
type PoolView struct {
	Key       solana.PublicKey
	Pool      *state.Pool
	Symbol    string
	Decimals  uint8
	Threshold uint64
	Migration *state.MigrationRecord
}

// Pool renders reserves, price and graduation status of a pool.
func Pool(v PoolView) (string, error) {
	p := v.Pool
	price, err := quote.Price(p, v.Decimals)
	if err != nil {
		return "", err
	}
	mcap, err := quote.MarketCap(p, v.Decimals)
	if err != nil {
		return "", err
	}

	t, b := newTable(fmt.Sprintf("Pool %s", v.Symbol))
	t.AppendRows([]table.Row{
		{"Address", v.Key.String()},
		{"Mint", p.TokenOne.String()},
		{"Layout", layout(p)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Token reserve", tokens(p.ReserveOne, v.Decimals, v.Symbol)},
		{"Real SOL reserve", sol(p.ReserveTwo)},
		{"Virtual SOL", sol(p.VirtualSolReserve)},
		{"Total supply", tokens(p.TotalSupply, v.Decimals, v.Symbol)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Price", price.StringFixed(12) + " SOL"},
		{"Market cap", mcap.StringFixed(2) + " SOL"},
	})
	t.AppendSeparator()
	if v.Migration != nil {
		t.AppendRow(table.Row{"Status", positiveStyle.Render("graduated")})
		t.AppendRow(table.Row{"AMM pool", v.Migration.AmmPool.String()})
		t.AppendRow(table.Row{"Graduated at slot", v.Migration.Slot})
	} else {
		t.AppendRow(table.Row{"Status", warningStyle.Render("bonding curve")})
		t.AppendRow(table.Row{"Graduation", percent(quote.GraduationProgress(p, v.Threshold)) + " of " + sol(v.Threshold)})
	}
	return render(t, b), nil
}

func layout(p *state.Pool) string {
	if p.Legacy {
		return mutedStyle.Render("legacy (no virtual reserve)")
	}
	return "virtual liquidity"
}

// Position renders a wallet's cost basis and unrealised P&L.
func Position(owner solana.PublicKey, pool *state.Pool, pos *state.UserPosition, held uint64, symbol string, decimals uint8) (string, error) {
	t, b := newTable(fmt.Sprintf("Position %s", symbol))
	t.AppendRow(table.Row{"Owner", owner.String()})
	t.AppendRow(table.Row{"Held", tokens(held, decimals, symbol)})
	if pos == nil || !pos.HasBasis() {
		t.AppendRow(table.Row{"Cost basis", mutedStyle.Render("untracked")})
		return render(t, b), nil
	}

	pnl, err := quote.PositionPnL(pool, pos)
	if err != nil {
		return "", err
	}
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Bought", tokens(pos.TotalTokens, decimals, symbol)},
		{"Spent", sol(pos.TotalSol)},
		{"Cost basis", quote.CostBasis(pos, decimals).StringFixed(12) + " SOL"},
		{"Value at spot", pnl.Value.StringFixed(4) + " SOL"},
		{"P&L", signed(percent(pnl.Percent), pnl.InLoss)},
	})
	if pnl.InLoss {
		t.AppendRow(table.Row{"Sell now", negativeStyle.Render("paper-hand tax applies")})
	}
	return render(t, b), nil
}

// Config renders the configuration account and deployment parameters.
func Config(cfg *state.CurveConfiguration, params processor.Params) string {
	t, b := newTable("Configuration")
	t.AppendRows([]table.Row{
		{"Admin", cfg.Admin.String()},
		{"Treasury", cfg.Treasury.String()},
		{"Swap fee", percent(quote.Bps(cfg.Fees))},
		{"Paper-hand tax", percent(quote.Bps(cfg.PaperhandTaxBps))},
		{"Default virtual SOL", sol(cfg.DefaultVirtualSol)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Graduation threshold", sol(params.GraduationThreshold)},
		{"Launch fee", sol(params.LaunchFee)},
		{"Untracked sells", string(params.UntrackedSellPolicy)},
	})
	return render(t, b)
}

// Trade renders the outcome of one committed trade.
func Trade(res *processor.Result, symbol string, decimals uint8) string {
	tr := res.Trade
	t, b := newTable(fmt.Sprintf("%s %s", strings.ToUpper(tr.Side), symbol))
	if tr.Side == events.SideBuy {
		t.AppendRow(table.Row{"Spent", sol(tr.AmountIn)})
		t.AppendRow(table.Row{"Received", tokens(tr.AmountOut, decimals, symbol)})
	} else {
		t.AppendRow(table.Row{"Sold", tokens(tr.AmountIn, decimals, symbol)})
		t.AppendRow(table.Row{"Gross", sol(tr.GrossOut)})
		if tr.Taxed {
			t.AppendRow(table.Row{"Paper-hand tax", negativeStyle.Render(sol(tr.Tax))})
		}
		t.AppendRow(table.Row{"Received", sol(tr.AmountOut)})
	}
	t.AppendRow(table.Row{"Slot", res.Slot})
	if tr.Graduated {
		t.AppendRow(table.Row{"Pool", positiveStyle.Render("graduated")})
	}
	return render(t, b)
}

// Simulation renders a simulator report.
func Simulation(r *simulate.Report) string {
	t, b := newTable("Simulation")
	t.AppendRows([]table.Row{
		{"Traders", len(r.Traders)},
		{"Trades", r.Trades},
		{"Buys", r.Buys},
		{"Sells", r.Sells},
		{"Taxed sells", r.TaxedSells},
		{"Tax collected", sol(r.TaxCollected)},
		{"Treasury delta", sol(r.TreasuryDelta)},
		{"Graduated", r.Graduated},
	})
	if names := r.RejectionNames(); len(names) > 0 {
		t.AppendSeparator()
		for _, name := range names {
			t.AppendRow(table.Row{"Rejected " + name, r.Rejected[name]})
		}
	}
	return render(t, b)
}

// Statistics renders trade journal statistics.
func Statistics(s journal.Statistics) string {
	t, b := newTable("Journal")
	t.AppendRows([]table.Row{
		{"Trades", s.TotalTrades},
		{"Buys", s.BuyCount},
		{"Sells", s.SellCount},
		{"Taxed sells", fmt.Sprintf("%d (%.1f%%)", s.TaxedSells, s.TaxedRate())},
		{"Untracked sells", s.UntrackedSells},
		{"Buy volume", sol(s.BuyVolume)},
		{"Sell volume", sol(s.SellVolume)},
		{"Tax collected", sol(s.TaxCollected)},
		{"Unique traders", s.UniqueTraders},
	})
	return render(t, b)
}
