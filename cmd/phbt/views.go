package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cryptobluejava/phbt-sub000/internal/app"
	"github.com/cryptobluejava/phbt-sub000/internal/journal"
	"github.com/cryptobluejava/phbt-sub000/internal/program/pda"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/quote"
	"github.com/cryptobluejava/phbt-sub000/internal/report"
	"github.com/cryptobluejava/phbt-sub000/internal/simulate"
)

func printTrade(cmd *cobra.Command, a *app.App, mint solana.PublicKey, res *processor.Result) error {
	md, err := a.Processor.Metadata(mint)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Trade(res, md.Symbol, md.Decimals))
	return nil
}

func (c *cli) poolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool <mint>",
		Short: "Show reserves, price and graduation progress of a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return c.engine(cmd, true, func(_ context.Context, a *app.App) error {
				key, pool, err := a.Processor.Pool(mint)
				if err != nil {
					return err
				}
				md, err := a.Processor.Metadata(mint)
				if err != nil {
					return err
				}
				migration, err := a.Processor.Graduated(mint)
				if err != nil {
					return err
				}
				out, err := report.Pool(report.PoolView{
					Key:       key,
					Pool:      pool,
					Symbol:    md.Symbol,
					Decimals:  md.Decimals,
					Threshold: a.Processor.Params().GraduationThreshold,
					Migration: migration,
				})
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func (c *cli) positionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "position <mint> [wallet]",
		Short: "Show a wallet's cost basis and unrealised P&L",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			var owner string
			if len(args) == 2 {
				owner = args[1]
			}
			user, err := c.wallet(owner)
			if err != nil {
				return err
			}
			return c.engine(cmd, true, func(_ context.Context, a *app.App) error {
				_, pool, err := a.Processor.Pool(mint)
				if err != nil {
					return err
				}
				md, err := a.Processor.Metadata(mint)
				if err != nil {
					return err
				}
				pos, err := a.Processor.Position(mint, user)
				if err != nil {
					return err
				}
				out, err := report.Position(user, pool, pos, a.Ledger.TokenBalance(user, mint), md.Symbol, md.Decimals)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}

func (c *cli) airdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <wallet> <sol>",
		Short: "Credit SOL to a wallet on the local engine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wallet, err := parseKey(args[0])
			if err != nil {
				return err
			}
			lamports, err := parseSOL(args[1])
			if err != nil {
				return err
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				if err := a.Ledger.Airdrop(ctx, wallet, lamports); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s now holds %d lamports\n", wallet, a.Ledger.Lamports(wallet))
				return nil
			})
		},
	}
}

func (c *cli) pdaCmd() *cobra.Command {
	var wallet string
	cmd := &cobra.Command{
		Use:   "pda <mint>",
		Short: "Print the program-derived addresses of a mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			d := pda.New(c.cfg.ProgramKey())
			accs, err := d.ForMint(mint)
			if err != nil {
				return err
			}
			treasury, err := d.TreasuryVault()
			if err != nil {
				return err
			}
			metadata, err := pda.Metadata(mint)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleRounded)
			t.SetTitle("Addresses for " + mint.String())
			t.AppendHeader(table.Row{"Account", "Address", "Bump"})
			t.AppendRows([]table.Row{
				{"Curve configuration", accs.Config.Key, accs.Config.Bump},
				{"Global vault", accs.Global.Key, accs.Global.Bump},
				{"Pool", accs.Pool.Key, accs.Pool.Bump},
				{"Pool token vault", accs.PoolVault, ""},
				{"Migration record", accs.Migration.Key, accs.Migration.Bump},
				{"Treasury vault", treasury.Key, treasury.Bump},
				{"Metadata", metadata.Key, metadata.Bump},
			})
			if wallet != "" {
				user, err := parseKey(wallet)
				if err != nil {
					return err
				}
				pos, err := d.Position(accs.Pool.Key, user)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{"Position", pos.Key, pos.Bump})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "also derive this wallet's position")
	return cmd
}

func (c *cli) simulateCmd() *cobra.Command {
	cfg := simulate.DefaultConfig()
	var slippage string
	cmd := &cobra.Command{
		Use:   "simulate <mint>",
		Short: "Run concurrent random traders against a pool and check the treasury",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("slippage") {
				if cfg.Slippage, err = quote.ParseSlippage(slippage); err != nil {
					return err
				}
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				r, err := simulate.New(a.Processor, a.Logger).Run(ctx, mint, cfg)
				if r != nil {
					fmt.Fprint(cmd.OutOrStdout(), report.Simulation(r))
				}
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), report.Statistics(a.Journal.Statistics()))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&cfg.Traders, "traders", cfg.Traders, "concurrent traders")
	cmd.Flags().IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "trades per trader")
	cmd.Flags().Float64Var(&cfg.SellChance, "sell-chance", cfg.SellChance, "probability that a round sells")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	cmd.Flags().Uint64Var(&cfg.MaxBuy, "max-buy", cfg.MaxBuy, "largest buy in lamports")
	cmd.Flags().Uint64Var(&cfg.Funding, "funding", cfg.Funding, "lamports airdropped to each trader")
	cmd.Flags().StringVar(&slippage, "slippage", "5%", "slippage applied to every quote")
	return cmd
}

func (c *cli) exportCmd() *cobra.Command {
	var format, mint, side, from, to, out string
	var onlyTaxed bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the trade journal to CSV or JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := journal.ExportOptions{
				Format:    journal.ExportFormat(format),
				Side:      side,
				OnlyTaxed: onlyTaxed,
				OutputDir: out,
			}
			var err error
			if mint != "" {
				if opts.Mint, err = parseKey(mint); err != nil {
					return err
				}
			}
			if opts.StartTime, err = parseDate(from); err != nil {
				return err
			}
			if opts.EndTime, err = parseDate(to); err != nil {
				return err
			}

			entries, err := readJournal(filepath.Join(c.cfg.JournalDir, journal.FileName))
			if err != nil {
				return err
			}
			return c.engine(cmd, true, func(_ context.Context, a *app.App) error {
				path, err := journal.NewExporter(a.Logger).Export(entries, opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", string(journal.FormatCSV), "csv or json")
	cmd.Flags().StringVar(&mint, "mint", "", "only this mint")
	cmd.Flags().StringVar(&side, "side", "", "buy or sell")
	cmd.Flags().BoolVar(&onlyTaxed, "taxed", false, "only taxed sells")
	cmd.Flags().StringVar(&from, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&out, "out", "exports", "output directory")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func readJournal(path string) ([]journal.Entry, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no trades recorded yet (%s)", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return journal.ReadCSV(f)
}
