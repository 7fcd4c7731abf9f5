package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryptobluejava/phbt-sub000/internal/app"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/quote"
	"github.com/cryptobluejava/phbt-sub000/internal/report"
)

func (c *cli) initCmd() *cobra.Command {
	var admin string
	var fees, tax uint16
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the curve configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adminKey, err := c.wallet(admin)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("fees") {
				fees = c.cfg.Fees
			}
			if !cmd.Flags().Changed("tax") {
				tax = c.cfg.PaperhandTaxBps
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Processor.Initialize(ctx, adminKey, fees, tax)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), report.Config(res.Config, a.Processor.Params()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&admin, "admin", "", "admin public key (keypair when empty)")
	cmd.Flags().Uint16Var(&fees, "fees", 0, "swap fee in basis points")
	cmd.Flags().Uint16Var(&tax, "tax", 0, "paper-hand tax in basis points")
	return cmd
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the curve configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.engine(cmd, true, func(_ context.Context, a *app.App) error {
				cfg, err := a.Processor.Config()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), report.Config(cfg, a.Processor.Params()))
				return nil
			})
		},
	}

	var admin, treasury string
	var fees, tax uint16
	update := &cobra.Command{
		Use:   "update",
		Short: "Change fees, treasury or paper-hand tax (admin only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			adminKey, err := c.wallet(admin)
			if err != nil {
				return err
			}
			args := &instruction.UpdateConfiguration{}
			if cmd.Flags().Changed("fees") {
				args.Fees = &fees
			}
			if cmd.Flags().Changed("tax") {
				args.PaperhandTaxBps = &tax
			}
			if treasury != "" {
				key, err := parseKey(treasury)
				if err != nil {
					return err
				}
				args.Treasury = &key
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Processor.UpdateConfiguration(ctx, adminKey, args)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), report.Config(res.Config, a.Processor.Params()))
				return nil
			})
		},
	}
	update.Flags().StringVar(&admin, "admin", "", "admin public key (keypair when empty)")
	update.Flags().StringVar(&treasury, "treasury", "", "new treasury public key")
	update.Flags().Uint16Var(&fees, "fees", 0, "swap fee in basis points")
	update.Flags().Uint16Var(&tax, "tax", 0, "paper-hand tax in basis points")
	cmd.AddCommand(update)
	return cmd
}

func (c *cli) launchCmd() *cobra.Command {
	var creator, supply, reserve string
	args := &instruction.Launch{}
	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Create a token and its bonding-curve pool",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creatorKey, err := c.wallet(creator)
			if err != nil {
				return err
			}
			if args.InitialSupply, err = parseTokens(supply, args.Decimals); err != nil {
				return err
			}
			if args.InitialSolReserve, err = parseSOL(reserve); err != nil {
				return err
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Processor.Launch(ctx, creatorKey, args)
				if err != nil {
					return err
				}
				out, err := report.Pool(report.PoolView{
					Key:       res.PoolKey,
					Pool:      res.Pool,
					Symbol:    args.Symbol,
					Decimals:  args.Decimals,
					Threshold: a.Processor.Params().GraduationThreshold,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mint %s\n%s", res.Mint, out)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&creator, "creator", "", "creator public key (keypair when empty)")
	cmd.Flags().StringVar(&args.TokenName, "name", "", "token name")
	cmd.Flags().StringVar(&args.Symbol, "symbol", "", "token symbol")
	cmd.Flags().StringVar(&args.URI, "uri", "", "metadata URI")
	cmd.Flags().Uint8Var(&args.Decimals, "decimals", 6, "token decimals")
	cmd.Flags().StringVar(&supply, "supply", "1000000000", "initial supply in whole tokens")
	cmd.Flags().StringVar(&reserve, "sol", "1", "initial SOL reserve")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("symbol")
	return cmd
}

func (c *cli) buyCmd() *cobra.Command {
	var wallet, slippage string
	cmd := &cobra.Command{
		Use:   "buy <mint> <sol>",
		Short: "Buy tokens with SOL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			solIn, err := parseSOL(args[1])
			if err != nil {
				return err
			}
			user, err := c.wallet(wallet)
			if err != nil {
				return err
			}
			slip, err := quote.ParseSlippage(slippage)
			if err != nil {
				return err
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				cfg, err := a.Processor.Config()
				if err != nil {
					return err
				}
				_, pool, err := a.Processor.Pool(mint)
				if err != nil {
					return err
				}
				q, err := quote.PreviewBuy(cfg, pool, solIn)
				if err != nil {
					return err
				}
				res, err := a.Processor.Buy(ctx, user, mint, solIn, quote.MinAmountOut(q.TokensOut, slip))
				if err != nil {
					return err
				}
				return printTrade(cmd, a, mint, res)
			})
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "buyer public key (keypair when empty)")
	cmd.Flags().StringVar(&slippage, "slippage", "1%", "slippage: percent, fixed:<raw amount> or none")
	return cmd
}

func (c *cli) sellCmd() *cobra.Command {
	var wallet, slippage string
	cmd := &cobra.Command{
		Use:   "sell <mint> <tokens|all>",
		Short: "Sell tokens for SOL, paying the paper-hand tax when below cost basis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			user, err := c.wallet(wallet)
			if err != nil {
				return err
			}
			slip, err := quote.ParseSlippage(slippage)
			if err != nil {
				return err
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				md, err := a.Processor.Metadata(mint)
				if err != nil {
					return err
				}
				var amount uint64
				if args[1] == "all" {
					amount = a.Ledger.TokenBalance(user, mint)
				} else if amount, err = parseTokens(args[1], md.Decimals); err != nil {
					return err
				}

				cfg, err := a.Processor.Config()
				if err != nil {
					return err
				}
				_, pool, err := a.Processor.Pool(mint)
				if err != nil {
					return err
				}
				pos, err := a.Processor.Position(mint, user)
				if err != nil {
					return err
				}
				q, err := quote.PreviewSell(cfg, pool, pos, a.Processor.Params().UntrackedSellPolicy, amount)
				if err != nil {
					return err
				}
				if q.Taxed {
					a.Logger.Warn("Sell is below cost basis, paper-hand tax applies")
				}
				res, err := a.Processor.Sell(ctx, user, mint, amount, quote.MinAmountOut(q.Net, slip))
				if err != nil {
					return err
				}
				return printTrade(cmd, a, mint, res)
			})
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "seller public key (keypair when empty)")
	cmd.Flags().StringVar(&slippage, "slippage", "1%", "slippage: percent, fixed:<raw amount> or none")
	return cmd
}

func (c *cli) graduateCmd() *cobra.Command {
	var payer string
	cmd := &cobra.Command{
		Use:   "graduate <mint>",
		Short: "Run the graduation check for a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			payerKey, err := c.wallet(payer)
			if err != nil {
				return err
			}
			return c.engine(cmd, false, func(ctx context.Context, a *app.App) error {
				res, err := a.Processor.Graduate(ctx, payerKey, mint)
				if err != nil {
					return err
				}
				if res.Migration == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "pool is below the graduation threshold")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "graduated to %s\n", res.Migration.AmmPool)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&payer, "payer", "", "payer public key (keypair when empty)")
	return cmd
}
