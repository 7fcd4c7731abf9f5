package main

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/client"
	"github.com/cryptobluejava/phbt-sub000/internal/logger"
	"github.com/cryptobluejava/phbt-sub000/internal/quote"
	"github.com/cryptobluejava/phbt-sub000/internal/report"
)

type remote struct {
	*cli
	rpcURL   string
	decimals uint8
}

func (c *cli) remoteCmd() *cobra.Command {
	r := &remote{cli: c}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Read and trade against a deployed program over RPC",
	}
	cmd.PersistentFlags().StringVar(&r.rpcURL, "rpc", "", "RPC endpoint (first rpc_list entry when empty)")
	cmd.PersistentFlags().Uint8Var(&r.decimals, "decimals", 6, "token decimals used for display and amounts")
	cmd.AddCommand(r.configCmd(), r.poolCmd(), r.positionCmd(), r.buyCmd(), r.sellCmd(), r.graduateCmd())
	return cmd
}

// client builds an RPC client; withSigner loads the configured keypair.
func (r *remote) client(cmd *cobra.Command, withSigner bool) (*client.Client, *zap.Logger, func(), error) {
	log, closeLog, err := logger.New(logger.Options{Debug: r.cfg.DebugLogging, File: r.cfg.LogFile, Console: cmd.ErrOrStderr()})
	if err != nil {
		return nil, nil, nil, err
	}
	done := func() {
		_ = logger.Sync(log)
		_ = closeLog()
	}

	url := r.rpcURL
	if url == "" {
		url = r.cfg.RPCList[0]
	}
	var signer solana.PrivateKey
	if withSigner {
		if r.cfg.KeypairPath == "" {
			done()
			return nil, nil, nil, fmt.Errorf("keypair_path is required to sign transactions")
		}
		if signer, err = solana.PrivateKeyFromSolanaKeygenFile(r.cfg.KeypairPath); err != nil {
			done()
			return nil, nil, nil, fmt.Errorf("failed to load keypair: %w", err)
		}
	}
	cl := client.New(url, r.cfg.ProgramKey(), signer, log, client.WithRetries(uint(r.cfg.Retries)))
	return cl, log, done, nil
}

func (r *remote) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the deployed curve configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, _, done, err := r.client(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			cfg, err := cl.FetchConfig(cmd.Context())
			if err != nil {
				return err
			}
			params, err := r.cfg.Params()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), report.Config(cfg, params))
			return nil
		},
	}
}

func (r *remote) poolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pool <mint>",
		Short: "Show a deployed pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			cl, _, done, err := r.client(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			key, pool, err := cl.FetchPool(cmd.Context(), mint)
			if err != nil {
				return err
			}
			migration, err := cl.FetchMigration(cmd.Context(), mint)
			if err != nil {
				return err
			}
			out, err := report.Pool(report.PoolView{
				Key:       key,
				Pool:      pool,
				Symbol:    logger.ShortAddress(mint.String()),
				Decimals:  r.decimals,
				Threshold: r.cfg.GraduationThreshold,
				Migration: migration,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (r *remote) positionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "position <mint> <wallet>",
		Short: "Show a wallet's recorded cost basis on a deployed pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			user, err := parseKey(args[1])
			if err != nil {
				return err
			}
			cl, _, done, err := r.client(cmd, false)
			if err != nil {
				return err
			}
			defer done()
			_, pool, err := cl.FetchPool(cmd.Context(), mint)
			if err != nil {
				return err
			}
			pos, err := cl.FetchPosition(cmd.Context(), mint, user)
			if err != nil {
				return err
			}
			out, err := report.Position(user, pool, pos, pos.TotalTokens, logger.ShortAddress(mint.String()), r.decimals)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func (r *remote) buyCmd() *cobra.Command {
	var slippage string
	cmd := &cobra.Command{
		Use:   "buy <mint> <sol>",
		Short: "Buy on a deployed pool with the configured keypair",
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
			slip, err := quote.ParseSlippage(slippage)
			if err != nil {
				return err
			}
			cl, _, done, err := r.client(cmd, true)
			if err != nil {
				return err
			}
			defer done()

			cfg, err := cl.FetchConfig(cmd.Context())
			if err != nil {
				return err
			}
			_, pool, err := cl.FetchPool(cmd.Context(), mint)
			if err != nil {
				return err
			}
			q, err := quote.PreviewBuy(cfg, pool, solIn)
			if err != nil {
				return err
			}
			sig, err := cl.Buy(cmd.Context(), mint, solIn, quote.MinAmountOut(q.TokensOut, slip))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&slippage, "slippage", "1%", "slippage: percent, fixed:<raw amount> or none")
	return cmd
}

func (r *remote) sellCmd() *cobra.Command {
	var slippage string
	cmd := &cobra.Command{
		Use:   "sell <mint> <tokens>",
		Short: "Sell on a deployed pool with the configured keypair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			amount, err := parseTokens(args[1], r.decimals)
			if err != nil {
				return err
			}
			slip, err := quote.ParseSlippage(slippage)
			if err != nil {
				return err
			}
			params, err := r.cfg.Params()
			if err != nil {
				return err
			}
			cl, log, done, err := r.client(cmd, true)
			if err != nil {
				return err
			}
			defer done()

			cfg, err := cl.FetchConfig(cmd.Context())
			if err != nil {
				return err
			}
			_, pool, err := cl.FetchPool(cmd.Context(), mint)
			if err != nil {
				return err
			}
			pos, err := cl.FetchPosition(cmd.Context(), mint, cl.Signer())
			if err != nil {
				log.Debug("No recorded position", zap.Error(err))
				pos = nil
			}
			q, err := quote.PreviewSell(cfg, pool, pos, params.UntrackedSellPolicy, amount)
			if err != nil {
				return err
			}
			if q.Taxed {
				log.Warn("Sell is below cost basis, paper-hand tax applies",
					zap.String("tax", quote.SOL(q.Tax).String()))
			}
			sig, err := cl.Sell(cmd.Context(), mint, amount, quote.MinAmountOut(q.Net, slip))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringVar(&slippage, "slippage", "1%", "slippage: percent, fixed:<raw amount> or none")
	return cmd
}

func (r *remote) graduateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graduate <mint>",
		Short: "Crank graduation of a deployed pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := parseKey(args[0])
			if err != nil {
				return err
			}
			cl, _, done, err := r.client(cmd, true)
			if err != nil {
				return err
			}
			defer done()
			sig, err := cl.Graduate(cmd.Context(), mint)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
}
