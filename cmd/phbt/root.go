package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cryptobluejava/phbt-sub000/internal/app"
	"github.com/cryptobluejava/phbt-sub000/internal/config"
	"github.com/cryptobluejava/phbt-sub000/internal/quote"
)

type cli struct {
	cfgFile string
	envFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "phbt",
		Short:         "Paper-hand bonding curve launchpad engine and client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", c.envFile, err)
			}
			cfg, err := config.LoadConfig(c.cfgFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file (defaults and PHBT_* env when empty)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		c.initCmd(),
		c.configCmd(),
		c.launchCmd(),
		c.buyCmd(),
		c.sellCmd(),
		c.graduateCmd(),
		c.poolCmd(),
		c.positionCmd(),
		c.airdropCmd(),
		c.pdaCmd(),
		c.simulateCmd(),
		c.exportCmd(),
		c.remoteCmd(),
	)
	return root
}

// engine runs fn against the local engine and saves the ledger afterwards
// unless readOnly is set.
func (c *cli) engine(cmd *cobra.Command, readOnly bool, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx, stop := app.NotifyContext(cmd.Context())
	defer stop()

	a, err := app.New(c.cfg, app.Options{Console: cmd.ErrOrStderr(), ReadOnly: readOnly})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.Background()); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

// signerKey returns the keypair public key, the default wallet of local commands.
func (c *cli) signerKey() (solana.PublicKey, error) {
	if c.cfg.KeypairPath == "" {
		return solana.PublicKey{}, fmt.Errorf("no wallet given and keypair_path is not configured")
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(c.cfg.KeypairPath)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to load keypair: %w", err)
	}
	return key.PublicKey(), nil
}

// wallet resolves a --wallet style flag, falling back to the keypair.
func (c *cli) wallet(value string) (solana.PublicKey, error) {
	if value == "" {
		return c.signerKey()
	}
	return parseKey(value)
}

func parseKey(s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid public key %q: %w", s, err)
	}
	return key, nil
}

// parseSOL reads a SOL amount such as "0.25" into lamports.
func parseSOL(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return 0, fmt.Errorf("invalid SOL amount %q", s)
	}
	return quote.Lamports(d), nil
}

// parseTokens reads a whole-token amount into raw units.
func parseTokens(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return 0, fmt.Errorf("invalid token amount %q", s)
	}
	return quote.RawTokens(d, decimals), nil
}
