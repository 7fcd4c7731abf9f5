// =============================
// File: internal/simulate/simulate.go
// =============================

// Package simulate drives many concurrent traders against one pool of a local
// engine and checks the money it moved.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/quote"
)

// ErrTreasuryMismatch is returned when the treasury moved by something other
// than the paper-hand tax collected during the run.
var ErrTreasuryMismatch = errors.New("treasury delta does not match collected tax")

// ErrLamportsNotConserved is returned when lamports appeared or vanished.
var ErrLamportsNotConserved = errors.New("lamports not conserved")

// Config describes a run.
type Config struct {
	Traders int
	Rounds  int
	// Funding is airdropped to every trader before the run.
	Funding uint64
	// MaxBuy caps the lamports spent by one buy.
	MaxBuy uint64
	// SellChance is the probability that a round sells instead of buys.
	SellChance float64
	// Slippage is applied to the quote of every trade.
	Slippage quote.SlippageConfig
	Seed     int64
}

// DefaultConfig is a short run that exercises buys, sells and the tax.
func DefaultConfig() Config {
	return Config{
		Traders:    8,
		Rounds:     25,
		Funding:    10 * program.LamportsPerSOL,
		MaxBuy:     program.LamportsPerSOL / 2,
		SellChance: 0.4,
		Slippage:   quote.SlippageConfig{Type: quote.SlippagePercent, Value: decimal.NewFromInt(5)},
		Seed:       1,
	}
}

// Report summarizes a run.
type Report struct {
	Trades        int
	Buys          int
	Sells         int
	TaxedSells    int
	Rejected      map[string]int
	TaxCollected  uint64
	TreasuryDelta uint64
	Graduated     bool
	Traders       []solana.PublicKey
}

// Simulator runs traders against a processor.
type Simulator struct {
	proc   *processor.Processor
	logger *zap.Logger
}

// New creates a simulator over proc.
func New(proc *processor.Processor, logger *zap.Logger) *Simulator {
	return &Simulator{proc: proc, logger: logger.Named("simulate")}
}

// Run trades cfg.Rounds times from each of cfg.Traders wallets against the
// pool of mint. Program rejections are counted; any other failure stops the
// run. After the run the treasury delta must equal the tax collected and the
// lamports held by traders, treasury and the pool's real reserve must be
// unchanged.
func (s *Simulator) Run(ctx context.Context, mint solana.PublicKey, cfg Config) (*Report, error) {
	if cfg.Traders <= 0 || cfg.Rounds <= 0 {
		return nil, fmt.Errorf("traders and rounds must be positive")
	}
	if cfg.MaxBuy == 0 {
		return nil, fmt.Errorf("max buy must be positive")
	}

	treasury, err := s.proc.Treasury()
	if err != nil {
		return nil, err
	}
	_, pool, err := s.proc.Pool(mint)
	if err != nil {
		return nil, err
	}
	l := s.proc.Ledger()

	report := &Report{Rejected: map[string]int{}}
	for i := 0; i < cfg.Traders; i++ {
		wallet := solana.NewWallet().PublicKey()
		if err := l.Airdrop(ctx, wallet, cfg.Funding); err != nil {
			return nil, fmt.Errorf("fund trader %d: %w", i, err)
		}
		report.Traders = append(report.Traders, wallet)
	}

	treasuryBefore := l.Lamports(treasury)
	totalBefore := treasuryBefore + pool.ReserveTwo + uint64(cfg.Traders)*cfg.Funding

	s.logger.Info("Simulation started",
		zap.String("mint", mint.String()),
		zap.Int("traders", cfg.Traders),
		zap.Int("rounds", cfg.Rounds))

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for i, wallet := range report.Traders {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))
		g.Go(func() error {
			for round := 0; round < cfg.Rounds; round++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				res, side, err := s.trade(gCtx, rng, wallet, mint, cfg)
				if err := s.tally(&mu, report, res, side, err); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	treasuryAfter := l.Lamports(treasury)
	report.TreasuryDelta = treasuryAfter - treasuryBefore
	_, pool, err = s.proc.Pool(mint)
	if err != nil {
		return report, err
	}
	totalAfter := treasuryAfter + pool.ReserveTwo
	for _, w := range report.Traders {
		totalAfter += l.Lamports(w)
	}
	if rec, err := s.proc.Graduated(mint); err == nil && rec != nil {
		report.Graduated = true
	}

	s.logger.Info("Simulation finished",
		zap.Int("trades", report.Trades),
		zap.Int("taxed_sells", report.TaxedSells),
		zap.Uint64("tax_collected", report.TaxCollected),
		zap.Uint64("treasury_delta", report.TreasuryDelta),
		zap.Bool("graduated", report.Graduated))

	if report.TreasuryDelta != report.TaxCollected {
		return report, fmt.Errorf("%w: delta %d, tax %d", ErrTreasuryMismatch, report.TreasuryDelta, report.TaxCollected)
	}
	if totalAfter != totalBefore {
		return report, fmt.Errorf("%w: %d before, %d after", ErrLamportsNotConserved, totalBefore, totalAfter)
	}
	return report, nil
}

// trade quotes and submits one random buy or sell for wallet.
func (s *Simulator) trade(ctx context.Context, rng *rand.Rand, wallet, mint solana.PublicKey, cfg Config) (*processor.Result, string, error) {
	curveCfg, err := s.proc.Config()
	if err != nil {
		return nil, "", err
	}
	_, pool, err := s.proc.Pool(mint)
	if err != nil {
		return nil, "", err
	}

	held := s.proc.Ledger().TokenBalance(wallet, mint)
	if held > 0 && rng.Float64() < cfg.SellChance {
		amount := uint64(rng.Int63n(int64(held))) + 1
		pos, err := s.proc.Position(mint, wallet)
		if err != nil {
			return nil, "", err
		}
		q, err := quote.PreviewSell(curveCfg, pool, pos, s.proc.Params().UntrackedSellPolicy, amount)
		if err != nil {
			return nil, "", err
		}
		res, err := s.proc.Sell(ctx, wallet, mint, amount, quote.MinAmountOut(q.Net, cfg.Slippage))
		return res, events.SideSell, err
	}

	amount := uint64(rng.Int63n(int64(cfg.MaxBuy))) + 1
	q, err := quote.PreviewBuy(curveCfg, pool, amount)
	if err != nil {
		return nil, "", err
	}
	res, err := s.proc.Buy(ctx, wallet, mint, amount, quote.MinAmountOut(q.TokensOut, cfg.Slippage))
	return res, events.SideBuy, err
}

func (s *Simulator) tally(mu *sync.Mutex, report *Report, res *processor.Result, side string, err error) error {
	mu.Lock()
	defer mu.Unlock()
	if err != nil {
		var pe *program.Error
		if !errors.As(err, &pe) {
			return err
		}
		report.Rejected[pe.Name]++
		return nil
	}
	report.Trades++
	if side == events.SideSell {
		report.Sells++
	} else {
		report.Buys++
	}
	if t := res.Trade; t != nil {
		report.TaxCollected += t.Tax
		if t.Taxed {
			report.TaxedSells++
		}
	}
	return nil
}

// RejectionNames returns the rejected error names in a stable order.
func (r *Report) RejectionNames() []string {
	names := make([]string, 0, len(r.Rejected))
	for name := range r.Rejected {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
