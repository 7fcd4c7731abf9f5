// =============================
// File: internal/program/processor/trade.go
// =============================
package processor

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/program/ledger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

// TradeResult is the outcome of a committed buy or sell.
type TradeResult struct {
	Side string
	User solana.PublicKey
	Mint solana.PublicKey
	Pool solana.PublicKey

	// AmountIn is lamports for a buy and tokens for a sell. AmountOut is tokens
	// for a buy and SOL after tax for a sell.
	AmountIn  uint64
	AmountOut uint64
	GrossOut  uint64
	Tax       uint64
	Taxed     bool
	Untracked bool

	PoolAfter state.Pool
	Position  *state.UserPosition
	Graduated bool
	Migration *state.MigrationRecord
}

// Buy spends solIn lamports on tokens of mint.
func (p *Processor) Buy(ctx context.Context, user, mint solana.PublicKey, solIn, minTokensOut uint64) (*Result, error) {
	treasury, err := p.Treasury()
	if err != nil {
		return nil, err
	}
	ix, err := p.builder.Buy(user, mint, treasury, &instruction.Buy{Amount: solIn, MinAmountOut: minTokensOut})
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

// Sell sells tokensIn tokens of mint for SOL.
func (p *Processor) Sell(ctx context.Context, user, mint solana.PublicKey, tokensIn, minSolOut uint64) (*Result, error) {
	treasury, err := p.Treasury()
	if err != nil {
		return nil, err
	}
	ix, err := p.builder.Sell(user, mint, treasury, &instruction.Sell{Amount: tokensIn, MinAmountOut: minSolOut})
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

// Swap executes the combined entry point; style 1 sells, anything else buys.
func (p *Processor) Swap(ctx context.Context, user, mint solana.PublicKey, args *instruction.Swap) (*Result, error) {
	treasury, err := p.Treasury()
	if err != nil {
		return nil, err
	}
	ix, err := p.builder.Swap(user, mint, treasury, args)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

// tradeAccounts carries the resolved keys of a trade.
type tradeAccounts struct {
	user      solana.PublicKey
	mint      solana.PublicKey
	treasury  solana.PublicKey
	pool      solana.PublicKey
	position  solana.PublicKey
	migration solana.PublicKey
}

func (p *Processor) processTrade(ctx context.Context, accounts solana.AccountMetaSlice, name string, sell bool, amount, minOut uint64) (*Result, error) {
	if amount == 0 {
		return nil, program.ErrInvalidAmount
	}
	if err := requireAccounts(accounts, instruction.TradeMigration+1); err != nil {
		return nil, err
	}

	user := accounts[instruction.TradeUser].PublicKey
	mint := accounts[instruction.TradeMint].PublicKey
	treasury := accounts[instruction.TradeTreasury].PublicKey
	expected, err := p.builder.TradeAccounts(user, mint, treasury)
	if err != nil {
		return nil, err
	}
	if err := instruction.Verify(expected, accounts); err != nil {
		return nil, err
	}

	keys := tradeAccounts{
		user:      user,
		mint:      mint,
		treasury:  treasury,
		pool:      expected[instruction.TradePool].PublicKey,
		position:  expected[instruction.TradePosition].PublicKey,
		migration: expected[instruction.TradeMigration].PublicKey,
	}

	res := &Result{Mint: mint, PoolKey: keys.pool}
	err = p.ledger.Execute(ctx, p.lockSet(expected), func(tx *ledger.Txn) error {
		cfg, err := p.loadConfig(tx)
		if err != nil {
			return err
		}
		if !cfg.Treasury.Equals(treasury) {
			return fmt.Errorf("%w: treasury %s does not match configuration", program.ErrInvalidAccounts, treasury)
		}
		pool, err := p.loadPool(tx, keys.pool)
		if err != nil {
			return err
		}
		if !pool.TokenOne.Equals(mint) {
			return fmt.Errorf("%w: pool %s trades %s, not %s", program.ErrInvalidAccounts, keys.pool, pool.TokenOne, mint)
		}

		var trade *TradeResult
		if sell {
			trade, err = p.sell(tx, cfg, pool, keys, amount, minOut)
		} else {
			trade, err = p.buy(ctx, tx, cfg, pool, keys, amount, minOut)
		}
		if err != nil {
			return err
		}

		res.Trade = trade
		res.Pool = &trade.PoolAfter
		res.Slot = tx.Slot()
		res.Events = tradeEvents(tx, trade, keys, cfg)
		if trade.Migration != nil {
			res.Migration = trade.Migration
			res.Events = append(res.Events, graduatedEvent(tx, mint, trade.Migration))
		}
		return nil
	})
	if err != nil {
		p.logger.Debug("Trade rejected",
			zap.String("instruction", name),
			zap.String("user", user.String()),
			zap.String("mint", mint.String()),
			zap.Uint64("amount", amount),
			zap.Error(err))
		return nil, err
	}

	t := res.Trade
	p.logger.Info("Trade executed",
		zap.String("side", t.Side),
		zap.String("user", user.String()),
		zap.String("mint", mint.String()),
		zap.Uint64("amount_in", t.AmountIn),
		zap.Uint64("amount_out", t.AmountOut),
		zap.Uint64("tax", t.Tax),
		zap.Bool("graduated", t.Graduated))
	return res, nil
}

func (p *Processor) buy(ctx context.Context, tx *ledger.Txn, cfg *state.CurveConfiguration, pool *state.Pool, keys tradeAccounts, solIn, minTokensOut uint64) (*TradeResult, error) {
	effectiveSol, err := pool.EffectiveSolReserve()
	if err != nil {
		return nil, err
	}
	tokensOut, err := curve.SwapOutput(solIn, effectiveSol, pool.ReserveOne, cfg.Fees)
	if err != nil {
		return nil, err
	}
	if tokensOut < minTokensOut {
		return nil, fmt.Errorf("%w: %d tokens out, minimum %d", program.ErrSlippageExceeded, tokensOut, minTokensOut)
	}
	if tokensOut == 0 {
		return nil, fmt.Errorf("%w: %d lamports buys no tokens", program.ErrInvalidAmount, solIn)
	}

	tokenReserve, err := curve.CheckedSub(pool.ReserveOne, tokensOut)
	if err != nil {
		return nil, err
	}
	solReserve, err := curve.CheckedAdd(pool.ReserveTwo, solIn)
	if err != nil {
		return nil, err
	}

	position, err := p.loadPosition(tx, keys.position)
	if err != nil {
		return nil, err
	}
	created := position == nil
	if created {
		addr, err := p.derive.Position(keys.pool, keys.user)
		if err != nil {
			return nil, err
		}
		position = state.NewUserPosition(keys.pool, keys.user, addr.Bump)
	}
	if err := position.RecordBuy(tokensOut, solIn); err != nil {
		return nil, err
	}

	// state
	pool.ReserveOne = tokenReserve
	pool.ReserveTwo = solReserve
	if err := p.storePool(tx, keys.pool, pool); err != nil {
		return nil, err
	}
	posData, err := position.Marshal()
	if err != nil {
		return nil, err
	}
	if created {
		err = tx.Create(keys.position, p.programID, posData)
	} else {
		err = tx.Store(keys.position, p.programID, posData)
	}
	if err != nil {
		return nil, fmt.Errorf("position: %w", err)
	}

	// funds
	if err := tx.Transfer(keys.user, p.globalKey, solIn); err != nil {
		return nil, err
	}
	if err := tx.TransferTokens(keys.mint, p.globalKey, keys.user, tokensOut); err != nil {
		return nil, err
	}

	migration, err := p.maybeGraduate(ctx, tx, keys.pool, keys.mint, keys.migration, pool)
	if err != nil {
		return nil, err
	}

	return &TradeResult{
		Side:      events.SideBuy,
		User:      keys.user,
		Mint:      keys.mint,
		Pool:      keys.pool,
		AmountIn:  solIn,
		AmountOut: tokensOut,
		GrossOut:  tokensOut,
		PoolAfter: *pool,
		Position:  position,
		Graduated: migration != nil,
		Migration: migration,
	}, nil
}

func (p *Processor) sell(tx *ledger.Txn, cfg *state.CurveConfiguration, pool *state.Pool, keys tradeAccounts, tokensIn, minSolOut uint64) (*TradeResult, error) {
	effectiveSol, err := pool.EffectiveSolReserve()
	if err != nil {
		return nil, err
	}
	gross, err := curve.SwapOutput(tokensIn, pool.ReserveOne, effectiveSol, cfg.Fees)
	if err != nil {
		return nil, err
	}
	if gross > pool.ReserveTwo {
		return nil, fmt.Errorf("%w: %d lamports out, %d real reserve", program.ErrInsufficientLiquidity, gross, pool.ReserveTwo)
	}

	// price is observed before the pool moves
	price := curve.SpotPrice(effectiveSol, pool.ReserveOne)
	position, err := p.loadPosition(tx, keys.position)
	if err != nil {
		return nil, err
	}
	taxed, untracked := p.isLoss(price, position)

	var tax uint64
	if taxed {
		if tax, err = curve.ApplyBps(gross, cfg.PaperhandTaxBps); err != nil {
			return nil, err
		}
	}
	net := gross - tax
	if net < minSolOut {
		return nil, fmt.Errorf("%w: %d lamports out, minimum %d", program.ErrSlippageExceeded, net, minSolOut)
	}
	if gross == 0 {
		return nil, fmt.Errorf("%w: %d tokens sell for nothing", program.ErrInvalidAmount, tokensIn)
	}

	tokenReserve, err := curve.CheckedAdd(pool.ReserveOne, tokensIn)
	if err != nil {
		return nil, err
	}

	// state
	pool.ReserveOne = tokenReserve
	pool.ReserveTwo -= gross
	if err := p.storePool(tx, keys.pool, pool); err != nil {
		return nil, err
	}

	// funds
	if err := tx.TransferTokens(keys.mint, keys.user, p.globalKey, tokensIn); err != nil {
		return nil, err
	}
	if err := tx.Transfer(p.globalKey, keys.user, net); err != nil {
		return nil, err
	}
	if err := tx.Transfer(p.globalKey, keys.treasury, tax); err != nil {
		return nil, err
	}

	return &TradeResult{
		Side:      events.SideSell,
		User:      keys.user,
		Mint:      keys.mint,
		Pool:      keys.pool,
		AmountIn:  tokensIn,
		AmountOut: net,
		GrossOut:  gross,
		Tax:       tax,
		Taxed:     taxed,
		Untracked: untracked,
		PoolAfter: *pool,
		Position:  position,
	}, nil
}

func (p *Processor) isLoss(price curve.Ratio, position *state.UserPosition) (taxed, untracked bool) {
	return SellTaxed(p.params.UntrackedSellPolicy, price, position)
}

// SellTaxed decides whether a sell at the pre-trade spot price is taxed: it is
// when price is strictly below the position's average cost. Wallets without a
// cost basis follow policy.
func SellTaxed(policy UntrackedSellPolicy, price curve.Ratio, position *state.UserPosition) (taxed, untracked bool) {
	if position == nil || !position.HasBasis() {
		return policy != UntrackedSellExempt, true
	}
	return price.Less(position.CostBasis()), false
}

func tradeEvents(tx *ledger.Txn, t *TradeResult, keys tradeAccounts, cfg *state.CurveConfiguration) []events.Event {
	var out []events.Event

	tokenAmount, solAmount := t.AmountOut, t.AmountIn
	if t.Side == events.SideSell {
		tokenAmount, solAmount = t.AmountIn, t.AmountOut
	}

	if t.Taxed {
		var basis uint64
		if t.Position != nil {
			basis, _ = t.Position.CostOf(t.AmountIn)
		}
		out = append(out, &events.PaperhandTaxAppliedEvent{
			BaseEvent:        events.NewBase(events.PaperhandTaxApplied, tx.Now(), tx.Slot()),
			User:             t.User,
			Pool:             t.Pool,
			Treasury:         cfg.Treasury,
			SolOutBeforeTax:  t.GrossOut,
			CostBasisForSale: basis,
			Tax:              t.Tax,
			SolToUser:        t.AmountOut,
			Untracked:        t.Untracked,
		})
	}

	gross := solAmount
	if t.Side == events.SideSell {
		gross = t.GrossOut
	}
	out = append(out, &events.TradeExecutedEvent{
		BaseEvent:         events.NewBase(events.TradeExecuted, tx.Now(), tx.Slot()),
		User:              t.User,
		Pool:              t.Pool,
		Mint:              t.Mint,
		Side:              t.Side,
		TokenAmount:       tokenAmount,
		SolAmount:         solAmount,
		GrossSol:          gross,
		Tax:               t.Tax,
		TokenReserve:      t.PoolAfter.ReserveOne,
		SolReserve:        t.PoolAfter.ReserveTwo,
		VirtualSolReserve: t.PoolAfter.VirtualSolReserve,
	})

	if t.Side == events.SideBuy && t.Position != nil {
		out = append(out, &events.PositionUpdatedEvent{
			BaseEvent:   events.NewBase(events.PositionUpdated, tx.Now(), tx.Slot()),
			User:        t.User,
			Pool:        t.Pool,
			TotalTokens: t.Position.TotalTokens,
			TotalSol:    t.Position.TotalSol,
		})
	}
	return out
}
