// internal/quote/quote.go

// Package quote turns raw pool and position state into the decimal figures a
// trader reads: SOL amounts, token price, market cap, P&L and trade previews.
package quote

import (
	"github.com/shopspring/decimal"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

const solDecimals = 9

var hundred = decimal.NewFromInt(100)

// SOL converts lamports to SOL.
func SOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-solDecimals)
}

// Lamports converts a SOL amount to lamports, rounding down.
func Lamports(sol decimal.Decimal) uint64 {
	return sol.Shift(solDecimals).Floor().BigInt().Uint64()
}

// Tokens converts raw token units to whole tokens.
func Tokens(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}

// RawTokens converts whole tokens to raw units, rounding down.
func RawTokens(amount decimal.Decimal, decimals uint8) uint64 {
	return amount.Shift(int32(decimals)).Floor().BigInt().Uint64()
}

// RatioPrice converts a lamports-per-raw-unit ratio to SOL per whole token.
func RatioPrice(r curve.Ratio, decimals uint8) decimal.Decimal {
	if !r.Defined() {
		return decimal.Zero
	}
	num := decimal.NewFromUint64(r.Num).Shift(-solDecimals)
	den := decimal.NewFromUint64(r.Den).Shift(-int32(decimals))
	return num.DivRound(den, 18)
}

// Price is the spot price of the pool in SOL per whole token, virtual SOL included.
func Price(pool *state.Pool, decimals uint8) (decimal.Decimal, error) {
	r, err := pool.SpotPrice()
	if err != nil {
		return decimal.Zero, err
	}
	return RatioPrice(r, decimals), nil
}

// MarketCap is price times total supply, in SOL.
func MarketCap(pool *state.Pool, decimals uint8) (decimal.Decimal, error) {
	price, err := Price(pool, decimals)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(Tokens(pool.TotalSupply, decimals)), nil
}

// CostBasis is the position's average cost in SOL per whole token.
func CostBasis(pos *state.UserPosition, decimals uint8) decimal.Decimal {
	return RatioPrice(pos.CostBasis(), decimals)
}

// PnL is the unrealised profit of holding pos at the current pool price.
type PnL struct {
	Cost    decimal.Decimal // SOL spent
	Value   decimal.Decimal // SOL at spot price
	Profit  decimal.Decimal
	Percent decimal.Decimal
	InLoss  bool // a sell now would be taxed
}

// PositionPnL values pos against pool. Percent is zero for a position without basis.
func PositionPnL(pool *state.Pool, pos *state.UserPosition) (PnL, error) {
	price, err := pool.SpotPrice()
	if err != nil {
		return PnL{}, err
	}
	cost := SOL(pos.TotalSol)
	value := decimal.Zero
	if price.Defined() {
		value = decimal.NewFromUint64(pos.TotalTokens).
			Mul(decimal.NewFromUint64(price.Num)).
			Div(decimal.NewFromUint64(price.Den)).
			Shift(-solDecimals)
	}
	out := PnL{Cost: cost, Value: value, Profit: value.Sub(cost)}
	if pos.HasBasis() {
		out.Percent = out.Profit.Div(cost).Mul(hundred).Round(2)
		out.InLoss = price.Less(pos.CostBasis())
	}
	return out, nil
}

// BuyQuote previews a buy.
type BuyQuote struct {
	SolIn       uint64
	TokensOut   uint64
	PriceBefore curve.Ratio
	PriceAfter  curve.Ratio
	// ImpactPercent is how far the spot price moves, in percent.
	ImpactPercent decimal.Decimal
}

// PreviewBuy runs the curve for solIn without touching any state.
func PreviewBuy(cfg *state.CurveConfiguration, pool *state.Pool, solIn uint64) (BuyQuote, error) {
	eff, err := pool.EffectiveSolReserve()
	if err != nil {
		return BuyQuote{}, err
	}
	out, err := curve.SwapOutput(solIn, eff, pool.ReserveOne, cfg.Fees)
	if err != nil {
		return BuyQuote{}, err
	}
	effAfter, err := curve.CheckedAdd(eff, solIn)
	if err != nil {
		return BuyQuote{}, err
	}
	q := BuyQuote{
		SolIn:       solIn,
		TokensOut:   out,
		PriceBefore: curve.SpotPrice(eff, pool.ReserveOne),
		PriceAfter:  curve.SpotPrice(effAfter, pool.ReserveOne-out),
	}
	q.ImpactPercent = impact(q.PriceBefore, q.PriceAfter)
	return q, nil
}

// SellQuote previews a sell including the paper-hand tax.
type SellQuote struct {
	TokensIn  uint64
	Gross     uint64
	Tax       uint64
	Net       uint64
	Taxed     bool
	Untracked bool
	// Exceeds is set when the real SOL reserve cannot pay Gross.
	Exceeds bool
}

// PreviewSell mirrors the sell path of the processor. pos may be nil.
func PreviewSell(cfg *state.CurveConfiguration, pool *state.Pool, pos *state.UserPosition, policy processor.UntrackedSellPolicy, tokensIn uint64) (SellQuote, error) {
	eff, err := pool.EffectiveSolReserve()
	if err != nil {
		return SellQuote{}, err
	}
	gross, err := curve.SwapOutput(tokensIn, pool.ReserveOne, eff, cfg.Fees)
	if err != nil {
		return SellQuote{}, err
	}
	q := SellQuote{TokensIn: tokensIn, Gross: gross, Exceeds: gross > pool.ReserveTwo}
	q.Taxed, q.Untracked = processor.SellTaxed(policy, curve.SpotPrice(eff, pool.ReserveOne), pos)
	if q.Taxed {
		if q.Tax, err = curve.ApplyBps(gross, cfg.PaperhandTaxBps); err != nil {
			return SellQuote{}, err
		}
	}
	q.Net = gross - q.Tax
	return q, nil
}

// GraduationProgress is the real SOL reserve as a percentage of threshold, capped at 100.
func GraduationProgress(pool *state.Pool, threshold uint64) decimal.Decimal {
	if threshold == 0 {
		return hundred
	}
	p := decimal.NewFromUint64(pool.ReserveTwo).Div(decimal.NewFromUint64(threshold)).Mul(hundred)
	return decimal.Min(p, hundred).Round(2)
}

// Bps renders basis points as a percentage.
func Bps(bps uint16) decimal.Decimal {
	return decimal.NewFromInt(int64(bps)).Div(decimal.NewFromInt(program.BasisPoints)).Mul(hundred)
}

func impact(before, after curve.Ratio) decimal.Decimal {
	b := RatioPrice(before, 0)
	if b.IsZero() {
		return decimal.Zero
	}
	return RatioPrice(after, 0).Sub(b).Div(b).Mul(hundred).Round(4)
}
