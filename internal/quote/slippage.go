// internal/quote/slippage.go
package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// SlippageType selects how the minimum output of a trade is derived.
type SlippageType string

const (
	// SlippageFixed uses Value as the exact minimum amount out.
	SlippageFixed SlippageType = "fixed"
	// SlippagePercent allows Value percent below the quoted output.
	SlippagePercent SlippageType = "percent"
	// SlippageNone accepts any output.
	SlippageNone SlippageType = "none"
)

// SlippageConfig configures the minimum amount out of a trade.
type SlippageConfig struct {
	Type  SlippageType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// ParseSlippage reads "none", "fixed:<raw amount>" or a percentage such as "1.5" or "1.5%".
func ParseSlippage(s string) (SlippageConfig, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == string(SlippageNone):
		return SlippageConfig{Type: SlippageNone}, nil
	case strings.HasPrefix(s, "fixed:"):
		v, err := decimal.NewFromString(strings.TrimPrefix(s, "fixed:"))
		if err != nil || v.IsNegative() {
			return SlippageConfig{}, fmt.Errorf("invalid fixed slippage %q", s)
		}
		return SlippageConfig{Type: SlippageFixed, Value: v.Floor()}, nil
	default:
		v, err := decimal.NewFromString(strings.TrimSuffix(s, "%"))
		if err != nil || v.IsNegative() || v.GreaterThan(hundred) {
			return SlippageConfig{}, fmt.Errorf("invalid slippage percent %q", s)
		}
		return SlippageConfig{Type: SlippagePercent, Value: v}, nil
	}
}

// MinAmountOut derives the minimum amount out for an expected output.
func MinAmountOut(expected uint64, cfg SlippageConfig) uint64 {
	switch cfg.Type {
	case SlippageFixed:
		return cfg.Value.BigInt().Uint64()
	case SlippagePercent:
		keep := hundred.Sub(cfg.Value).Div(hundred)
		return decimal.NewFromUint64(expected).Mul(keep).Floor().BigInt().Uint64()
	default:
		return 0
	}
}
