// =============================
// File: internal/program/curve/swap.go
// =============================

// Package curve implements the constant-product exchange math shared by the
// bonding-curve phase and the post-graduation AMM. All arithmetic is integer
// with 128-bit intermediates; nothing here touches floating point.
package curve

import (
	"math/bits"

	"lukechampine.com/uint128"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

// ApplyFee returns amount * (10000 - feeBps) / 10000.
func ApplyFee(amount uint64, feeBps uint16) (uint64, error) {
	if feeBps > program.BasisPoints {
		return 0, program.ErrInvalidFee
	}
	keep := uint64(program.BasisPoints) - uint64(feeBps)
	return MulDiv(amount, keep, program.BasisPoints)
}

// ApplyBps returns floor(amount * bps / 10000).
func ApplyBps(amount uint64, bps uint16) (uint64, error) {
	if bps > program.BasisPoints {
		return 0, program.ErrInvalidTaxBps
	}
	return MulDiv(amount, uint64(bps), program.BasisPoints)
}

// SwapOutput computes the constant-product output for amountIn:
//
//	adjusted = amountIn * (10000 - feeBps) / 10000
//	out      = floor(reserveOut * adjusted / (reserveIn + adjusted))
//
// The result is always strictly below reserveOut and non-decreasing in amountIn.
func SwapOutput(amountIn, reserveIn, reserveOut uint64, feeBps uint16) (uint64, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return 0, program.ErrEmptyPool
	}

	adjusted, err := ApplyFee(amountIn, feeBps)
	if err != nil {
		return 0, err
	}

	numerator := uint128.From64(reserveOut).Mul64(adjusted)
	denominator := uint128.From64(reserveIn).Add64(adjusted)

	out := numerator.Div(denominator)
	if out.Hi != 0 {
		return 0, program.ErrArithmeticOverflow
	}
	return out.Lo, nil
}

// MulDiv returns floor(a * b / c) with a 128-bit intermediate product.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, program.ErrArithmeticOverflow
	}
	q := uint128.From64(a).Mul64(b).Div64(c)
	if q.Hi != 0 {
		return 0, program.ErrArithmeticOverflow
	}
	return q.Lo, nil
}

// CheckedAdd returns a + b or ErrArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, program.ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub returns a - b or ErrArithmeticOverflow on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, program.ErrArithmeticOverflow
	}
	return diff, nil
}
