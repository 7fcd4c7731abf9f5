// =============================
// File: internal/program/curve/price.go
// =============================
package curve

import "lukechampine.com/uint128"

// Ratio is an exact price expressed as Num/Den (lamports per atomic token).
type Ratio struct {
	Num uint64
	Den uint64
}

// Defined reports whether the ratio has a non-zero denominator.
func (r Ratio) Defined() bool {
	return r.Den != 0
}

// Less reports r < o by cross-multiplication. Both ratios must be defined.
func (r Ratio) Less(o Ratio) bool {
	left := uint128.From64(r.Num).Mul64(o.Den)
	right := uint128.From64(o.Num).Mul64(r.Den)
	return left.Cmp(right) < 0
}

// Cmp returns -1, 0 or +1 comparing r with o.
func (r Ratio) Cmp(o Ratio) int {
	left := uint128.From64(r.Num).Mul64(o.Den)
	right := uint128.From64(o.Num).Mul64(r.Den)
	return left.Cmp(right)
}

// SpotPrice is the marginal price solReserve / tokenReserve.
func SpotPrice(solReserve, tokenReserve uint64) Ratio {
	return Ratio{Num: solReserve, Den: tokenReserve}
}
