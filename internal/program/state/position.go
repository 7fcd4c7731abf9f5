// =============================
// File: internal/program/state/position.go
// =============================
package state

import (
	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
)

// UserPositionSize is discriminator + pool + owner + two u64 counters + bump.
const UserPositionSize = 8 + 32 + 32 + 8 + 8 + 1

// UserPosition is a wallet's purchase-only cost basis in one pool.
type UserPosition struct {
	Pool        solana.PublicKey
	Owner       solana.PublicKey
	TotalTokens uint64
	TotalSol    uint64
	Bump        uint8
}

// NewUserPosition returns an empty position.
func NewUserPosition(pool, owner solana.PublicKey, bump uint8) *UserPosition {
	return &UserPosition{Pool: pool, Owner: owner, Bump: bump}
}

// RecordBuy adds a purchase to the position. On overflow the position is unchanged.
func (u *UserPosition) RecordBuy(tokens, sol uint64) error {
	totalTokens, err := curve.CheckedAdd(u.TotalTokens, tokens)
	if err != nil {
		return err
	}
	totalSol, err := curve.CheckedAdd(u.TotalSol, sol)
	if err != nil {
		return err
	}
	u.TotalTokens = totalTokens
	u.TotalSol = totalSol
	return nil
}

// HasBasis reports whether any tokens were bought through the curve.
func (u *UserPosition) HasBasis() bool {
	return u.TotalTokens > 0
}

// CostBasis is the weighted average purchase price, TotalSol / TotalTokens.
func (u *UserPosition) CostBasis() curve.Ratio {
	return curve.Ratio{Num: u.TotalSol, Den: u.TotalTokens}
}

// CostOf returns the SOL attributed to amount tokens at the average cost.
func (u *UserPosition) CostOf(amount uint64) (uint64, error) {
	if u.TotalTokens == 0 {
		return 0, nil
	}
	return curve.MulDiv(u.TotalSol, amount, u.TotalTokens)
}

func (u *UserPosition) Marshal() ([]byte, error) {
	w := newWriter(UserPositionDiscriminator)
	w.key(u.Pool)
	w.key(u.Owner)
	w.u64(u.TotalTokens)
	w.u64(u.TotalSol)
	w.u8(u.Bump)
	return w.finish(UserPositionSize)
}

func DecodeUserPosition(data []byte) (*UserPosition, error) {
	r, err := newReader(data, UserPositionDiscriminator, UserPositionSize)
	if err != nil {
		return nil, err
	}
	u := &UserPosition{
		Pool:        r.key(),
		Owner:       r.key(),
		TotalTokens: r.u64(),
		TotalSol:    r.u64(),
		Bump:        r.u8(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return u, nil
}
