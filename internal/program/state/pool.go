// =============================
// File: internal/program/state/pool.go
// =============================
package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
)

// Pool account sizes. Legacy pools predate virtual liquidity.
const (
	LegacyPoolSize = 8 + 32 + 32 + 8 + 8 + 8 + 1
	PoolSize       = 8 + 32 + 32 + 8 + 8 + 8 + 8 + 1
)

// Pool is the normalized in-memory form of both LiquidityPool layouts.
//
// ReserveOne is the token reserve and ReserveTwo the real SOL reserve.
// VirtualSolReserve only participates in pricing.
type Pool struct {
	TokenOne          solana.PublicKey
	TokenTwo          solana.PublicKey
	TotalSupply       uint64
	ReserveOne        uint64
	ReserveTwo        uint64
	VirtualSolReserve uint64
	Bump              uint8

	// Legacy is set when the pool was decoded from the 97-byte layout; such
	// pools are re-encoded in the same layout.
	Legacy bool
}

// TokenReserve returns the token side of the pool.
func (p *Pool) TokenReserve() uint64 { return p.ReserveOne }

// RealSolReserve returns the withdrawable SOL reserve.
func (p *Pool) RealSolReserve() uint64 { return p.ReserveTwo }

// EffectiveSolReserve returns real + virtual SOL, the reserve used for pricing.
func (p *Pool) EffectiveSolReserve() (uint64, error) {
	return curve.CheckedAdd(p.ReserveTwo, p.VirtualSolReserve)
}

// SpotPrice is effective SOL over token reserve.
func (p *Pool) SpotPrice() (curve.Ratio, error) {
	sol, err := p.EffectiveSolReserve()
	if err != nil {
		return curve.Ratio{}, err
	}
	return curve.SpotPrice(sol, p.ReserveOne), nil
}

// Tradable reports whether both sides hold liquidity.
func (p *Pool) Tradable() bool {
	return p.ReserveOne > 0 && p.ReserveTwo > 0
}

// Size returns the on-chain size for the pool's layout.
func (p *Pool) Size() int {
	if p.Legacy {
		return LegacyPoolSize
	}
	return PoolSize
}

// Marshal encodes the pool in the layout it was loaded from.
func (p *Pool) Marshal() ([]byte, error) {
	if p.Legacy && p.VirtualSolReserve != 0 {
		return nil, fmt.Errorf("legacy pool layout cannot hold virtual reserve %d", p.VirtualSolReserve)
	}
	w := newWriter(LiquidityPoolDiscriminator)
	w.key(p.TokenOne)
	w.key(p.TokenTwo)
	w.u64(p.TotalSupply)
	w.u64(p.ReserveOne)
	w.u64(p.ReserveTwo)
	if !p.Legacy {
		w.u64(p.VirtualSolReserve)
	}
	w.u8(p.Bump)
	return w.finish(p.Size())
}

// DecodePool parses either pool layout, chosen by data length.
func DecodePool(data []byte) (*Pool, error) {
	var legacy bool
	switch {
	case len(data) >= PoolSize:
	case len(data) >= LegacyPoolSize:
		legacy = true
	default:
		return nil, fmt.Errorf("%w: pool account is %d bytes", program.ErrInvalidAccountData, len(data))
	}

	r, err := newReader(data, LiquidityPoolDiscriminator, LegacyPoolSize)
	if err != nil {
		return nil, err
	}
	p := &Pool{Legacy: legacy}
	p.TokenOne = r.key()
	p.TokenTwo = r.key()
	p.TotalSupply = r.u64()
	p.ReserveOne = r.u64()
	p.ReserveTwo = r.u64()
	if !legacy {
		p.VirtualSolReserve = r.u64()
	}
	p.Bump = r.u8()
	if err := r.done(); err != nil {
		return nil, err
	}
	return p, nil
}
