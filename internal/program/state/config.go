// =============================
// File: internal/program/state/config.go
// =============================
package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

// CurveConfigurationSize is discriminator + fees + treasury + tax + admin +
// default virtual SOL + 2 bytes of padding.
const CurveConfigurationSize = 8 + 2 + 32 + 2 + 32 + 8 + 2

// CurveConfiguration is the global singleton holding fee and tax parameters.
type CurveConfiguration struct {
	Fees              uint16
	Treasury          solana.PublicKey
	PaperhandTaxBps   uint16
	Admin             solana.PublicKey
	DefaultVirtualSol uint64
}

// NewCurveConfiguration returns a configuration with the default virtual SOL seed.
func NewCurveConfiguration(fees uint16, treasury solana.PublicKey, taxBps uint16, admin solana.PublicKey) *CurveConfiguration {
	return &CurveConfiguration{
		Fees:              fees,
		Treasury:          treasury,
		PaperhandTaxBps:   taxBps,
		Admin:             admin,
		DefaultVirtualSol: program.DefaultVirtualSol,
	}
}

// Validate checks that fee and tax are expressible in basis points.
func (c *CurveConfiguration) Validate() error {
	if c.Fees > program.BasisPoints {
		return fmt.Errorf("%w: fees=%d", program.ErrInvalidFee, c.Fees)
	}
	if c.PaperhandTaxBps > program.BasisPoints {
		return fmt.Errorf("%w: paperhand_tax_bps=%d", program.ErrInvalidTaxBps, c.PaperhandTaxBps)
	}
	return nil
}

// Marshal encodes the account including discriminator and padding.
func (c *CurveConfiguration) Marshal() ([]byte, error) {
	w := newWriter(CurveConfigurationDiscriminator)
	w.u16(c.Fees)
	w.key(c.Treasury)
	w.u16(c.PaperhandTaxBps)
	w.key(c.Admin)
	w.u64(c.DefaultVirtualSol)
	return w.finish(CurveConfigurationSize)
}

// DecodeCurveConfiguration parses raw account data.
func DecodeCurveConfiguration(data []byte) (*CurveConfiguration, error) {
	r, err := newReader(data, CurveConfigurationDiscriminator, CurveConfigurationSize-2)
	if err != nil {
		return nil, err
	}
	c := &CurveConfiguration{
		Fees:              r.u16(),
		Treasury:          r.key(),
		PaperhandTaxBps:   r.u16(),
		Admin:             r.key(),
		DefaultVirtualSol: r.u64(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return c, nil
}
