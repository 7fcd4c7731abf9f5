// =============================
// File: internal/program/state/metadata.go
// =============================
package state

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

// TokenMetadata is the name/symbol/uri record written at launch.
type TokenMetadata struct {
	Mint            solana.PublicKey
	UpdateAuthority solana.PublicKey
	Creator         solana.PublicKey
	Name            string
	Symbol          string
	URI             string
	Decimals        uint8
}

// Validate enforces the Metaplex length limits. Name and symbol are required.
func (m *TokenMetadata) Validate() error {
	switch {
	case strings.TrimSpace(m.Name) == "":
		return fmt.Errorf("%w: empty name", program.ErrInvalidMetadata)
	case strings.TrimSpace(m.Symbol) == "":
		return fmt.Errorf("%w: empty symbol", program.ErrInvalidMetadata)
	case len(m.Name) > program.MaxNameLength:
		return fmt.Errorf("%w: name is %d bytes, max %d", program.ErrInvalidMetadata, len(m.Name), program.MaxNameLength)
	case len(m.Symbol) > program.MaxSymbolLength:
		return fmt.Errorf("%w: symbol is %d bytes, max %d", program.ErrInvalidMetadata, len(m.Symbol), program.MaxSymbolLength)
	case len(m.URI) > program.MaxURILength:
		return fmt.Errorf("%w: uri is %d bytes, max %d", program.ErrInvalidMetadata, len(m.URI), program.MaxURILength)
	}
	return nil
}

func (m *TokenMetadata) Marshal() ([]byte, error) {
	w := newWriter(TokenMetadataDiscriminator)
	w.key(m.Mint)
	w.key(m.UpdateAuthority)
	w.key(m.Creator)
	w.str(m.Name)
	w.str(m.Symbol)
	w.str(m.URI)
	w.u8(m.Decimals)
	return w.finish(0)
}

func DecodeTokenMetadata(data []byte) (*TokenMetadata, error) {
	r, err := newReader(data, TokenMetadataDiscriminator, 8+32*3)
	if err != nil {
		return nil, err
	}
	m := &TokenMetadata{
		Mint:            r.key(),
		UpdateAuthority: r.key(),
		Creator:         r.key(),
		Name:            r.str(),
		Symbol:          r.str(),
		URI:             r.str(),
		Decimals:        r.u8(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return m, nil
}
