// =============================
// File: internal/program/state/codec.go
// =============================

// Package state defines the on-chain account layouts of the launchpad program
// and their Anchor/Borsh encoding.
package state

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

// Account discriminators.
var (
	CurveConfigurationDiscriminator = program.AccountDiscriminator("CurveConfiguration")
	LiquidityPoolDiscriminator      = program.AccountDiscriminator("LiquidityPool")
	UserPositionDiscriminator       = program.AccountDiscriminator("UserPosition")
	MigrationRecordDiscriminator    = program.AccountDiscriminator("MigrationRecord")
	TokenMetadataDiscriminator      = program.AccountDiscriminator("TokenMetadata")
)

// writer accumulates Borsh fields and keeps the first error.
type writer struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func newWriter(disc program.Discriminator) *writer {
	w := &writer{}
	w.enc = bin.NewBorshEncoder(&w.buf)
	w.bytes(disc[:])
	return w
}

func (w *writer) bytes(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *writer) key(k solana.PublicKey) { w.bytes(k[:]) }

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *writer) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.WriteUint16(v, binary.LittleEndian)
	}
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *writer) str(s string) {
	if w.err == nil {
		w.err = w.enc.WriteString(s)
	}
}

// finish pads the account up to size (0 means no padding).
func (w *writer) finish(size int) ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	if size > 0 {
		if w.buf.Len() > size {
			return nil, fmt.Errorf("encoded %d bytes into a %d byte account", w.buf.Len(), size)
		}
		w.buf.Write(make([]byte, size-w.buf.Len()))
	}
	return w.buf.Bytes(), nil
}

// reader mirrors writer for decoding.
type reader struct {
	dec *bin.Decoder
	err error
}

func newReader(data []byte, disc program.Discriminator, minSize int) (*reader, error) {
	if len(data) < minSize {
		return nil, fmt.Errorf("%w: %d bytes, want at least %d", program.ErrInvalidAccountData, len(data), minSize)
	}
	if !bytes.Equal(data[:program.DiscriminatorSize], disc[:]) {
		return nil, fmt.Errorf("%w: discriminator mismatch", program.ErrInvalidAccountData)
	}
	return &reader{dec: bin.NewBorshDecoder(data[program.DiscriminatorSize:])}, nil
}

func (r *reader) key() solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.err = err
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint16(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, err := r.dec.ReadString()
	r.err = err
	return v
}

func (r *reader) done() error {
	if r.err != nil {
		return fmt.Errorf("%w: %v", program.ErrInvalidAccountData, r.err)
	}
	return nil
}
