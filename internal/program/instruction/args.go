// =============================
// File: internal/program/instruction/args.go
// =============================

// Package instruction encodes and decodes the launchpad's Anchor instructions
// and lays out their account lists.
package instruction

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

// Instruction names as they appear in the program IDL.
const (
	NameInitialize          = "initialize"
	NameUpdateConfiguration = "update_configuration"
	NameLaunch              = "launch"
	NameSwap                = "swap"
	NameBuy                 = "buy"
	NameSell                = "sell"
	NameGraduate            = "graduate"
)

var discriminators = map[program.Discriminator]string{}

func init() {
	for _, name := range []string{
		NameInitialize, NameUpdateConfiguration, NameLaunch,
		NameSwap, NameBuy, NameSell, NameGraduate,
	} {
		discriminators[program.InstructionDiscriminator(name)] = name
	}
}

// Args is the decoded argument set of one instruction.
type Args interface {
	Name() string
	encode(enc *bin.Encoder) error
	decode(dec *bin.Decoder) error
}

// Marshal returns discriminator followed by the Borsh encoded arguments.
func Marshal(a Args) ([]byte, error) {
	buf := new(bytes.Buffer)
	disc := program.InstructionDiscriminator(a.Name())
	buf.Write(disc[:])
	if err := a.encode(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("failed to encode %s args: %w", a.Name(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses raw instruction data.
func Decode(data []byte) (Args, error) {
	if len(data) < program.DiscriminatorSize {
		return nil, fmt.Errorf("%w: %d bytes", program.ErrInvalidInstruction, len(data))
	}
	var disc program.Discriminator
	copy(disc[:], data)

	var a Args
	switch discriminators[disc] {
	case NameInitialize:
		a = &Initialize{}
	case NameUpdateConfiguration:
		a = &UpdateConfiguration{}
	case NameLaunch:
		a = &Launch{}
	case NameSwap:
		a = &Swap{}
	case NameBuy:
		a = &Buy{}
	case NameSell:
		a = &Sell{}
	case NameGraduate:
		a = &Graduate{}
	default:
		return nil, fmt.Errorf("%w: unknown discriminator %x", program.ErrInvalidInstruction, disc[:])
	}

	if err := a.decode(bin.NewBorshDecoder(data[program.DiscriminatorSize:])); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", program.ErrInvalidInstruction, a.Name(), err)
	}
	return a, nil
}

// Initialize creates the curve configuration.
type Initialize struct {
	Fees            uint16
	PaperhandTaxBps uint16
}

func (*Initialize) Name() string { return NameInitialize }

func (a *Initialize) encode(enc *bin.Encoder) error {
	if err := enc.WriteUint16(a.Fees, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint16(a.PaperhandTaxBps, binary.LittleEndian)
}

func (a *Initialize) decode(dec *bin.Decoder) (err error) {
	if a.Fees, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return err
	}
	a.PaperhandTaxBps, err = dec.ReadUint16(binary.LittleEndian)
	return err
}

// UpdateConfiguration changes any subset of the admin-controlled fields.
type UpdateConfiguration struct {
	Fees            *uint16
	Treasury        *solana.PublicKey
	PaperhandTaxBps *uint16
}

func (*UpdateConfiguration) Name() string { return NameUpdateConfiguration }

func (a *UpdateConfiguration) encode(enc *bin.Encoder) error {
	if err := writeOptionU16(enc, a.Fees); err != nil {
		return err
	}
	if err := enc.WriteBool(a.Treasury != nil); err != nil {
		return err
	}
	if a.Treasury != nil {
		if err := enc.WriteBytes(a.Treasury[:], false); err != nil {
			return err
		}
	}
	return writeOptionU16(enc, a.PaperhandTaxBps)
}

func (a *UpdateConfiguration) decode(dec *bin.Decoder) (err error) {
	if a.Fees, err = readOptionU16(dec); err != nil {
		return err
	}
	some, err := dec.ReadBool()
	if err != nil {
		return err
	}
	if some {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		key := solana.PublicKeyFromBytes(raw)
		a.Treasury = &key
	}
	a.PaperhandTaxBps, err = readOptionU16(dec)
	return err
}

func writeOptionU16(enc *bin.Encoder, v *uint16) error {
	if err := enc.WriteBool(v != nil); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return enc.WriteUint16(*v, binary.LittleEndian)
}

func readOptionU16(dec *bin.Decoder) (*uint16, error) {
	some, err := dec.ReadBool()
	if err != nil || !some {
		return nil, err
	}
	v, err := dec.ReadUint16(binary.LittleEndian)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Launch creates a token, its pool and its metadata.
type Launch struct {
	TokenName         string
	Symbol            string
	URI               string
	Decimals          uint8
	InitialSupply     uint64
	InitialSolReserve uint64
}

func (*Launch) Name() string { return NameLaunch }

func (a *Launch) encode(enc *bin.Encoder) error {
	for _, s := range []string{a.TokenName, a.Symbol, a.URI} {
		if err := enc.WriteString(s); err != nil {
			return err
		}
	}
	if err := enc.WriteUint8(a.Decimals); err != nil {
		return err
	}
	if err := enc.WriteUint64(a.InitialSupply, binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteUint64(a.InitialSolReserve, binary.LittleEndian)
}

func (a *Launch) decode(dec *bin.Decoder) (err error) {
	if a.TokenName, err = dec.ReadString(); err != nil {
		return err
	}
	if a.Symbol, err = dec.ReadString(); err != nil {
		return err
	}
	if a.URI, err = dec.ReadString(); err != nil {
		return err
	}
	if a.Decimals, err = dec.ReadUint8(); err != nil {
		return err
	}
	if a.InitialSupply, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	a.InitialSolReserve, err = dec.ReadUint64(binary.LittleEndian)
	return err
}

// Swap is the combined trade entry point. Style 1 sells, anything else buys.
type Swap struct {
	Amount       uint64
	Style        uint64
	MinAmountOut uint64
}

func (*Swap) Name() string { return NameSwap }

// IsSell reports whether the swap sells tokens for SOL.
func (a *Swap) IsSell() bool { return a.Style == program.StyleSell }

func (a *Swap) encode(enc *bin.Encoder) error {
	return writeU64s(enc, a.Amount, a.Style, a.MinAmountOut)
}

func (a *Swap) decode(dec *bin.Decoder) error {
	return readU64s(dec, &a.Amount, &a.Style, &a.MinAmountOut)
}

// Buy spends Amount lamports on tokens.
type Buy struct {
	Amount       uint64
	MinAmountOut uint64
}

func (*Buy) Name() string { return NameBuy }

func (a *Buy) encode(enc *bin.Encoder) error {
	return writeU64s(enc, a.Amount, a.MinAmountOut)
}

func (a *Buy) decode(dec *bin.Decoder) error {
	return readU64s(dec, &a.Amount, &a.MinAmountOut)
}

// Sell sells Amount tokens for SOL.
type Sell struct {
	Amount       uint64
	MinAmountOut uint64
}

func (*Sell) Name() string { return NameSell }

func (a *Sell) encode(enc *bin.Encoder) error {
	return writeU64s(enc, a.Amount, a.MinAmountOut)
}

func (a *Sell) decode(dec *bin.Decoder) error {
	return readU64s(dec, &a.Amount, &a.MinAmountOut)
}

// Graduate runs the graduation check for one pool.
type Graduate struct{}

func (*Graduate) Name() string              { return NameGraduate }
func (*Graduate) encode(*bin.Encoder) error { return nil }
func (*Graduate) decode(*bin.Decoder) error { return nil }

func writeU64s(enc *bin.Encoder, vs ...uint64) error {
	for _, v := range vs {
		if err := enc.WriteUint64(v, binary.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

func readU64s(dec *bin.Decoder, ps ...*uint64) (err error) {
	for _, p := range ps {
		if *p, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}
