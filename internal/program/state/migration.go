// =============================
// File: internal/program/state/migration.go
// =============================
package state

import "github.com/gagliardetto/solana-go"

// MigrationRecordSize is discriminator + pool + amm + four u64 fields + bump.
const MigrationRecordSize = 8 + 32 + 32 + 8 + 8 + 8 + 8 + 1

// MigrationRecord marks a pool as graduated. Its existence is the flag; the
// fields record what was handed to the AMM.
type MigrationRecord struct {
	Pool          solana.PublicKey
	AmmPool       solana.PublicKey
	TokenAmount   uint64
	SolAmount     uint64
	VirtualSolCut uint64
	Slot          uint64
	Bump          uint8
}

func (m *MigrationRecord) Marshal() ([]byte, error) {
	w := newWriter(MigrationRecordDiscriminator)
	w.key(m.Pool)
	w.key(m.AmmPool)
	w.u64(m.TokenAmount)
	w.u64(m.SolAmount)
	w.u64(m.VirtualSolCut)
	w.u64(m.Slot)
	w.u8(m.Bump)
	return w.finish(MigrationRecordSize)
}

func DecodeMigrationRecord(data []byte) (*MigrationRecord, error) {
	r, err := newReader(data, MigrationRecordDiscriminator, MigrationRecordSize)
	if err != nil {
		return nil, err
	}
	m := &MigrationRecord{
		Pool:          r.key(),
		AmmPool:       r.key(),
		TokenAmount:   r.u64(),
		SolAmount:     r.u64(),
		VirtualSolCut: r.u64(),
		Slot:          r.u64(),
		Bump:          r.u8(),
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return m, nil
}
