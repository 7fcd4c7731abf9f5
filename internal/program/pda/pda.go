// =============================
// File: internal/program/pda/pda.go
// =============================

// Package pda derives the program-derived addresses used by the launchpad.
package pda

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
)

// Address is a derived key together with its bump seed.
type Address struct {
	Key  solana.PublicKey
	Bump uint8
}

// Deriver derives addresses for one program deployment.
type Deriver struct {
	programID solana.PublicKey
}

// New returns a Deriver for programID.
func New(programID solana.PublicKey) *Deriver {
	return &Deriver{programID: programID}
}

// ProgramID returns the program the addresses belong to.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

func (d *Deriver) find(name string, seeds ...[]byte) (Address, error) {
	key, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return Address{}, fmt.Errorf("failed to derive %s address: %w", name, err)
	}
	return Address{Key: key, Bump: bump}, nil
}

// Mint derives ["mint", symbol, creator].
func (d *Deriver) Mint(symbol string, creator solana.PublicKey) (Address, error) {
	return d.find("mint", []byte(program.SeedMint), []byte(symbol), creator.Bytes())
}

// Pool derives ["liquidity_pool", mint].
func (d *Deriver) Pool(mint solana.PublicKey) (Address, error) {
	return d.find("pool", []byte(program.SeedPool), mint.Bytes())
}

// Global derives ["global"], the SOL vault and token authority.
func (d *Deriver) Global() (Address, error) {
	return d.find("global", []byte(program.SeedGlobal))
}

// CurveConfig derives ["CurveConfiguration"].
func (d *Deriver) CurveConfig() (Address, error) {
	return d.find("curve configuration", []byte(program.SeedCurveConfig))
}

// Position derives ["position", pool, user].
func (d *Deriver) Position(pool, user solana.PublicKey) (Address, error) {
	return d.find("position", []byte(program.SeedPosition), pool.Bytes(), user.Bytes())
}

// LiquidityProvider derives ["LiqudityProvider", pool, user]. The misspelling
// is part of the deployed seed.
func (d *Deriver) LiquidityProvider(pool, user solana.PublicKey) (Address, error) {
	return d.find("liquidity provider", []byte(program.SeedLiquidityProvider), pool.Bytes(), user.Bytes())
}

// Treasury derives ["treasury"].
func (d *Deriver) Treasury() (Address, error) {
	return d.find("treasury", []byte(program.SeedTreasury))
}

// TreasuryVault derives ["treasury_vault"].
func (d *Deriver) TreasuryVault() (Address, error) {
	return d.find("treasury vault", []byte(program.SeedTreasuryVault))
}

// Migration derives ["migration", pool].
func (d *Deriver) Migration(pool solana.PublicKey) (Address, error) {
	return d.find("migration", []byte(program.SeedMigration), pool.Bytes())
}

// Metadata derives the Metaplex metadata address for mint. It is owned by the
// token metadata program, not by this program.
func Metadata(mint solana.PublicKey) (Address, error) {
	seeds := [][]byte{
		[]byte(program.SeedMetadata),
		program.TokenMetadataProgramID.Bytes(),
		mint.Bytes(),
	}
	key, bump, err := solana.FindProgramAddress(seeds, program.TokenMetadataProgramID)
	if err != nil {
		return Address{}, fmt.Errorf("failed to derive metadata address: %w", err)
	}
	return Address{Key: key, Bump: bump}, nil
}

// TokenAccount returns the associated token account of owner for mint.
func TokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive token account: %w", err)
	}
	return ata, nil
}

// PoolAccounts bundles every address a trade against one mint touches.
type PoolAccounts struct {
	Config    Address
	Global    Address
	Pool      Address
	Migration Address
	PoolVault solana.PublicKey
}

// ForMint derives the shared accounts for trading mint.
func (d *Deriver) ForMint(mint solana.PublicKey) (*PoolAccounts, error) {
	cfg, err := d.CurveConfig()
	if err != nil {
		return nil, err
	}
	global, err := d.Global()
	if err != nil {
		return nil, err
	}
	pool, err := d.Pool(mint)
	if err != nil {
		return nil, err
	}
	migration, err := d.Migration(pool.Key)
	if err != nil {
		return nil, err
	}
	vault, err := TokenAccount(global.Key, mint)
	if err != nil {
		return nil, err
	}
	return &PoolAccounts{Config: cfg, Global: global, Pool: pool, Migration: migration, PoolVault: vault}, nil
}
