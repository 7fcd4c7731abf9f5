// =============================
// File: internal/program/program.go
// =============================

// Package program holds the identifiers, seeds and error taxonomy shared by the
// PHBT launchpad engine and its client.
package program

import "github.com/gagliardetto/solana-go"

// DefaultProgramID is the devnet deployment with virtual liquidity.
var DefaultProgramID = solana.MustPublicKeyFromBase58("DorUpzxXyF9VMGxdaVmBtCtg2SDnnm4pY3Bf9FFFKK6a")

// TokenMetadataProgramID is the Metaplex token metadata program.
var TokenMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// PDA seeds. These strings are part of the wire contract with deployed clients.
const (
	SeedMint              = "mint"
	SeedPool              = "liquidity_pool"
	SeedGlobal            = "global"
	SeedCurveConfig       = "CurveConfiguration"
	SeedPosition          = "position"
	SeedLiquidityProvider = "LiqudityProvider"
	SeedTreasury          = "treasury"
	SeedTreasuryVault     = "treasury_vault"
	SeedMigration         = "migration"
	SeedMetadata          = "metadata"
)

const (
	// BasisPoints is the denominator for fee and tax rates.
	BasisPoints = 10_000

	// DefaultPaperhandTaxBps is 50%.
	DefaultPaperhandTaxBps = 5_000

	// DefaultVirtualSol is the virtual SOL seeded into new pools (50 SOL).
	DefaultVirtualSol uint64 = 50_000_000_000

	// DefaultGraduationThreshold is the real SOL reserve at which a pool leaves the curve.
	DefaultGraduationThreshold uint64 = 85_000_000_000

	// DefaultLaunchFee is charged to the creator and routed to the treasury.
	DefaultLaunchFee uint64 = 20_000_000

	LamportsPerSOL uint64 = 1_000_000_000
)

// Swap styles accepted by the swap instruction.
const (
	StyleBuy  uint64 = 2
	StyleSell uint64 = 1
)

// Metaplex metadata limits enforced at launch.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)
