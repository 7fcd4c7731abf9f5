// =============================
// File: internal/program/instruction/accounts.go
// =============================
package instruction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/pda"
)

// Account positions in the trade instructions (swap, buy, sell).
const (
	TradeConfig = iota
	TradePool
	TradeGlobal
	TradeTreasury
	TradePosition
	TradeMint
	TradePoolVault
	TradeUserTokenAccount
	TradeUser
	TradeRent
	TradeSystemProgram
	TradeTokenProgram
	TradeAssociatedTokenProgram
	TradeMigration
)

// Account positions in launch.
const (
	LaunchConfig = iota
	LaunchGlobal
	LaunchMint
	LaunchPool
	LaunchPoolVault
	LaunchMetadata
	LaunchTreasury
	LaunchCreator
	LaunchRent
	LaunchSystemProgram
	LaunchTokenProgram
	LaunchAssociatedTokenProgram
	LaunchMetadataProgram
)

// Account positions in graduate.
const (
	GraduateConfig = iota
	GraduatePool
	GraduateGlobal
	GraduateMigration
	GraduateMint
	GraduatePoolVault
	GraduatePayer
	GraduateSystemProgram
)

// Builder lays out account lists and assembles instructions for one deployment.
type Builder struct {
	derive *pda.Deriver
}

// NewBuilder returns a Builder for the deployment behind d.
func NewBuilder(d *pda.Deriver) *Builder {
	return &Builder{derive: d}
}

// Deriver returns the PDA deriver the builder uses.
func (b *Builder) Deriver() *pda.Deriver { return b.derive }

func (b *Builder) instruction(accounts solana.AccountMetaSlice, args Args) (*solana.GenericInstruction, error) {
	data, err := Marshal(args)
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(b.derive.ProgramID(), accounts, data), nil
}

// InitializeAccounts: config, global, admin, rent, system program.
func (b *Builder) InitializeAccounts(admin solana.PublicKey) (solana.AccountMetaSlice, error) {
	cfg, err := b.derive.CurveConfig()
	if err != nil {
		return nil, err
	}
	global, err := b.derive.Global()
	if err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		solana.Meta(cfg.Key).WRITE(),
		solana.Meta(global.Key).WRITE(),
		solana.Meta(admin).WRITE().SIGNER(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SystemProgramID),
	}, nil
}

// Initialize builds the initialize instruction signed by admin.
func (b *Builder) Initialize(admin solana.PublicKey, args *Initialize) (*solana.GenericInstruction, error) {
	accounts, err := b.InitializeAccounts(admin)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, args)
}

// UpdateConfigurationAccounts: config, admin.
func (b *Builder) UpdateConfigurationAccounts(admin solana.PublicKey) (solana.AccountMetaSlice, error) {
	cfg, err := b.derive.CurveConfig()
	if err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		solana.Meta(cfg.Key).WRITE(),
		solana.Meta(admin).SIGNER(),
	}, nil
}

// UpdateConfiguration builds the admin-only configuration update.
func (b *Builder) UpdateConfiguration(admin solana.PublicKey, args *UpdateConfiguration) (*solana.GenericInstruction, error) {
	accounts, err := b.UpdateConfigurationAccounts(admin)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, args)
}

// LaunchAccounts lays out the launch accounts for a symbol minted by creator.
func (b *Builder) LaunchAccounts(creator, treasury solana.PublicKey, symbol string) (solana.AccountMetaSlice, error) {
	mint, err := b.derive.Mint(symbol, creator)
	if err != nil {
		return nil, err
	}
	accs, err := b.derive.ForMint(mint.Key)
	if err != nil {
		return nil, err
	}
	metadata, err := pda.Metadata(mint.Key)
	if err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		solana.Meta(accs.Config.Key),
		solana.Meta(accs.Global.Key).WRITE(),
		solana.Meta(mint.Key).WRITE(),
		solana.Meta(accs.Pool.Key).WRITE(),
		solana.Meta(accs.PoolVault).WRITE(),
		solana.Meta(metadata.Key).WRITE(),
		solana.Meta(treasury).WRITE(),
		solana.Meta(creator).WRITE().SIGNER(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(program.TokenMetadataProgramID),
	}, nil
}

// Launch builds the launch instruction. treasury must match the configuration.
func (b *Builder) Launch(creator, treasury solana.PublicKey, args *Launch) (*solana.GenericInstruction, error) {
	accounts, err := b.LaunchAccounts(creator, treasury, args.Symbol)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, args)
}

// TradeAccounts lays out the accounts shared by swap, buy and sell, in the
// order of the deployed program's Swap context. The migration record is
// appended last so a buy that crosses the threshold can graduate the pool.
func (b *Builder) TradeAccounts(user, mint, treasury solana.PublicKey) (solana.AccountMetaSlice, error) {
	accs, err := b.derive.ForMint(mint)
	if err != nil {
		return nil, err
	}
	position, err := b.derive.Position(accs.Pool.Key, user)
	if err != nil {
		return nil, err
	}
	userATA, err := pda.TokenAccount(user, mint)
	if err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		solana.Meta(accs.Config.Key).WRITE(),
		solana.Meta(accs.Pool.Key).WRITE(),
		solana.Meta(accs.Global.Key).WRITE(),
		solana.Meta(treasury).WRITE(),
		solana.Meta(position.Key).WRITE(),
		solana.Meta(mint).WRITE(),
		solana.Meta(accs.PoolVault).WRITE(),
		solana.Meta(userATA).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SysVarRentPubkey),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(accs.Migration.Key).WRITE(),
	}, nil
}

// Swap builds the combined swap instruction.
func (b *Builder) Swap(user, mint, treasury solana.PublicKey, args *Swap) (*solana.GenericInstruction, error) {
	accounts, err := b.TradeAccounts(user, mint, treasury)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, args)
}

// Buy builds a buy instruction.
func (b *Builder) Buy(user, mint, treasury solana.PublicKey, args *Buy) (*solana.GenericInstruction, error) {
	accounts, err := b.TradeAccounts(user, mint, treasury)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, args)
}

// Sell builds a sell instruction.
func (b *Builder) Sell(user, mint, treasury solana.PublicKey, args *Sell) (*solana.GenericInstruction, error) {
	accounts, err := b.TradeAccounts(user, mint, treasury)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, args)
}

// GraduateAccounts lays out the graduate crank accounts.
func (b *Builder) GraduateAccounts(payer, mint solana.PublicKey) (solana.AccountMetaSlice, error) {
	accs, err := b.derive.ForMint(mint)
	if err != nil {
		return nil, err
	}
	return solana.AccountMetaSlice{
		solana.Meta(accs.Config.Key),
		solana.Meta(accs.Pool.Key).WRITE(),
		solana.Meta(accs.Global.Key).WRITE(),
		solana.Meta(accs.Migration.Key).WRITE(),
		solana.Meta(mint),
		solana.Meta(accs.PoolVault).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
	}, nil
}

// Graduate builds the permissionless graduate crank.
func (b *Builder) Graduate(payer, mint solana.PublicKey) (*solana.GenericInstruction, error) {
	accounts, err := b.GraduateAccounts(payer, mint)
	if err != nil {
		return nil, err
	}
	return b.instruction(accounts, &Graduate{})
}

// Verify checks that got carries the expected keys in order and that every
// expected signer signed. Extra trailing accounts are ignored.
func Verify(expected, got solana.AccountMetaSlice) error {
	if len(got) < len(expected) {
		return fmt.Errorf("%w: got %d accounts, want %d", program.ErrInvalidAccounts, len(got), len(expected))
	}
	for i, want := range expected {
		have := got[i]
		if !have.PublicKey.Equals(want.PublicKey) {
			return fmt.Errorf("%w: account %d is %s, want %s", program.ErrInvalidAccounts, i, have.PublicKey, want.PublicKey)
		}
		if want.IsSigner && !have.IsSigner {
			return fmt.Errorf("%w: account %d (%s) must sign", program.ErrInvalidAccounts, i, want.PublicKey)
		}
		if want.IsWritable && !have.IsWritable {
			return fmt.Errorf("%w: account %d (%s) must be writable", program.ErrInvalidAccounts, i, want.PublicKey)
		}
	}
	return nil
}

// WritableKeys returns the keys of the writable metas.
func WritableKeys(metas solana.AccountMetaSlice) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(metas))
	for _, m := range metas {
		if m.IsWritable {
			out = append(out, m.PublicKey)
		}
	}
	return out
}
