// =============================
// File: internal/program/processor/launch.go
// =============================
package processor

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/program/ledger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/pda"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

// Launch creates a token, mints its supply into the pool vault and opens the
// bonding curve.
func (p *Processor) Launch(ctx context.Context, creator solana.PublicKey, args *instruction.Launch) (*Result, error) {
	treasury, err := p.Treasury()
	if err != nil {
		return nil, err
	}
	ix, err := p.builder.Launch(creator, treasury, args)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

func (p *Processor) processLaunch(ctx context.Context, accounts solana.AccountMetaSlice, a *instruction.Launch) (*Result, error) {
	md := &state.TokenMetadata{
		Name:     a.TokenName,
		Symbol:   a.Symbol,
		URI:      a.URI,
		Decimals: a.Decimals,
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}
	if a.InitialSupply == 0 || a.InitialSolReserve == 0 {
		return nil, fmt.Errorf("%w: initial supply and SOL reserve must both be positive", program.ErrInvalidAmount)
	}

	if err := requireAccounts(accounts, instruction.LaunchMetadataProgram+1); err != nil {
		return nil, err
	}
	creator := accounts[instruction.LaunchCreator].PublicKey
	treasury := accounts[instruction.LaunchTreasury].PublicKey
	expected, err := p.builder.LaunchAccounts(creator, treasury, a.Symbol)
	if err != nil {
		return nil, err
	}
	if err := instruction.Verify(expected, accounts); err != nil {
		return nil, err
	}

	mint := expected[instruction.LaunchMint].PublicKey
	poolKey := expected[instruction.LaunchPool].PublicKey
	metadataKey := expected[instruction.LaunchMetadata].PublicKey
	poolAddr, err := p.derive.Pool(mint)
	if err != nil {
		return nil, err
	}

	md.Mint = mint
	md.UpdateAuthority = p.globalKey
	md.Creator = creator

	res := &Result{Mint: mint, PoolKey: poolKey}
	err = p.ledger.Execute(ctx, p.lockSet(expected), func(tx *ledger.Txn) error {
		cfg, err := p.loadConfig(tx)
		if err != nil {
			return err
		}
		if !cfg.Treasury.Equals(treasury) {
			return fmt.Errorf("%w: treasury %s does not match configuration", program.ErrInvalidAccounts, treasury)
		}
		if tx.Initialized(poolKey) {
			return fmt.Errorf("pool %s: %w", poolKey, program.ErrAccountAlreadyInitialized)
		}

		pool := &state.Pool{
			TokenOne:          mint,
			TokenTwo:          solana.WrappedSol,
			TotalSupply:       a.InitialSupply,
			ReserveOne:        a.InitialSupply,
			ReserveTwo:        a.InitialSolReserve,
			VirtualSolReserve: cfg.DefaultVirtualSol,
			Bump:              poolAddr.Bump,
		}
		poolData, err := pool.Marshal()
		if err != nil {
			return err
		}
		mdData, err := md.Marshal()
		if err != nil {
			return err
		}

		// state
		if err := tx.CreateMint(mint, p.globalKey, a.Decimals); err != nil {
			return err
		}
		if err := tx.Create(poolKey, p.programID, poolData); err != nil {
			return err
		}
		if err := tx.Create(metadataKey, program.TokenMetadataProgramID, mdData); err != nil {
			return fmt.Errorf("metadata: %w", err)
		}

		// funds
		if err := tx.MintTo(mint, p.globalKey, p.globalKey, a.InitialSupply); err != nil {
			return err
		}
		if err := tx.Transfer(creator, p.globalKey, a.InitialSolReserve); err != nil {
			return fmt.Errorf("initial SOL reserve: %w", err)
		}
		if err := tx.Transfer(creator, treasury, p.params.LaunchFee); err != nil {
			return fmt.Errorf("launch fee: %w", err)
		}

		res.Pool = pool
		res.Slot = tx.Slot()
		res.Events = append(res.Events, &events.PoolLaunchedEvent{
			BaseEvent:         events.NewBase(events.PoolLaunched, tx.Now(), tx.Slot()),
			Creator:           creator,
			Mint:              mint,
			Pool:              poolKey,
			Name:              md.Name,
			Symbol:            md.Symbol,
			URI:               md.URI,
			Decimals:          md.Decimals,
			InitialSupply:     a.InitialSupply,
			InitialSolReserve: a.InitialSolReserve,
			VirtualSolReserve: pool.VirtualSolReserve,
			LaunchFee:         p.params.LaunchFee,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Token launched",
		zap.String("symbol", md.Symbol),
		zap.String("mint", mint.String()),
		zap.String("pool", poolKey.String()),
		zap.Uint64("supply", a.InitialSupply),
		zap.Uint64("sol_reserve", a.InitialSolReserve))
	return res, nil
}

// MintAddress returns the mint a launch of symbol by creator would create.
func (p *Processor) MintAddress(symbol string, creator solana.PublicKey) (solana.PublicKey, error) {
	addr, err := p.derive.Mint(symbol, creator)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return addr.Key, nil
}

// Metadata returns the committed metadata record of mint.
func (p *Processor) Metadata(mint solana.PublicKey) (*state.TokenMetadata, error) {
	addr, err := pda.Metadata(mint)
	if err != nil {
		return nil, err
	}
	acc, ok := p.ledger.Account(addr.Key)
	if !ok || len(acc.Data) == 0 {
		return nil, fmt.Errorf("metadata for %s: %w", mint, program.ErrAccountNotFound)
	}
	return state.DecodeTokenMetadata(acc.Data)
}
