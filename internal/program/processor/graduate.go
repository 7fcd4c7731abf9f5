// =============================
// File: internal/program/processor/graduate.go
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
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

// MigrationRequest describes the reserves handed to the AMM at graduation.
type MigrationRequest struct {
	Pool         solana.PublicKey
	Mint         solana.PublicKey
	TokenReserve uint64
	SolReserve   uint64
	Slot         uint64
}

// Migrator hands a graduating pool to an AMM and returns the AMM pool address.
// It runs inside the graduating transaction; an error aborts the whole
// instruction and the pool stays on the curve.
type Migrator interface {
	Migrate(ctx context.Context, req MigrationRequest) (solana.PublicKey, error)
}

// MigratorFunc adapts a function to Migrator.
type MigratorFunc func(ctx context.Context, req MigrationRequest) (solana.PublicKey, error)

// Migrate calls f(ctx, req).
func (f MigratorFunc) Migrate(ctx context.Context, req MigrationRequest) (solana.PublicKey, error) {
	return f(ctx, req)
}

// InPlaceMigrator keeps the graduated pool trading as a plain constant-product
// AMM in this program; the AMM pool is the pool itself.
type InPlaceMigrator struct{}

// Migrate returns the pool address.
func (InPlaceMigrator) Migrate(_ context.Context, req MigrationRequest) (solana.PublicKey, error) {
	return req.Pool, nil
}

// Graduate runs the graduation check for the pool of mint. It fails with
// AlreadyGraduated for a migrated pool and is a no-op below the threshold.
func (p *Processor) Graduate(ctx context.Context, payer, mint solana.PublicKey) (*Result, error) {
	ix, err := p.builder.Graduate(payer, mint)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

func (p *Processor) processGraduate(ctx context.Context, accounts solana.AccountMetaSlice) (*Result, error) {
	if err := requireAccounts(accounts, instruction.GraduateSystemProgram+1); err != nil {
		return nil, err
	}
	payer := accounts[instruction.GraduatePayer].PublicKey
	mint := accounts[instruction.GraduateMint].PublicKey
	expected, err := p.builder.GraduateAccounts(payer, mint)
	if err != nil {
		return nil, err
	}
	if err := instruction.Verify(expected, accounts); err != nil {
		return nil, err
	}

	poolKey := expected[instruction.GraduatePool].PublicKey
	migrationKey := expected[instruction.GraduateMigration].PublicKey

	res := &Result{Mint: mint, PoolKey: poolKey}
	err = p.ledger.Execute(ctx, p.lockSet(expected), func(tx *ledger.Txn) error {
		if tx.Initialized(migrationKey) {
			return fmt.Errorf("pool %s: %w", poolKey, program.ErrAlreadyGraduated)
		}
		if _, err := p.loadConfig(tx); err != nil {
			return err
		}
		pool, err := p.loadPool(tx, poolKey)
		if err != nil {
			return err
		}

		rec, err := p.maybeGraduate(ctx, tx, poolKey, mint, migrationKey, pool)
		if err != nil {
			return err
		}
		res.Pool = pool
		res.Slot = tx.Slot()
		if rec != nil {
			res.Migration = rec
			res.Events = append(res.Events, graduatedEvent(tx, mint, rec))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Migration == nil {
		p.logger.Debug("Pool below graduation threshold",
			zap.String("pool", poolKey.String()),
			zap.Uint64("sol_reserve", res.Pool.ReserveTwo),
			zap.Uint64("threshold", p.params.GraduationThreshold))
	}
	return res, nil
}

// maybeGraduate migrates pool when its real SOL reserve has reached the
// threshold and it has not migrated before. It returns nil when nothing happened.
func (p *Processor) maybeGraduate(ctx context.Context, tx *ledger.Txn, poolKey, mint, migrationKey solana.PublicKey, pool *state.Pool) (*state.MigrationRecord, error) {
	if tx.Initialized(migrationKey) {
		return nil, nil
	}
	if pool.ReserveTwo < p.params.GraduationThreshold {
		return nil, nil
	}

	addr, err := p.derive.Migration(poolKey)
	if err != nil {
		return nil, err
	}

	amm, err := p.migrator.Migrate(ctx, MigrationRequest{
		Pool:         poolKey,
		Mint:         mint,
		TokenReserve: pool.ReserveOne,
		SolReserve:   pool.ReserveTwo,
		Slot:         tx.Slot(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", program.ErrMigrationFailed, err)
	}

	rec := &state.MigrationRecord{
		Pool:          poolKey,
		AmmPool:       amm,
		TokenAmount:   pool.ReserveOne,
		SolAmount:     pool.ReserveTwo,
		VirtualSolCut: pool.VirtualSolReserve,
		Slot:          tx.Slot(),
		Bump:          addr.Bump,
	}
	data, err := rec.Marshal()
	if err != nil {
		return nil, err
	}

	pool.VirtualSolReserve = 0
	if err := p.storePool(tx, poolKey, pool); err != nil {
		return nil, err
	}
	if err := tx.Create(migrationKey, p.programID, data); err != nil {
		return nil, fmt.Errorf("migration record: %w", err)
	}

	p.logger.Info("Pool graduated",
		zap.String("pool", poolKey.String()),
		zap.String("amm_pool", amm.String()),
		zap.Uint64("sol_reserve", rec.SolAmount),
		zap.Uint64("virtual_sol_cut", rec.VirtualSolCut))
	return rec, nil
}

func graduatedEvent(tx *ledger.Txn, mint solana.PublicKey, rec *state.MigrationRecord) events.Event {
	return &events.PoolGraduatedEvent{
		BaseEvent:     events.NewBase(events.PoolGraduated, tx.Now(), tx.Slot()),
		Pool:          rec.Pool,
		Mint:          mint,
		AmmPool:       rec.AmmPool,
		TokenAmount:   rec.TokenAmount,
		SolAmount:     rec.SolAmount,
		VirtualSolCut: rec.VirtualSolCut,
	}
}
