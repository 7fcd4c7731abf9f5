// =============================
// File: internal/program/processor/admin.go
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

// Initialize creates the configuration with admin as its authority. The
// treasury starts as the program's treasury vault.
func (p *Processor) Initialize(ctx context.Context, admin solana.PublicKey, fees, paperhandTaxBps uint16) (*Result, error) {
	ix, err := p.builder.Initialize(admin, &instruction.Initialize{Fees: fees, PaperhandTaxBps: paperhandTaxBps})
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

// UpdateConfiguration applies the set fields of update on behalf of admin.
func (p *Processor) UpdateConfiguration(ctx context.Context, admin solana.PublicKey, update *instruction.UpdateConfiguration) (*Result, error) {
	ix, err := p.builder.UpdateConfiguration(admin, update)
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, ix)
}

func (p *Processor) processInitialize(ctx context.Context, accounts solana.AccountMetaSlice, a *instruction.Initialize) (*Result, error) {
	if err := requireAccounts(accounts, 3); err != nil {
		return nil, err
	}
	admin := accounts[2].PublicKey
	expected, err := p.builder.InitializeAccounts(admin)
	if err != nil {
		return nil, err
	}
	if err := instruction.Verify(expected, accounts); err != nil {
		return nil, err
	}

	vault, err := p.derive.TreasuryVault()
	if err != nil {
		return nil, err
	}
	cfg := state.NewCurveConfiguration(a.Fees, vault.Key, a.PaperhandTaxBps, admin)
	cfg.DefaultVirtualSol = p.params.DefaultVirtualSol
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Config: cfg}
	err = p.ledger.Execute(ctx, instruction.WritableKeys(expected), func(tx *ledger.Txn) error {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		if err := tx.Create(p.configKey, p.programID, data); err != nil {
			return fmt.Errorf("curve configuration: %w", err)
		}
		res.Slot = tx.Slot()
		res.Events = append(res.Events, configEvent(tx, cfg))
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Configuration initialized",
		zap.String("admin", admin.String()),
		zap.Uint16("fees_bps", cfg.Fees),
		zap.Uint16("paperhand_tax_bps", cfg.PaperhandTaxBps),
		zap.String("treasury", cfg.Treasury.String()))
	return res, nil
}

func (p *Processor) processUpdateConfiguration(ctx context.Context, accounts solana.AccountMetaSlice, a *instruction.UpdateConfiguration) (*Result, error) {
	if err := requireAccounts(accounts, 2); err != nil {
		return nil, err
	}
	signer := accounts[1].PublicKey
	expected, err := p.builder.UpdateConfigurationAccounts(signer)
	if err != nil {
		return nil, err
	}
	if err := instruction.Verify(expected, accounts); err != nil {
		return nil, err
	}

	res := &Result{}
	err = p.ledger.Execute(ctx, instruction.WritableKeys(expected), func(tx *ledger.Txn) error {
		current, err := p.loadConfig(tx)
		if err != nil {
			return err
		}
		if !current.Admin.Equals(signer) {
			return fmt.Errorf("%w: %s", program.ErrUnauthorized, signer)
		}

		next := *current
		if a.Fees != nil {
			next.Fees = *a.Fees
		}
		if a.Treasury != nil {
			next.Treasury = *a.Treasury
		}
		if a.PaperhandTaxBps != nil {
			next.PaperhandTaxBps = *a.PaperhandTaxBps
		}
		if err := next.Validate(); err != nil {
			return err
		}

		data, err := next.Marshal()
		if err != nil {
			return err
		}
		if err := tx.Store(p.configKey, p.programID, data); err != nil {
			return err
		}
		res.Config = &next
		res.Slot = tx.Slot()
		res.Events = append(res.Events, configEvent(tx, &next))
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("Configuration updated",
		zap.Uint16("fees_bps", res.Config.Fees),
		zap.Uint16("paperhand_tax_bps", res.Config.PaperhandTaxBps),
		zap.String("treasury", res.Config.Treasury.String()))
	return res, nil
}

func configEvent(tx *ledger.Txn, cfg *state.CurveConfiguration) events.Event {
	return &events.ConfigUpdatedEvent{
		BaseEvent:         events.NewBase(events.ConfigUpdated, tx.Now(), tx.Slot()),
		Admin:             cfg.Admin,
		Treasury:          cfg.Treasury,
		Fees:              cfg.Fees,
		PaperhandTaxBps:   cfg.PaperhandTaxBps,
		DefaultVirtualSol: cfg.DefaultVirtualSol,
	}
}
