// internal/storage/recorder.go
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/storage/models"
)

// Recorder persists program events. It subscribes to every event type and
// writes the rows each one implies.
type Recorder struct {
	store  Storage
	logger *zap.Logger
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Storage, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.Named("recorder")}
}

// Attach subscribes the recorder to bus.
func (r *Recorder) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.All, r)
}

// Handle implements events.Handler.
func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	err := r.record(ctx, event)
	if err != nil {
		r.logger.Error("Failed to persist event",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
	return err
}

func (r *Recorder) record(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.TradeExecutedEvent:
		if err := r.store.SaveTrade(ctx, &models.Trade{
			User:        e.User.String(),
			Pool:        e.Pool.String(),
			Mint:        e.Mint.String(),
			Side:        e.Side,
			TokenAmount: e.TokenAmount,
			SolAmount:   e.SolAmount,
			GrossSol:    e.GrossSol,
			Tax:         e.Tax,
			Slot:        e.Slot,
			ExecutedAt:  e.EventTime,
		}); err != nil {
			return fmt.Errorf("save trade: %w", err)
		}
		return r.snapshot(ctx, e.Pool.String(), e.Mint.String(), "trade", e.TokenReserve, e.SolReserve, e.VirtualSolReserve, "", e.BaseEvent)

	case *events.PaperhandTaxAppliedEvent:
		return r.store.SaveTaxEvent(ctx, &models.TaxEvent{
			User:             e.User.String(),
			Pool:             e.Pool.String(),
			Treasury:         e.Treasury.String(),
			SolOutBeforeTax:  e.SolOutBeforeTax,
			CostBasisForSale: e.CostBasisForSale,
			Tax:              e.Tax,
			SolToUser:        e.SolToUser,
			Untracked:        e.Untracked,
			Slot:             e.Slot,
			ExecutedAt:       e.EventTime,
		})

	case *events.PoolLaunchedEvent:
		if err := r.store.SaveLaunch(ctx, &models.Launch{
			Mint:              e.Mint.String(),
			Pool:              e.Pool.String(),
			Creator:           e.Creator.String(),
			Name:              e.Name,
			Symbol:            e.Symbol,
			URI:               e.URI,
			Decimals:          e.Decimals,
			InitialSupply:     e.InitialSupply,
			InitialSolReserve: e.InitialSolReserve,
			LaunchFee:         e.LaunchFee,
			Slot:              e.Slot,
		}); err != nil {
			return fmt.Errorf("save launch: %w", err)
		}
		return r.snapshot(ctx, e.Pool.String(), e.Mint.String(), "launch", e.InitialSupply, e.InitialSolReserve, e.VirtualSolReserve, "", e.BaseEvent)

	case *events.PoolGraduatedEvent:
		return r.snapshot(ctx, e.Pool.String(), e.Mint.String(), "graduate", e.TokenAmount, e.SolAmount, 0, e.AmmPool.String(), e.BaseEvent)

	case *events.ConfigUpdatedEvent:
		return r.store.SaveConfigChange(ctx, &models.ConfigChange{
			Admin:             e.Admin.String(),
			Treasury:          e.Treasury.String(),
			Fees:              e.Fees,
			PaperhandTaxBps:   e.PaperhandTaxBps,
			DefaultVirtualSol: e.DefaultVirtualSol,
			Slot:              e.Slot,
		})
	}
	return nil
}

func (r *Recorder) snapshot(ctx context.Context, pool, mint, reason string, tokens, sol, virtual uint64, amm string, base events.BaseEvent) error {
	err := r.store.SavePoolSnapshot(ctx, &models.PoolSnapshot{
		Pool:              pool,
		Mint:              mint,
		Reason:            reason,
		TokenReserve:      tokens,
		SolReserve:        sol,
		VirtualSolReserve: virtual,
		AmmPool:           amm,
		Slot:              base.Slot,
		ObservedAt:        base.EventTime,
	})
	if err != nil {
		return fmt.Errorf("save pool snapshot: %w", err)
	}
	return nil
}
