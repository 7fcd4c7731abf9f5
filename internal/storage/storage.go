// internal/storage/storage.go
package storage

import (
	"context"
	"errors"

	"github.com/cryptobluejava/phbt-sub000/internal/storage/models"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Storage persists launchpad activity.
type Storage interface {
	// Trades
	SaveTrade(ctx context.Context, trade *models.Trade) error
	ListTrades(ctx context.Context, user string, limit, offset int) ([]*models.Trade, error)

	// Paper-hand tax
	SaveTaxEvent(ctx context.Context, ev *models.TaxEvent) error
	TaxCollected(ctx context.Context, pool string) (uint64, error)

	// Pools
	SaveLaunch(ctx context.Context, launch *models.Launch) error
	SavePoolSnapshot(ctx context.Context, snap *models.PoolSnapshot) error
	LatestPoolSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error)

	// Configuration
	SaveConfigChange(ctx context.Context, change *models.ConfigChange) error

	RunMigrations() error
	Close() error
}
