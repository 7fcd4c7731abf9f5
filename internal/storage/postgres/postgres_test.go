package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cryptobluejava/phbt-sub000/internal/storage"
	"github.com/cryptobluejava/phbt-sub000/internal/storage/models"
)

func TestGormLogger_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := newGormLogger(zap.New(core))
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Zero(t, logs.Len(), "fast queries are not logged at warn level")

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Slow query", logs.All()[0].Message)

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len(), "not found is not an error")

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)

	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Equal(t, 2, logs.Len())

	l.LogMode(logger.Info).Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 3, logs.Len())
}

// TestStorage_Postgres runs against a live database when PHBT_TEST_POSTGRES_URL is set.
func TestStorage_Postgres(t *testing.T) {
	dsn := os.Getenv("PHBT_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("PHBT_TEST_POSTGRES_URL not set")
	}
	store, err := NewStorage(dsn, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RunMigrations())

	ctx := context.Background()
	pool := "pool-" + time.Now().Format("150405.000000")
	require.NoError(t, store.SaveTaxEvent(ctx, &models.TaxEvent{User: "u", Pool: pool, Treasury: "t", Tax: 7, ExecutedAt: time.Now()}))
	require.NoError(t, store.SaveTaxEvent(ctx, &models.TaxEvent{User: "u", Pool: pool, Treasury: "t", Tax: 5, ExecutedAt: time.Now()}))
	total, err := store.TaxCollected(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), total)

	_, err = store.LatestPoolSnapshot(ctx, pool)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, store.SavePoolSnapshot(ctx, &models.PoolSnapshot{Pool: pool, Mint: "m", Reason: "trade", Slot: 3, ObservedAt: time.Now()}))
	snap, err := store.LatestPoolSnapshot(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), snap.Slot)
}
