// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cryptobluejava/phbt-sub000/internal/storage"
	"github.com/cryptobluejava/phbt-sub000/internal/storage/models"
)

// migrationLockID is the advisory lock held while AutoMigrate runs.
const migrationLockID = 0x5048_4254

// gormLogger routes GORM logs to zap.
type gormLogger struct {
	zapLogger     *zap.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger:     zapLogger,
		logLevel:      logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.logLevel >= logger.Error:
		l.zapLogger.Error("Query failed", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		l.zapLogger.Warn("Slow query", fields...)
	case l.logLevel >= logger.Info:
		l.zapLogger.Debug("Query", fields...)
	}
}

// postgresStorage implements storage.Storage.
type postgresStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage connects to dsn.
func NewStorage(dsn string, zapLogger *zap.Logger) (storage.Storage, error) {
	return open(postgres.Open(dsn), zapLogger)
}

func open(dialector gorm.Dialector, zapLogger *zap.Logger) (*postgresStorage, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &postgresStorage{db: db, logger: zapLogger}, nil
}

// RunMigrations creates or updates the tables under an advisory lock.
func (p *postgresStorage) RunMigrations() error {
	var lockObtained bool
	if err := p.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

	if err := p.db.AutoMigrate(
		&models.Trade{},
		&models.TaxEvent{},
		&models.Launch{},
		&models.PoolSnapshot{},
		&models.ConfigChange{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	p.logger.Info("Database migrations applied")
	return nil
}

func (p *postgresStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *postgresStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return p.db.WithContext(ctx).Create(trade).Error
}

func (p *postgresStorage) ListTrades(ctx context.Context, user string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	q := p.db.WithContext(ctx).Order("slot desc, id desc").Limit(limit).Offset(offset)
	if user != "" {
		q = q.Where("\"user\" = ?", user)
	}
	err := q.Find(&trades).Error
	return trades, err
}

func (p *postgresStorage) SaveTaxEvent(ctx context.Context, ev *models.TaxEvent) error {
	return p.db.WithContext(ctx).Create(ev).Error
}

func (p *postgresStorage) TaxCollected(ctx context.Context, pool string) (uint64, error) {
	var total uint64
	q := p.db.WithContext(ctx).Model(&models.TaxEvent{}).Select("COALESCE(SUM(tax), 0)")
	if pool != "" {
		q = q.Where("pool = ?", pool)
	}
	if err := q.Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (p *postgresStorage) SaveLaunch(ctx context.Context, launch *models.Launch) error {
	return p.db.WithContext(ctx).Create(launch).Error
}

func (p *postgresStorage) SavePoolSnapshot(ctx context.Context, snap *models.PoolSnapshot) error {
	return p.db.WithContext(ctx).Create(snap).Error
}

func (p *postgresStorage) LatestPoolSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	var snap models.PoolSnapshot
	err := p.db.WithContext(ctx).Where("pool = ?", pool).Order("slot desc, id desc").First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *postgresStorage) SaveConfigChange(ctx context.Context, change *models.ConfigChange) error {
	return p.db.WithContext(ctx).Create(change).Error
}
