// =============================
// File: internal/app/app.go
// =============================

// Package app wires the local engine: configuration, logging, the persisted
// ledger, the processor and the event sinks that observe it.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/config"
	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/journal"
	"github.com/cryptobluejava/phbt-sub000/internal/logger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/ledger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/processor"
	"github.com/cryptobluejava/phbt-sub000/internal/storage"
	"github.com/cryptobluejava/phbt-sub000/internal/storage/postgres"
)

// JournalEntries is how many trades the journal keeps in memory.
const JournalEntries = 1000

// Options tune how the app is built.
type Options struct {
	// Console receives log output; os.Stderr when nil.
	Console io.Writer
	// ReadOnly skips saving the ledger on Close.
	ReadOnly bool
	// Migrator overrides the in-place AMM hand-off.
	Migrator processor.Migrator
}

// App is a running local engine.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Ledger    *ledger.Ledger
	Processor *processor.Processor
	Bus       *events.Bus
	Journal   *journal.Journal
	Store     storage.Storage

	readOnly bool
	shutdown *ShutdownHandler
}

// New builds the engine described by cfg. The ledger is loaded from
// cfg.StatePath; a missing file starts an empty chain.
func New(cfg *config.Config, opts Options) (*App, error) {
	log, closeLog, err := logger.New(logger.Options{
		Debug:   cfg.DebugLogging,
		File:    cfg.LogFile,
		Console: opts.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   log,
		readOnly: opts.ReadOnly,
		shutdown: NewShutdownHandler(log.Named("shutdown"), 30*time.Second),
	}
	a.shutdown.AddFunc("logger", func() error {
		_ = logger.Sync(log)
		return closeLog()
	})

	if err := a.build(cfg, opts); err != nil {
		_ = a.shutdown.Shutdown(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *App) build(cfg *config.Config, opts Options) error {
	params, err := cfg.Params()
	if err != nil {
		return err
	}

	a.Ledger, err = ledger.LoadFile(cfg.StatePath, ledger.WithLogger(a.Logger))
	if err != nil {
		return err
	}

	if cfg.PostgresURL != "" {
		a.Store, err = postgres.NewStorage(cfg.PostgresURL, a.Logger)
		if err != nil {
			return err
		}
		a.shutdown.Add("storage", a.Store)
		if err := a.Store.RunMigrations(); err != nil {
			return err
		}
	}

	a.Journal, err = journal.New(cfg.JournalDir, JournalEntries, a.Logger)
	if err != nil {
		return err
	}
	a.shutdown.Add("journal", a.Journal)

	a.Bus = events.NewBus(a.Logger, cfg.EventBuffer)
	a.shutdown.AddFunc("event bus", func() error {
		return a.Bus.Shutdown(context.Background())
	})
	a.Journal.Attach(a.Bus)
	if a.Store != nil {
		storage.NewRecorder(a.Store, a.Logger).Attach(a.Bus)
	}

	procOpts := []processor.Option{processor.WithPublisher(a.Bus)}
	if opts.Migrator != nil {
		procOpts = append(procOpts, processor.WithMigrator(opts.Migrator))
	}
	a.Processor, err = processor.New(cfg.ProgramKey(), a.Ledger, params, a.Logger, procOpts...)
	if err != nil {
		return err
	}

	a.Logger.Debug("Engine ready",
		zap.String("program_id", cfg.ProgramID),
		zap.String("state", cfg.StatePath),
		zap.Uint64("slot", a.Ledger.Slot()),
		zap.Bool("postgres", a.Store != nil))
	return nil
}

// Save writes the ledger to the configured state file.
func (a *App) Save() error {
	return a.Ledger.SaveFile(a.Config.StatePath)
}

// Close saves the ledger unless the app is read-only, then drains the event
// bus and closes the sinks and the logger.
func (a *App) Close(ctx context.Context) error {
	var saveErr error
	if !a.readOnly && a.Ledger != nil {
		saveErr = a.Save()
	}
	if err := a.shutdown.Shutdown(ctx); err != nil {
		return err
	}
	return saveErr
}
