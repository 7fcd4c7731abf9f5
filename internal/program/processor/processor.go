// =============================
// File: internal/program/processor/processor.go
// =============================

// Package processor executes launchpad instructions against a ledger. Every
// instruction runs as one ledger transaction: it validates, computes, commits
// account state and moves funds, or leaves the ledger untouched.
package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/events"
	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/program/ledger"
	"github.com/cryptobluejava/phbt-sub000/internal/program/pda"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

// UntrackedSellPolicy decides how sells from wallets without a recorded cost
// basis are treated.
type UntrackedSellPolicy string

const (
	// UntrackedSellTax taxes every sell from a wallet that never bought through the curve.
	UntrackedSellTax UntrackedSellPolicy = "tax"
	// UntrackedSellExempt lets such sells through untaxed.
	UntrackedSellExempt UntrackedSellPolicy = "exempt"
)

// ParseUntrackedSellPolicy accepts "tax" or "exempt".
func ParseUntrackedSellPolicy(s string) (UntrackedSellPolicy, error) {
	switch p := UntrackedSellPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case UntrackedSellTax, UntrackedSellExempt:
		return p, nil
	default:
		return "", fmt.Errorf("unknown untracked sell policy %q (want tax or exempt)", s)
	}
}

// Params are deployment parameters that do not live in the configuration account.
type Params struct {
	GraduationThreshold uint64
	LaunchFee           uint64
	DefaultVirtualSol   uint64
	UntrackedSellPolicy UntrackedSellPolicy
}

// DefaultParams returns the parameters of the devnet deployment.
func DefaultParams() Params {
	return Params{
		GraduationThreshold: program.DefaultGraduationThreshold,
		LaunchFee:           program.DefaultLaunchFee,
		DefaultVirtualSol:   program.DefaultVirtualSol,
		UntrackedSellPolicy: UntrackedSellTax,
	}
}

// Option configures a Processor.
type Option func(*Processor)

// WithMigrator sets the AMM hand-off used at graduation.
func WithMigrator(m Migrator) Option {
	return func(p *Processor) { p.migrator = m }
}

// WithPublisher sets where committed events are sent.
func WithPublisher(pub events.Publisher) Option {
	return func(p *Processor) { p.publisher = pub }
}

// Processor executes instructions for one program deployment.
type Processor struct {
	programID solana.PublicKey
	derive    *pda.Deriver
	builder   *instruction.Builder
	ledger    *ledger.Ledger
	params    Params
	migrator  Migrator
	publisher events.Publisher
	logger    *zap.Logger

	configKey solana.PublicKey
	globalKey solana.PublicKey
}

// New creates a processor over l.
func New(programID solana.PublicKey, l *ledger.Ledger, params Params, logger *zap.Logger, opts ...Option) (*Processor, error) {
	if params.GraduationThreshold == 0 {
		return nil, fmt.Errorf("graduation threshold must be positive")
	}
	if params.UntrackedSellPolicy == "" {
		params.UntrackedSellPolicy = UntrackedSellTax
	}

	derive := pda.New(programID)
	cfg, err := derive.CurveConfig()
	if err != nil {
		return nil, err
	}
	global, err := derive.Global()
	if err != nil {
		return nil, err
	}

	p := &Processor{
		programID: programID,
		derive:    derive,
		builder:   instruction.NewBuilder(derive),
		ledger:    l,
		params:    params,
		migrator:  InPlaceMigrator{},
		publisher: events.Discard,
		logger:    logger.Named("processor"),
		configKey: cfg.Key,
		globalKey: global.Key,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProgramID returns the deployment this processor executes for.
func (p *Processor) ProgramID() solana.PublicKey { return p.programID }

// Builder returns the instruction builder for this deployment.
func (p *Processor) Builder() *instruction.Builder { return p.builder }

// Ledger returns the underlying account store.
func (p *Processor) Ledger() *ledger.Ledger { return p.ledger }

// Params returns the deployment parameters.
func (p *Processor) Params() Params { return p.params }

// Result describes the effect of one committed instruction.
type Result struct {
	Instruction string
	Slot        uint64
	Events      []events.Event

	Config    *state.CurveConfiguration
	Mint      solana.PublicKey
	PoolKey   solana.PublicKey
	Pool      *state.Pool
	Trade     *TradeResult
	Migration *state.MigrationRecord
}

// Execute runs a built instruction.
func (p *Processor) Execute(ctx context.Context, ix solana.Instruction) (*Result, error) {
	if !ix.ProgramID().Equals(p.programID) {
		return nil, fmt.Errorf("%w: instruction targets program %s", program.ErrInvalidAccounts, ix.ProgramID())
	}
	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction data: %w", err)
	}
	return p.ProcessInstruction(ctx, ix.Accounts(), data)
}

// ProcessInstruction decodes data and dispatches it with the given accounts.
// Account keys, signer and writable flags are checked against the addresses
// the instruction must touch.
func (p *Processor) ProcessInstruction(ctx context.Context, accounts solana.AccountMetaSlice, data []byte) (*Result, error) {
	args, err := instruction.Decode(data)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch a := args.(type) {
	case *instruction.Initialize:
		res, err = p.processInitialize(ctx, accounts, a)
	case *instruction.UpdateConfiguration:
		res, err = p.processUpdateConfiguration(ctx, accounts, a)
	case *instruction.Launch:
		res, err = p.processLaunch(ctx, accounts, a)
	case *instruction.Swap:
		res, err = p.processTrade(ctx, accounts, a.Name(), a.IsSell(), a.Amount, a.MinAmountOut)
	case *instruction.Buy:
		res, err = p.processTrade(ctx, accounts, a.Name(), false, a.Amount, a.MinAmountOut)
	case *instruction.Sell:
		res, err = p.processTrade(ctx, accounts, a.Name(), true, a.Amount, a.MinAmountOut)
	case *instruction.Graduate:
		res, err = p.processGraduate(ctx, accounts)
	default:
		err = fmt.Errorf("%w: unhandled instruction %s", program.ErrInvalidInstruction, args.Name())
	}
	if err != nil {
		p.logger.Debug("Instruction failed", zap.String("instruction", args.Name()), zap.Error(err))
		return nil, err
	}

	res.Instruction = args.Name()
	p.publish(res.Events)
	return res, nil
}

func (p *Processor) publish(evs []events.Event) {
	for _, e := range evs {
		if err := p.publisher.Publish(e); err != nil {
			p.logger.Warn("Failed to publish event",
				zap.String("event_type", string(e.Type())),
				zap.Error(err))
		}
	}
}

func requireAccounts(accounts solana.AccountMetaSlice, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: got %d accounts, want %d", program.ErrInvalidAccounts, len(accounts), n)
	}
	return nil
}

// lockSet returns the writable keys of accounts, leaving out the
// configuration, which trades and launches only read.
func (p *Processor) lockSet(accounts solana.AccountMetaSlice) []solana.PublicKey {
	keys := instruction.WritableKeys(accounts)
	out := keys[:0]
	for _, k := range keys {
		if !k.Equals(p.configKey) {
			out = append(out, k)
		}
	}
	return out
}

func (p *Processor) loadConfig(tx *ledger.Txn) (*state.CurveConfiguration, error) {
	data, err := tx.Data(p.configKey, p.programID)
	if err != nil {
		return nil, fmt.Errorf("curve configuration: %w", err)
	}
	return state.DecodeCurveConfiguration(data)
}

func (p *Processor) loadPool(tx *ledger.Txn, key solana.PublicKey) (*state.Pool, error) {
	data, err := tx.Data(key, p.programID)
	if err != nil {
		return nil, fmt.Errorf("pool: %w", err)
	}
	return state.DecodePool(data)
}

func (p *Processor) storePool(tx *ledger.Txn, key solana.PublicKey, pool *state.Pool) error {
	data, err := pool.Marshal()
	if err != nil {
		return err
	}
	return tx.Store(key, p.programID, data)
}

// loadPosition returns nil when the wallet has no position yet.
func (p *Processor) loadPosition(tx *ledger.Txn, key solana.PublicKey) (*state.UserPosition, error) {
	if !tx.Initialized(key) {
		return nil, nil
	}
	data, err := tx.Data(key, p.programID)
	if err != nil {
		return nil, err
	}
	return state.DecodeUserPosition(data)
}

// Config returns the committed configuration account.
func (p *Processor) Config() (*state.CurveConfiguration, error) {
	acc, ok := p.ledger.Account(p.configKey)
	if !ok || len(acc.Data) == 0 {
		return nil, fmt.Errorf("curve configuration: %w", program.ErrAccountNotFound)
	}
	return state.DecodeCurveConfiguration(acc.Data)
}

// Pool returns the committed pool for mint.
func (p *Processor) Pool(mint solana.PublicKey) (solana.PublicKey, *state.Pool, error) {
	addr, err := p.derive.Pool(mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	acc, ok := p.ledger.Account(addr.Key)
	if !ok || len(acc.Data) == 0 {
		return addr.Key, nil, fmt.Errorf("pool for %s: %w", mint, program.ErrAccountNotFound)
	}
	pool, err := state.DecodePool(acc.Data)
	return addr.Key, pool, err
}

// Position returns the committed position of user in the pool of mint, or
// nil when the wallet never bought.
func (p *Processor) Position(mint, user solana.PublicKey) (*state.UserPosition, error) {
	pool, err := p.derive.Pool(mint)
	if err != nil {
		return nil, err
	}
	addr, err := p.derive.Position(pool.Key, user)
	if err != nil {
		return nil, err
	}
	acc, ok := p.ledger.Account(addr.Key)
	if !ok || len(acc.Data) == 0 {
		return nil, nil
	}
	return state.DecodeUserPosition(acc.Data)
}

// Graduated reports whether the pool of mint has a migration record.
func (p *Processor) Graduated(mint solana.PublicKey) (*state.MigrationRecord, error) {
	pool, err := p.derive.Pool(mint)
	if err != nil {
		return nil, err
	}
	addr, err := p.derive.Migration(pool.Key)
	if err != nil {
		return nil, err
	}
	acc, ok := p.ledger.Account(addr.Key)
	if !ok || len(acc.Data) == 0 {
		return nil, nil
	}
	return state.DecodeMigrationRecord(acc.Data)
}

// Pools lists every committed pool, keyed by pool address.
func (p *Processor) Pools() map[solana.PublicKey]*state.Pool {
	out := make(map[solana.PublicKey]*state.Pool)
	p.ledger.Scan(p.programID, func(key solana.PublicKey, acc *ledger.Account) {
		if pool, err := state.DecodePool(acc.Data); err == nil {
			out[key] = pool
		}
	})
	return out
}

// Treasury returns the treasury address configured in the committed configuration.
func (p *Processor) Treasury() (solana.PublicKey, error) {
	cfg, err := p.Config()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return cfg.Treasury, nil
}
