// =============================
// File: internal/program/ledger/ledger.go
// =============================

// Package ledger is an in-memory account store with all-or-nothing
// transactions. Accounts reference each other only by key.
package ledger

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Account is a lamport balance plus opaque data owned by a program.
type Account struct {
	Owner    solana.PublicKey `json:"owner"`
	Lamports uint64           `json:"lamports"`
	Data     []byte           `json:"data,omitempty"`
}

func (a *Account) clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = bytes.Clone(a.Data)
	return &c
}

// Mint is the token-program state of a mint.
type Mint struct {
	Authority solana.PublicKey `json:"authority"`
	Decimals  uint8            `json:"decimals"`
	Supply    uint64           `json:"supply"`
}

// TokenAccount is an associated token account balance.
type TokenAccount struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the wall clock used for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the ledger logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger.Named("ledger") }
}

// Ledger holds every account. Execute serializes transactions that share a
// writable key and commits each one atomically.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[solana.PublicKey]*Account
	mints    map[solana.PublicKey]*Mint
	tokens   map[solana.PublicKey]*TokenAccount

	locksMu sync.Mutex
	locks   map[solana.PublicKey]*sync.Mutex

	slot   atomic.Uint64
	now    func() time.Time
	logger *zap.Logger
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[solana.PublicKey]*Account),
		mints:    make(map[solana.PublicKey]*Mint),
		tokens:   make(map[solana.PublicKey]*TokenAccount),
		locks:    make(map[solana.PublicKey]*sync.Mutex),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Slot returns the number of committed transactions.
func (l *Ledger) Slot() uint64 {
	return l.slot.Load()
}

func (l *Ledger) lockFor(key solana.PublicKey) *sync.Mutex {
	l.locksMu.Lock()
	defer l.locksMu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// Execute runs fn in a transaction that may write only the given keys. Keys are
// locked in a fixed order, so concurrent transactions over overlapping sets
// cannot deadlock. State changes are committed only when fn returns nil.
func (l *Ledger) Execute(ctx context.Context, writable []solana.PublicKey, fn func(tx *Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := dedupe(writable)
	for _, k := range keys {
		l.lockFor(k).Lock()
	}
	defer func() {
		for i := len(keys) - 1; i >= 0; i-- {
			l.lockFor(keys[i]).Unlock()
		}
	}()

	tx := newTxn(l, keys)
	if err := fn(tx); err != nil {
		l.logger.Debug("Transaction rolled back", zap.Error(err), zap.Int("writable", len(keys)))
		return err
	}

	l.commit(tx)
	return nil
}

func (l *Ledger) commit(tx *Txn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, a := range tx.accounts {
		l.accounts[k] = a
	}
	for k, m := range tx.mints {
		l.mints[k] = m
	}
	for k, t := range tx.tokens {
		l.tokens[k] = t
	}
	l.slot.Add(1)
}

func dedupe(keys []solana.PublicKey) []solana.PublicKey {
	out := make([]solana.PublicKey, 0, len(keys))
	seen := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// Account returns a copy of the committed account at key.
func (l *Ledger) Account(key solana.PublicKey) (*Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[key]
	return a.clone(), ok
}

// Lamports returns the committed balance of key.
func (l *Ledger) Lamports(key solana.PublicKey) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.accounts[key]; ok {
		return a.Lamports
	}
	return 0
}

// Mint returns a copy of the committed mint state.
func (l *Ledger) Mint(key solana.PublicKey) (Mint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.mints[key]
	if !ok {
		return Mint{}, false
	}
	return *m, true
}

// TokenBalance returns owner's committed balance of mint.
func (l *Ledger) TokenBalance(owner, mint solana.PublicKey) uint64 {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t, ok := l.tokens[ata]; ok {
		return t.Amount
	}
	return 0
}

// Scan calls fn for every committed account owned by owner, in key order.
func (l *Ledger) Scan(owner solana.PublicKey, fn func(key solana.PublicKey, acc *Account)) {
	l.mu.RLock()
	keys := make([]solana.PublicKey, 0)
	for k, a := range l.accounts {
		if a.Owner.Equals(owner) {
			keys = append(keys, k)
		}
	}
	snapshot := make(map[solana.PublicKey]*Account, len(keys))
	for _, k := range keys {
		snapshot[k] = l.accounts[k].clone()
	}
	l.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})
	for _, k := range keys {
		fn(k, snapshot[k])
	}
}

// Airdrop credits lamports to key outside of any program.
func (l *Ledger) Airdrop(ctx context.Context, key solana.PublicKey, lamports uint64) error {
	return l.Execute(ctx, []solana.PublicKey{key}, func(tx *Txn) error {
		return tx.Credit(key, lamports)
	})
}

func (l *Ledger) String() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return fmt.Sprintf("Ledger{slot=%d accounts=%d mints=%d token_accounts=%d}",
		l.slot.Load(), len(l.accounts), len(l.mints), len(l.tokens))
}
