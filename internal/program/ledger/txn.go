// =============================
// File: internal/program/ledger/txn.go
// =============================
package ledger

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
)

// Txn is a copy-on-write view over the ledger. Writes land in the overlay and
// become visible to other transactions only on commit.
type Txn struct {
	l        *Ledger
	writable map[solana.PublicKey]struct{}
	now      time.Time
	slot     uint64

	accounts map[solana.PublicKey]*Account
	mints    map[solana.PublicKey]*Mint
	tokens   map[solana.PublicKey]*TokenAccount
}

func newTxn(l *Ledger, keys []solana.PublicKey) *Txn {
	w := make(map[solana.PublicKey]struct{}, len(keys))
	for _, k := range keys {
		w[k] = struct{}{}
	}
	return &Txn{
		l:        l,
		writable: w,
		now:      l.now(),
		slot:     l.Slot(),
		accounts: make(map[solana.PublicKey]*Account),
		mints:    make(map[solana.PublicKey]*Mint),
		tokens:   make(map[solana.PublicKey]*TokenAccount),
	}
}

// Now is the timestamp fixed at the start of the transaction.
func (tx *Txn) Now() time.Time { return tx.now }

// Slot is the last committed slot when the transaction began.
func (tx *Txn) Slot() uint64 { return tx.slot }

// Writable reports whether key may be modified by this transaction.
func (tx *Txn) Writable(key solana.PublicKey) bool {
	_, ok := tx.writable[key]
	return ok
}

func (tx *Txn) mustWrite(key solana.PublicKey) error {
	if !tx.Writable(key) {
		return fmt.Errorf("%w: %s is not writable", program.ErrInvalidAccounts, key)
	}
	return nil
}

func (tx *Txn) load(key solana.PublicKey) (*Account, bool) {
	if a, ok := tx.accounts[key]; ok {
		return a, true
	}
	tx.l.mu.RLock()
	a, ok := tx.l.accounts[key]
	tx.l.mu.RUnlock()
	return a, ok
}

// stage returns a mutable overlay copy of key, creating an empty system
// account when none exists.
func (tx *Txn) stage(key solana.PublicKey) (*Account, error) {
	if err := tx.mustWrite(key); err != nil {
		return nil, err
	}
	if a, ok := tx.accounts[key]; ok {
		return a, nil
	}
	a, ok := tx.load(key)
	if ok {
		a = a.clone()
	} else {
		a = &Account{Owner: solana.SystemProgramID}
	}
	tx.accounts[key] = a
	return a, nil
}

// Account returns a copy of the account as seen by this transaction.
func (tx *Txn) Account(key solana.PublicKey) (*Account, bool) {
	a, ok := tx.load(key)
	return a.clone(), ok
}

// Data returns the account data at key if the account is owned by owner.
func (tx *Txn) Data(key, owner solana.PublicKey) ([]byte, error) {
	a, ok := tx.load(key)
	if !ok || len(a.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", program.ErrAccountNotFound, key)
	}
	if !a.Owner.Equals(owner) {
		return nil, fmt.Errorf("%w: %s is owned by %s", program.ErrInvalidAccountData, key, a.Owner)
	}
	return a.Data, nil
}

// Initialized reports whether key holds data.
func (tx *Txn) Initialized(key solana.PublicKey) bool {
	a, ok := tx.load(key)
	return ok && len(a.Data) > 0
}

// Lamports returns the balance of key.
func (tx *Txn) Lamports(key solana.PublicKey) uint64 {
	if a, ok := tx.load(key); ok {
		return a.Lamports
	}
	return 0
}

// Create assigns owner and data to an uninitialized account.
func (tx *Txn) Create(key, owner solana.PublicKey, data []byte) error {
	if tx.Initialized(key) {
		return fmt.Errorf("%w: %s", program.ErrAccountAlreadyInitialized, key)
	}
	a, err := tx.stage(key)
	if err != nil {
		return err
	}
	a.Owner = owner
	a.Data = append([]byte(nil), data...)
	return nil
}

// Store overwrites the data of an account already owned by owner.
func (tx *Txn) Store(key, owner solana.PublicKey, data []byte) error {
	if _, err := tx.Data(key, owner); err != nil {
		return err
	}
	a, err := tx.stage(key)
	if err != nil {
		return err
	}
	a.Data = append([]byte(nil), data...)
	return nil
}

// Credit adds lamports to key.
func (tx *Txn) Credit(key solana.PublicKey, lamports uint64) error {
	a, err := tx.stage(key)
	if err != nil {
		return err
	}
	sum, err := curve.CheckedAdd(a.Lamports, lamports)
	if err != nil {
		return err
	}
	a.Lamports = sum
	return nil
}

// Transfer moves lamports between two writable accounts.
func (tx *Txn) Transfer(from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}
	src, err := tx.stage(from)
	if err != nil {
		return err
	}
	if src.Lamports < lamports {
		return fmt.Errorf("%w: %s holds %d lamports, needs %d", program.ErrInsufficientBalance, from, src.Lamports, lamports)
	}
	if from.Equals(to) {
		return nil
	}
	dst, err := tx.stage(to)
	if err != nil {
		return err
	}
	sum, err := curve.CheckedAdd(dst.Lamports, lamports)
	if err != nil {
		return err
	}
	src.Lamports -= lamports
	dst.Lamports = sum
	return nil
}
