// =============================
// File: internal/program/ledger/snapshot.go
// =============================
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Snapshot is the serializable form of a ledger.
type Snapshot struct {
	Slot          uint64                             `json:"slot"`
	Accounts      map[solana.PublicKey]*Account      `json:"accounts"`
	Mints         map[solana.PublicKey]*Mint         `json:"mints"`
	TokenAccounts map[solana.PublicKey]*TokenAccount `json:"token_accounts"`
}

// Snapshot copies the committed state.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := &Snapshot{
		Slot:          l.slot.Load(),
		Accounts:      make(map[solana.PublicKey]*Account, len(l.accounts)),
		Mints:         make(map[solana.PublicKey]*Mint, len(l.mints)),
		TokenAccounts: make(map[solana.PublicKey]*TokenAccount, len(l.tokens)),
	}
	for k, a := range l.accounts {
		s.Accounts[k] = a.clone()
	}
	for k, m := range l.mints {
		c := *m
		s.Mints[k] = &c
	}
	for k, t := range l.tokens {
		c := *t
		s.TokenAccounts[k] = &c
	}
	return s
}

// Restore replaces the ledger contents with s.
func (l *Ledger) Restore(s *Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts = make(map[solana.PublicKey]*Account, len(s.Accounts))
	for k, a := range s.Accounts {
		l.accounts[k] = a.clone()
	}
	l.mints = make(map[solana.PublicKey]*Mint, len(s.Mints))
	for k, m := range s.Mints {
		c := *m
		l.mints[k] = &c
	}
	l.tokens = make(map[solana.PublicKey]*TokenAccount, len(s.TokenAccounts))
	for k, t := range s.TokenAccounts {
		c := *t
		l.tokens[k] = &c
	}
	l.slot.Store(s.Slot)
}

// WriteTo encodes the committed state as JSON.
func (l *Ledger) WriteTo(w io.Writer) (int64, error) {
	data, err := json.MarshalIndent(l.Snapshot(), "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to encode ledger snapshot: %w", err)
	}
	n, err := w.Write(data)
	return int64(n), err
}

// SaveFile writes the snapshot to path via a temporary file.
func (l *Ledger) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	if _, err := l.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	l.logger.Debug("Ledger saved", zap.String("path", path), zap.Uint64("slot", l.Slot()))
	return nil
}

// LoadFile restores a ledger from path. A missing file yields an empty ledger.
func LoadFile(path string, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", path, err)
	}
	l.Restore(&s)
	l.logger.Debug("Ledger loaded", zap.String("path", path), zap.Uint64("slot", s.Slot))
	return l, nil
}
