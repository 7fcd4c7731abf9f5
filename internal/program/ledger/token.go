// =============================
// File: internal/program/ledger/token.go
// =============================
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/curve"
)

func (tx *Txn) loadMint(key solana.PublicKey) (*Mint, bool) {
	if m, ok := tx.mints[key]; ok {
		return m, true
	}
	tx.l.mu.RLock()
	m, ok := tx.l.mints[key]
	tx.l.mu.RUnlock()
	return m, ok
}

func (tx *Txn) loadToken(key solana.PublicKey) (*TokenAccount, bool) {
	if t, ok := tx.tokens[key]; ok {
		return t, true
	}
	tx.l.mu.RLock()
	t, ok := tx.l.tokens[key]
	tx.l.mu.RUnlock()
	return t, ok
}

// MintInfo returns a copy of the mint state.
func (tx *Txn) MintInfo(mint solana.PublicKey) (Mint, bool) {
	m, ok := tx.loadMint(mint)
	if !ok {
		return Mint{}, false
	}
	return *m, true
}

// CreateMint initializes a new mint with authority.
func (tx *Txn) CreateMint(mint, authority solana.PublicKey, decimals uint8) error {
	if err := tx.mustWrite(mint); err != nil {
		return err
	}
	if _, ok := tx.loadMint(mint); ok {
		return fmt.Errorf("%w: mint %s", program.ErrAccountAlreadyInitialized, mint)
	}
	tx.mints[mint] = &Mint{Authority: authority, Decimals: decimals}
	return nil
}

// TokenAddress returns the associated token account of owner for mint.
func TokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive token account: %w", err)
	}
	return ata, nil
}

// TokenBalance returns owner's balance of mint inside this transaction.
func (tx *Txn) TokenBalance(owner, mint solana.PublicKey) (uint64, error) {
	ata, err := TokenAddress(owner, mint)
	if err != nil {
		return 0, err
	}
	if t, ok := tx.loadToken(ata); ok {
		return t.Amount, nil
	}
	return 0, nil
}

// stageToken returns a mutable token account, creating it on first use.
func (tx *Txn) stageToken(owner, mint solana.PublicKey) (*TokenAccount, error) {
	ata, err := TokenAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	if err := tx.mustWrite(ata); err != nil {
		return nil, err
	}
	if t, ok := tx.tokens[ata]; ok {
		return t, nil
	}
	t := &TokenAccount{Mint: mint, Owner: owner}
	if cur, ok := tx.loadToken(ata); ok {
		c := *cur
		t = &c
	}
	tx.tokens[ata] = t
	return t, nil
}

// MintTo issues amount new tokens to owner's token account.
func (tx *Txn) MintTo(mint, authority, owner solana.PublicKey, amount uint64) error {
	if err := tx.mustWrite(mint); err != nil {
		return err
	}
	cur, ok := tx.loadMint(mint)
	if !ok {
		return fmt.Errorf("%w: mint %s", program.ErrAccountNotFound, mint)
	}
	if !cur.Authority.Equals(authority) {
		return fmt.Errorf("%w: %s is not the mint authority", program.ErrUnauthorized, authority)
	}
	supply, err := curve.CheckedAdd(cur.Supply, amount)
	if err != nil {
		return err
	}
	dst, err := tx.stageToken(owner, mint)
	if err != nil {
		return err
	}
	balance, err := curve.CheckedAdd(dst.Amount, amount)
	if err != nil {
		return err
	}
	m := *cur
	m.Supply = supply
	tx.mints[mint] = &m
	dst.Amount = balance
	return nil
}

// TransferTokens moves amount of mint from one owner's token account to another's.
func (tx *Txn) TransferTokens(mint, from, to solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, err := tx.stageToken(from, mint)
	if err != nil {
		return err
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: %s holds %d tokens, needs %d", program.ErrInsufficientBalance, from, src.Amount, amount)
	}
	if from.Equals(to) {
		return nil
	}
	dst, err := tx.stageToken(to, mint)
	if err != nil {
		return err
	}
	sum, err := curve.CheckedAdd(dst.Amount, amount)
	if err != nil {
		return err
	}
	src.Amount -= amount
	dst.Amount = sum
	return nil
}
