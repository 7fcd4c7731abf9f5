// =============================
// File: internal/client/client.go
// =============================

// Package client talks to a deployed launchpad program over JSON-RPC: it
// fetches and decodes program accounts and submits signed instructions.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/program"
	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
	"github.com/cryptobluejava/phbt-sub000/internal/program/pda"
	"github.com/cryptobluejava/phbt-sub000/internal/program/state"
)

// RPC is the subset of the solana-go rpc client the launchpad client uses.
type RPC interface {
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

var _ RPC = (*rpc.Client)(nil)

// Client is a launchpad client bound to one deployment and one signer.
type Client struct {
	rpc     RPC
	builder *instruction.Builder
	signer  solana.PrivateKey
	logger  *zap.Logger

	maxTries       uint
	retryInterval  time.Duration
	maxElapsed     time.Duration
	pollInterval   time.Duration
	confirmTimeout time.Duration
	commitment     rpc.CommitmentType
}

// Option configures a Client.
type Option func(*Client)

// WithRetries caps submission attempts.
func WithRetries(n uint) Option {
	return func(c *Client) { c.maxTries = n }
}

// WithRetryInterval sets the initial backoff between submission attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) { c.retryInterval = d }
}

// WithConfirmation sets how often and how long signature statuses are polled.
func WithConfirmation(poll, timeout time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = poll
		c.confirmTimeout = timeout
	}
}

// New dials rpcURL for the program at programID. signer may be nil for
// read-only use.
func New(rpcURL string, programID solana.PublicKey, signer solana.PrivateKey, logger *zap.Logger, opts ...Option) *Client {
	return NewWithRPC(rpc.New(rpcURL), programID, signer, logger, opts...)
}

// NewWithRPC builds a client over an existing RPC implementation.
func NewWithRPC(r RPC, programID solana.PublicKey, signer solana.PrivateKey, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		rpc:            r,
		builder:        instruction.NewBuilder(pda.New(programID)),
		signer:         signer,
		logger:         logger.Named("client"),
		maxTries:       3,
		retryInterval:  500 * time.Millisecond,
		maxElapsed:     30 * time.Second,
		pollInterval:   500 * time.Millisecond,
		confirmTimeout: 30 * time.Second,
		commitment:     rpc.CommitmentConfirmed,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Builder returns the instruction builder for the client's deployment.
func (c *Client) Builder() *instruction.Builder { return c.builder }

// Deriver returns the PDA deriver for the client's deployment.
func (c *Client) Deriver() *pda.Deriver { return c.builder.Deriver() }

// Signer returns the public key transactions are paid and signed by, or the
// zero key for a read-only client.
func (c *Client) Signer() solana.PublicKey {
	if len(c.signer) == 0 {
		return solana.PublicKey{}
	}
	return c.signer.PublicKey()
}

// accountData fetches key and checks it is owned by owner.
func (c *Client) accountData(ctx context.Context, key, owner solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfo(ctx, key)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", program.ErrAccountNotFound, key)
		}
		c.logger.Debug("GetAccountInfo error", zap.String("pubkey", key.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to fetch account %s: %w", key, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: %s", program.ErrAccountNotFound, key)
	}
	if !res.Value.Owner.Equals(owner) {
		return nil, fmt.Errorf("%w: %s is owned by %s", program.ErrInvalidAccountData, key, res.Value.Owner)
	}
	if res.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s has no data", program.ErrInvalidAccountData, key)
	}
	return res.Value.Data.GetBinary(), nil
}

// FetchConfig reads the curve configuration.
func (c *Client) FetchConfig(ctx context.Context) (*state.CurveConfiguration, error) {
	addr, err := c.Deriver().CurveConfig()
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, addr.Key, c.Deriver().ProgramID())
	if err != nil {
		return nil, err
	}
	return state.DecodeCurveConfiguration(data)
}

// FetchPool reads the pool for mint in either on-chain layout.
func (c *Client) FetchPool(ctx context.Context, mint solana.PublicKey) (solana.PublicKey, *state.Pool, error) {
	addr, err := c.Deriver().Pool(mint)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	data, err := c.accountData(ctx, addr.Key, c.Deriver().ProgramID())
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	pool, err := state.DecodePool(data)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to decode pool %s: %w", addr.Key, err)
	}
	return addr.Key, pool, nil
}

// FetchPosition reads user's position in the pool for mint.
func (c *Client) FetchPosition(ctx context.Context, mint, user solana.PublicKey) (*state.UserPosition, error) {
	pool, err := c.Deriver().Pool(mint)
	if err != nil {
		return nil, err
	}
	addr, err := c.Deriver().Position(pool.Key, user)
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, addr.Key, c.Deriver().ProgramID())
	if err != nil {
		return nil, err
	}
	return state.DecodeUserPosition(data)
}

// FetchMigration returns the migration record for mint's pool, or nil if the
// pool is still on the curve.
func (c *Client) FetchMigration(ctx context.Context, mint solana.PublicKey) (*state.MigrationRecord, error) {
	pool, err := c.Deriver().Pool(mint)
	if err != nil {
		return nil, err
	}
	addr, err := c.Deriver().Migration(pool.Key)
	if err != nil {
		return nil, err
	}
	data, err := c.accountData(ctx, addr.Key, c.Deriver().ProgramID())
	if errors.Is(err, program.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state.DecodeMigrationRecord(data)
}

// Balance returns the lamport balance of key.
func (c *Client) Balance(ctx context.Context, key solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetBalance(ctx, key, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance of %s: %w", key, err)
	}
	return res.Value, nil
}
