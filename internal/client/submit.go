// =============================
// File: internal/client/submit.go
// =============================
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/cryptobluejava/phbt-sub000/internal/program/instruction"
)

// ErrNoSigner is returned when a write is attempted by a read-only client.
var ErrNoSigner = errors.New("client has no signer")

// Submit builds, signs, sends and confirms a transaction carrying ixs. Expired
// blockhashes and transport failures are retried; program errors are not.
func (c *Client) Submit(ctx context.Context, ixs ...solana.Instruction) (solana.Signature, error) {
	if len(c.signer) == 0 {
		return solana.Signature{}, ErrNoSigner
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxInterval = c.retryInterval * 10

	notify := func(err error, d time.Duration) {
		c.logger.Warn("Retrying transaction", zap.Error(err), zap.Duration("backoff", d))
	}

	op := func() (solana.Signature, error) {
		tx, err := c.signedTransaction(ctx, ixs)
		if err != nil {
			return solana.Signature{}, err
		}
		return c.sendAndConfirm(ctx, tx)
	}

	sig, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(notify))
	if err != nil {
		c.logger.Error("Transaction failed", zap.Error(err))
		return sig, err
	}
	c.logger.Info("Transaction confirmed", zap.String("signature", sig.String()))
	return sig, nil
}

func (c *Client) signedTransaction(ctx context.Context, ixs []solana.Instruction) (*solana.Transaction, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return nil, errors.New("empty blockhash response")
	}

	tx, err := solana.NewTransaction(ixs, res.Value.Blockhash, solana.TransactionPayer(c.signer.PublicKey()))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create transaction: %w", err))
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.signer.PublicKey()) {
			return &c.signer
		}
		return nil
	})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to sign transaction: %w", err))
	}
	return tx, nil
}

func (c *Client) sendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		decoded := DecodeError(err)
		if retryable(decoded) {
			return solana.Signature{}, decoded
		}
		return solana.Signature{}, backoff.Permanent(decoded)
	}
	// A sent transaction may still land, so confirmation failures are not
	// retried with a fresh blockhash.
	if err := c.confirm(ctx, sig); err != nil {
		return sig, backoff.Permanent(err)
	}
	return sig, nil
}

// confirm polls the signature until it reaches the client's commitment.
func (c *Client) confirm(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("confirmation of %s: %w", sig, ctx.Err())
		case <-ticker.C:
			statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return StatusError(status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}

// Initialize creates the configuration with the signer as admin.
func (c *Client) Initialize(ctx context.Context, fees, paperhandTaxBps uint16) (solana.Signature, error) {
	ix, err := c.builder.Initialize(c.Signer(), &instruction.Initialize{Fees: fees, PaperhandTaxBps: paperhandTaxBps})
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Submit(ctx, ix)
}

// UpdateConfiguration applies an admin update.
func (c *Client) UpdateConfiguration(ctx context.Context, update *instruction.UpdateConfiguration) (solana.Signature, error) {
	ix, err := c.builder.UpdateConfiguration(c.Signer(), update)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Submit(ctx, ix)
}

// Launch creates a token and its pool, paying the configured treasury.
func (c *Client) Launch(ctx context.Context, args *instruction.Launch) (solana.Signature, error) {
	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := c.builder.Launch(c.Signer(), cfg.Treasury, args)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Submit(ctx, ix)
}

// Buy spends solIn lamports on mint.
func (c *Client) Buy(ctx context.Context, mint solana.PublicKey, solIn, minTokensOut uint64) (solana.Signature, error) {
	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := c.builder.Buy(c.Signer(), mint, cfg.Treasury, &instruction.Buy{Amount: solIn, MinAmountOut: minTokensOut})
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Submit(ctx, ix)
}

// Sell sells tokensIn of mint.
func (c *Client) Sell(ctx context.Context, mint solana.PublicKey, tokensIn, minSolOut uint64) (solana.Signature, error) {
	cfg, err := c.FetchConfig(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	ix, err := c.builder.Sell(c.Signer(), mint, cfg.Treasury, &instruction.Sell{Amount: tokensIn, MinAmountOut: minSolOut})
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Submit(ctx, ix)
}

// Graduate cranks the graduation check for mint's pool.
func (c *Client) Graduate(ctx context.Context, mint solana.PublicKey) (solana.Signature, error) {
	ix, err := c.builder.Graduate(c.Signer(), mint)
	if err != nil {
		return solana.Signature{}, err
	}
	return c.Submit(ctx, ix)
}
