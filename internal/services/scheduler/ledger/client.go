// Package ledger implements the settlement client against the DoubleZero
// ledger and Solana RPC endpoints.
package ledger

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/RedaRahmani/doublezero-offchain/internal/platform/jsonrpc"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/domain"
)

// Client drives settlement operations over two JSON-RPC connections: epoch
// bookkeeping lives on the DoubleZero ledger RPC, transaction submission on
// the Solana RPC. Both connections are stateless across calls, so the
// client is safe for concurrent use by independent workers.
type Client struct {
	ledger *jsonrpc.Client
	solana *jsonrpc.Client
	logf   func(string, ...any)
}

// New builds a settlement client for the given RPC endpoints. A nil
// httpClient uses the shared RPC defaults.
func New(ledgerRPC, solanaRPC string, httpClient *http.Client, logf func(string, ...any)) (*Client, error) {
	ledgerClient, err := jsonrpc.NewClient(ledgerRPC, httpClient)
	if err != nil {
		return nil, fmt.Errorf("ledger RPC: %w", err)
	}
	solanaClient, err := jsonrpc.NewClient(solanaRPC, httpClient)
	if err != nil {
		return nil, fmt.Errorf("solana RPC: %w", err)
	}
	if logf == nil {
		logf = log.Printf
	}
	return &Client{ledger: ledgerClient, solana: solanaClient, logf: logf}, nil
}

type epochInfo struct {
	Epoch uint64 `json:"epoch"`
}

// CurrentEpoch fetches the ledger's live epoch.
func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	var info epochInfo
	if err := c.ledger.Call(ctx, "getEpochInfo", []any{}, &info); err != nil {
		return 0, err
	}
	return info.Epoch, nil
}

type debtCollection struct {
	TotalDebt              uint64 `json:"totalDebt"`
	TotalPaid              uint64 `json:"totalPaid"`
	TotalValidators        uint64 `json:"totalValidators"`
	InsufficientFundsCount uint64 `json:"insufficientFundsCount"`
}

// PayDebt settles one epoch's validator debt and returns the collection
// totals. Backend failures keep their message text intact for outcome
// classification.
func (c *Client) PayDebt(ctx context.Context, epoch uint64) (domain.DebtBatch, error) {
	var collection debtCollection
	if err := c.solana.Call(ctx, "payValidatorDebt", []any{epoch}, &collection); err != nil {
		return domain.DebtBatch{}, err
	}
	return domain.DebtBatch{
		TotalDebt:              collection.TotalDebt,
		TotalPaid:              collection.TotalPaid,
		TotalValidators:        collection.TotalValidators,
		InsufficientFundsCount: collection.InsufficientFundsCount,
	}, nil
}

// InitializeDistribution opens the distribution for the next closed epoch.
func (c *Client) InitializeDistribution(ctx context.Context) (string, error) {
	var message string
	if err := c.solana.Call(ctx, "initializeDistribution", []any{}, &message); err != nil {
		return "", err
	}
	return message, nil
}

// CalculateDistribution computes the distribution for epoch. The backend
// compares the result against earlier runs for the same epoch and fails
// when they diverge; postToChannel marks the run whose result it announces.
func (c *Client) CalculateDistribution(ctx context.Context, epoch uint64, postToChannel bool) error {
	return c.solana.Call(ctx, "calculateDistribution", []any{epoch, postToChannel}, nil)
}

// FinalizeDistribution makes the calculated distribution for epoch
// authoritative.
func (c *Client) FinalizeDistribution(ctx context.Context, epoch uint64) error {
	return c.solana.Call(ctx, "finalizeDistribution", []any{epoch}, nil)
}

// WaitReady blocks until the ledger RPC answers an epoch query, retrying
// with exponential backoff for at most maxElapsed.
func (c *Client) WaitReady(ctx context.Context, maxElapsed time.Duration) error {
	_, err := backoff.Retry(ctx,
		func() (uint64, error) { return c.CurrentEpoch(ctx) },
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logf("waiting for ledger RPC %s: %v (next attempt in %s)", c.ledger.Endpoint(), err, next)
		}),
	)
	if err != nil {
		return fmt.Errorf("wait for ledger RPC %s: %w", c.ledger.Endpoint(), err)
	}
	return nil
}

var _ domain.SettlementClient = (*Client)(nil)
