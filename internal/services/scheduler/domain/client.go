// Package domain implements the epoch settlement workers and their
// supervision: the per-epoch debt sweep, distribution initialization, and
// the calculate-and-finalize state machine.
package domain

import (
	"context"
	"time"
)

// Canonical worker names shared by supervision and run records.
const (
	WorkerSweep      = "debt-sweep"
	WorkerInitialize = "initialize-distribution"
	WorkerCalculate  = "calculate-distribution"
)

// DebtBatch is the result of paying one epoch's validator debt.
type DebtBatch struct {
	TotalDebt              uint64
	TotalPaid              uint64
	TotalValidators        uint64
	InsufficientFundsCount uint64
}

// DebtSummary is the accumulated sweep result posted once a sweep reaches
// the frontier of finalized distributions.
type DebtSummary struct {
	InsufficientFundsCount uint64
	TotalDebt              uint64
	TotalPaid              uint64
}

// SettlementClient performs the remote ledger operations the workers drive.
// Implementations must be safe for concurrent calls from independent
// workers and must surface backend failures with their message text intact,
// since Classify matches on that text.
type SettlementClient interface {
	PayDebt(ctx context.Context, epoch uint64) (DebtBatch, error)
	InitializeDistribution(ctx context.Context) (string, error)
	CalculateDistribution(ctx context.Context, epoch uint64, postToChannel bool) error
	FinalizeDistribution(ctx context.Context, epoch uint64) error
	CurrentEpoch(ctx context.Context) (uint64, error)
}

// Notifier receives the one-time debt summary at sweep exhaustion.
type Notifier interface {
	PostDebtSummary(ctx context.Context, summary DebtSummary) error
}

// Run is one worker lifecycle event handed to a RunRecorder.
type Run struct {
	Worker    string
	Epoch     uint64
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// RunRecorder receives worker lifecycle records for operator visibility.
// Recording must never influence worker behavior: workers log and ignore
// recorder failures.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}
