package domain

import (
	"context"
	"fmt"
	"log"
	"time"
)

const defaultSweepStepInterval = 10 * time.Millisecond

// SweepState tracks a single sweep's position and running totals. It is
// owned exclusively by its worker and rebuilt from the genesis epoch on
// every fresh sweep; the external ledger is the only durable source of
// truth.
type SweepState struct {
	GenesisEpoch           uint64
	CurrentEpoch           uint64
	TotalDebt              uint64
	TotalPaid              uint64
	InsufficientFundsCount uint64
}

// Summary snapshots the accumulated totals for notification.
func (s SweepState) Summary() DebtSummary {
	return DebtSummary{
		InsufficientFundsCount: s.InsufficientFundsCount,
		TotalDebt:              s.TotalDebt,
		TotalPaid:              s.TotalPaid,
	}
}

// SweepConfig controls one sweep worker instance.
type SweepConfig struct {
	GenesisEpoch uint64
	StepInterval time.Duration
	Recorder     RunRecorder
	Logf         func(string, ...any)
}

// SweepWorker walks epochs in order from genesis, paying validator debt one
// epoch at a time until the ledger signals that no further finalized
// distributions remain. The worker cannot know up front how many epochs
// exist; the backend's terminal failure is the only reliable stop signal.
type SweepWorker struct {
	client       SettlementClient
	notifier     Notifier
	recorder     RunRecorder
	stepInterval time.Duration
	logf         func(string, ...any)
	state        SweepState
}

// NewSweepWorker builds a sweep worker positioned at the genesis epoch.
func NewSweepWorker(client SettlementClient, notifier Notifier, cfg SweepConfig) *SweepWorker {
	stepInterval := cfg.StepInterval
	if stepInterval <= 0 {
		stepInterval = defaultSweepStepInterval
	}
	logf := cfg.Logf
	if logf == nil {
		logf = log.Printf
	}
	return &SweepWorker{
		client:       client,
		notifier:     notifier,
		recorder:     cfg.Recorder,
		stepInterval: stepInterval,
		logf:         logf,
		state: SweepState{
			GenesisEpoch: cfg.GenesisEpoch,
			CurrentEpoch: cfg.GenesisEpoch,
		},
	}
}

// State returns a copy of the worker's current sweep state.
func (w *SweepWorker) State() SweepState {
	return w.state
}

// Run drives the sweep until terminal exhaustion, an unexpected failure, or
// context cancellation. Steps are strictly sequential: epoch N+1 is never
// attempted before epoch N's response is observed.
func (w *SweepWorker) Run(ctx context.Context) error {
	timer := time.NewTimer(w.stepInterval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		done, err := w.step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		timer.Reset(w.stepInterval)
	}
}

// step pays the current epoch's debt and applies the outcome. A transient
// failure keeps the worker at the same epoch with totals untouched.
func (w *SweepWorker) step(ctx context.Context) (done bool, err error) {
	epoch := w.state.CurrentEpoch
	batch, err := w.client.PayDebt(ctx, epoch)
	if err == nil {
		w.state.TotalDebt += batch.TotalDebt
		w.state.TotalPaid += batch.TotalPaid
		w.state.InsufficientFundsCount += batch.InsufficientFundsCount
		w.state.CurrentEpoch = epoch + 1
		w.logf("sweep: paid epoch %d debt=%d paid=%d validators=%d", epoch, batch.TotalDebt, batch.TotalPaid, batch.TotalValidators)
		w.record(ctx, epoch, "paid", fmt.Sprintf("debt=%d paid=%d insufficient=%d", batch.TotalDebt, batch.TotalPaid, batch.InsufficientFundsCount))
		return false, nil
	}

	switch Classify(err) {
	case OutcomeRetryable:
		w.logf("sweep: retrying epoch %d: %v", epoch, err)
		return false, nil
	case OutcomeTerminal:
		w.logf("sweep: exhausted at epoch %d: %v", epoch, err)
		summary := w.state.Summary()
		if w.notifier != nil {
			if postErr := w.notifier.PostDebtSummary(ctx, summary); postErr != nil {
				w.logf("sweep: post debt summary: %v", postErr)
			}
		}
		w.record(ctx, epoch, "exhausted", fmt.Sprintf("debt=%d paid=%d insufficient=%d", summary.TotalDebt, summary.TotalPaid, summary.InsufficientFundsCount))
		return true, nil
	default:
		w.record(ctx, epoch, "faulted", err.Error())
		return false, fmt.Errorf("pay debt for epoch %d: %w", epoch, err)
	}
}

func (w *SweepWorker) record(ctx context.Context, epoch uint64, outcome, detail string) {
	if w.recorder == nil {
		return
	}
	err := w.recorder.RecordRun(ctx, Run{
		Worker:    WorkerSweep,
		Epoch:     epoch,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		w.logf("sweep: record run: %v", err)
	}
}
