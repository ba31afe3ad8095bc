package domain

import (
	"context"
	"fmt"
	"log"
	"time"
)

// requiredCalculationRuns is the number of consecutive successful
// calculation calls needed before a distribution may be finalized. The
// backend enforces equality across calls for the same epoch, so three
// agreeing runs prove the computation is repeatable before the irreversible
// finalize is issued.
const requiredCalculationRuns = 3

// CalculationState tracks the calculator's resolved target epoch and its
// progress through the repeat-run consistency gate. ConsistentRunCount only
// resets with a fresh worker.
type CalculationState struct {
	TargetEpoch        uint64
	ConsistentRunCount int
}

// CalculateWorker computes the distribution for the most recently closed
// epoch three consecutive times and finalizes it once all runs agree. Any
// resolution or calculation failure is a faulted stop; the periodic
// schedule is the retry mechanism.
type CalculateWorker struct {
	client   SettlementClient
	recorder RunRecorder
	logf     func(string, ...any)
	state    CalculationState
}

// NewCalculateWorker builds a calculator with an unresolved target epoch.
func NewCalculateWorker(client SettlementClient, recorder RunRecorder, logf func(string, ...any)) *CalculateWorker {
	if logf == nil {
		logf = log.Printf
	}
	return &CalculateWorker{client: client, recorder: recorder, logf: logf}
}

// State returns a copy of the worker's calculation state.
func (w *CalculateWorker) State() CalculationState {
	return w.state
}

// Run resolves the target epoch, passes the consistency gate, and
// finalizes. The live epoch is never calculated: the target is always the
// epoch before the ledger's current one. A finalize failure is logged but
// never faulted, since the confirmed calculation already stands and the
// next scheduled run finalizes again.
func (w *CalculateWorker) Run(ctx context.Context) error {
	current, err := w.client.CurrentEpoch(ctx)
	if err != nil {
		w.record(ctx, 0, "faulted", err.Error())
		return fmt.Errorf("resolve current epoch: %w", err)
	}
	if current == 0 {
		w.logf("calculate: no closed epoch before epoch 0")
		return nil
	}
	w.state.TargetEpoch = current - 1

	for w.state.ConsistentRunCount < requiredCalculationRuns {
		run := w.state.ConsistentRunCount + 1
		// Only the confirmed third run announces its result downstream.
		post := run == requiredCalculationRuns
		if err := w.client.CalculateDistribution(ctx, w.state.TargetEpoch, post); err != nil {
			w.record(ctx, w.state.TargetEpoch, "faulted", err.Error())
			return fmt.Errorf("calculate distribution for epoch %d (run %d): %w", w.state.TargetEpoch, run, err)
		}
		w.state.ConsistentRunCount = run
		w.logf("calculate: epoch %d run %d/%d succeeded", w.state.TargetEpoch, run, requiredCalculationRuns)
	}

	if err := w.client.FinalizeDistribution(ctx, w.state.TargetEpoch); err != nil {
		w.logf("finalize distribution for epoch %d: %v", w.state.TargetEpoch, err)
		w.record(ctx, w.state.TargetEpoch, "finalize_failed", err.Error())
		return nil
	}
	w.logf("finalized distribution for epoch %d", w.state.TargetEpoch)
	w.record(ctx, w.state.TargetEpoch, "finalized", "")
	return nil
}

func (w *CalculateWorker) record(ctx context.Context, epoch uint64, outcome, detail string) {
	if w.recorder == nil {
		return
	}
	err := w.recorder.RecordRun(ctx, Run{
		Worker:    WorkerCalculate,
		Epoch:     epoch,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		w.logf("calculate: record run: %v", err)
	}
}
