package domain

import (
	"context"
	"log"
	"time"
)

// InitializeWorker makes exactly one distribution initialization attempt per
// invocation. Failure is an expected outcome: distributions are usually
// already initialized by an earlier tick, so the worker logs and stops
// without escalating. Retry emerges only from the next scheduled invocation.
type InitializeWorker struct {
	client   SettlementClient
	recorder RunRecorder
	logf     func(string, ...any)
}

// NewInitializeWorker builds a single-shot initializer.
func NewInitializeWorker(client SettlementClient, recorder RunRecorder, logf func(string, ...any)) *InitializeWorker {
	if logf == nil {
		logf = log.Printf
	}
	return &InitializeWorker{client: client, recorder: recorder, logf: logf}
}

// Run attempts initialization once and always terminates cleanly.
func (w *InitializeWorker) Run(ctx context.Context) error {
	message, err := w.client.InitializeDistribution(ctx)
	if err != nil {
		w.logf("initialize distribution: %v", err)
		w.record(ctx, "skipped", err.Error())
		return nil
	}
	w.logf("initialize distribution: %s", message)
	w.record(ctx, "initialized", message)
	return nil
}

func (w *InitializeWorker) record(ctx context.Context, outcome, detail string) {
	if w.recorder == nil {
		return
	}
	err := w.recorder.RecordRun(ctx, Run{
		Worker:    WorkerInitialize,
		Outcome:   outcome,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		w.logf("initialize distribution: record run: %v", err)
	}
}
