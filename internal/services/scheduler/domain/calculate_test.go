package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCalculateWorker_ThreeConsistentRunsThenFinalize(t *testing.T) {
	client := &fakeSettlementClient{}
	client.currentEpoch = func() (uint64, error) { return 100, nil }
	worker := NewCalculateWorker(client, nil, discardLogf)

	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("run calculator: %v", err)
	}

	wantCalls := []string{
		"currentEpoch()",
		"calculateDistribution(99,false)",
		"calculateDistribution(99,false)",
		"calculateDistribution(99,true)",
		"finalizeDistribution(99)",
	}
	gotCalls := client.callLog()
	if len(gotCalls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", gotCalls, wantCalls)
	}
	for i, want := range wantCalls {
		if gotCalls[i] != want {
			t.Fatalf("call %d = %q, want %q", i, gotCalls[i], want)
		}
	}

	state := worker.State()
	if state.TargetEpoch != 99 {
		t.Fatalf("target epoch = %d, want 99", state.TargetEpoch)
	}
	if state.ConsistentRunCount != requiredCalculationRuns {
		t.Fatalf("consistent runs = %d, want %d", state.ConsistentRunCount, requiredCalculationRuns)
	}
}

func TestCalculateWorker_EpochResolutionFailureFaults(t *testing.T) {
	client := &fakeSettlementClient{}
	client.currentEpoch = func() (uint64, error) { return 0, errors.New("ledger RPC unavailable") }
	worker := NewCalculateWorker(client, nil, discardLogf)

	err := worker.Run(context.Background())
	if err == nil {
		t.Fatal("expected faulted stop")
	}
	if !strings.Contains(err.Error(), "resolve current epoch") {
		t.Fatalf("error = %v, want resolve current epoch context", err)
	}
	for _, call := range client.callLog() {
		if strings.HasPrefix(call, "calculateDistribution") || strings.HasPrefix(call, "finalizeDistribution") {
			t.Fatalf("unexpected call after resolution failure: %s", call)
		}
	}
}

func TestCalculateWorker_CalculationFailureNeverFinalizes(t *testing.T) {
	client := &fakeSettlementClient{}
	client.currentEpoch = func() (uint64, error) { return 50, nil }
	runs := 0
	client.calculate = func(uint64, bool) error {
		runs++
		if runs == 2 {
			return errors.New("distribution results diverged")
		}
		return nil
	}
	worker := NewCalculateWorker(client, nil, discardLogf)

	err := worker.Run(context.Background())
	if err == nil {
		t.Fatal("expected faulted stop")
	}
	if runs != 2 {
		t.Fatalf("calculation runs = %d, want 2", runs)
	}
	for _, call := range client.callLog() {
		if strings.HasPrefix(call, "finalizeDistribution") {
			t.Fatal("finalize must not run after a failed calculation")
		}
	}
	if state := worker.State(); state.ConsistentRunCount != 1 {
		t.Fatalf("consistent runs = %d, want 1", state.ConsistentRunCount)
	}
}

func TestCalculateWorker_FinalizeFailureIsNotAFault(t *testing.T) {
	client := &fakeSettlementClient{}
	client.currentEpoch = func() (uint64, error) { return 8, nil }
	client.finalize = func(uint64) error { return errors.New("finalize rejected") }
	recorder := &fakeRecorder{}
	worker := NewCalculateWorker(client, recorder, discardLogf)

	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("run calculator: %v", err)
	}

	var finalizeCalls int
	for _, call := range client.callLog() {
		if strings.HasPrefix(call, "finalizeDistribution") {
			finalizeCalls++
		}
	}
	if finalizeCalls != 1 {
		t.Fatalf("finalize calls = %d, want 1", finalizeCalls)
	}

	runs := recorder.recorded()
	if len(runs) != 1 || runs[0].Outcome != "finalize_failed" {
		t.Fatalf("recorded runs = %+v, want one finalize_failed record", runs)
	}
}

func TestCalculateWorker_EpochZeroHasNoClosedEpoch(t *testing.T) {
	client := &fakeSettlementClient{}
	client.currentEpoch = func() (uint64, error) { return 0, nil }
	worker := NewCalculateWorker(client, nil, discardLogf)

	if err := worker.Run(context.Background()); err != nil {
		t.Fatalf("run calculator: %v", err)
	}
	if calls := client.callLog(); len(calls) != 1 || calls[0] != "currentEpoch()" {
		t.Fatalf("calls = %v, want only currentEpoch()", calls)
	}
}
