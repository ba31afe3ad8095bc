package domain

import (
	"context"
	"fmt"
	"sync"
)

// fakeSettlementClient scripts settlement backend behavior per operation and
// records the observed call sequence.
type fakeSettlementClient struct {
	mu           sync.Mutex
	payDebt      func(epoch uint64) (DebtBatch, error)
	initialize   func() (string, error)
	calculate    func(epoch uint64, postToChannel bool) error
	finalize     func(epoch uint64) error
	currentEpoch func() (uint64, error)
	calls        []string
}

func (c *fakeSettlementClient) recordCall(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *fakeSettlementClient) callLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeSettlementClient) PayDebt(_ context.Context, epoch uint64) (DebtBatch, error) {
	c.recordCall(fmt.Sprintf("payDebt(%d)", epoch))
	if c.payDebt == nil {
		return DebtBatch{}, nil
	}
	return c.payDebt(epoch)
}

func (c *fakeSettlementClient) InitializeDistribution(context.Context) (string, error) {
	c.recordCall("initializeDistribution()")
	if c.initialize == nil {
		return "", nil
	}
	return c.initialize()
}

func (c *fakeSettlementClient) CalculateDistribution(_ context.Context, epoch uint64, postToChannel bool) error {
	c.recordCall(fmt.Sprintf("calculateDistribution(%d,%t)", epoch, postToChannel))
	if c.calculate == nil {
		return nil
	}
	return c.calculate(epoch, postToChannel)
}

func (c *fakeSettlementClient) FinalizeDistribution(_ context.Context, epoch uint64) error {
	c.recordCall(fmt.Sprintf("finalizeDistribution(%d)", epoch))
	if c.finalize == nil {
		return nil
	}
	return c.finalize(epoch)
}

func (c *fakeSettlementClient) CurrentEpoch(context.Context) (uint64, error) {
	c.recordCall("currentEpoch()")
	if c.currentEpoch == nil {
		return 0, nil
	}
	return c.currentEpoch()
}

type fakeNotifier struct {
	mu        sync.Mutex
	summaries []DebtSummary
	err       error
}

func (n *fakeNotifier) PostDebtSummary(_ context.Context, summary DebtSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return n.err
}

func (n *fakeNotifier) posted() []DebtSummary {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]DebtSummary(nil), n.summaries...)
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func (r *fakeRecorder) RecordRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRecorder) recorded() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Run(nil), r.runs...)
}

func discardLogf(string, ...any) {}
