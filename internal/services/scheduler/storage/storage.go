package storage

import (
	"context"
	"time"
)

// RunRecord is one durable worker lifecycle record. Records exist for
// operator inspection only; workers never read them back, so losing the
// store cannot affect settlement correctness.
type RunRecord struct {
	ID        int64
	Worker    string
	Epoch     uint64
	Outcome   string
	Detail    string
	CreatedAt time.Time
}

// RunStore persists worker run records.
type RunStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
