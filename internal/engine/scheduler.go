package engine

import (
	"context"
	"errors"
	"fmt"

	"mailstack/internal/data"
	"mailstack/internal/fetcher"
)

type Scheduler struct {
	fetcher     *fetcher.Fetcher
	concurrency int
}

func NewScheduler(f *fetcher.Fetcher, concurrency int) (*Scheduler, error) {
	if f == nil {
		return nil, errors.New("fetcher is nil")
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be >= 1, got %d", concurrency)
	}
	return &Scheduler{fetcher: f, concurrency: concurrency}, nil
}

// Execute gathers every fact the plan needs. Per-fact failures are recorded on
// ExecutionResult.DepErrs; the returned error is reserved for a nil plan or a
// canceled context.
func (s *Scheduler) Execute(ctx context.Context, plan *Plan) (ExecutionResult, error) {
	if ctx == nil {
		return ExecutionResult{}, errors.New("context is nil")
	}
	if plan == nil {
		return ExecutionResult{}, errors.New("plan is nil")
	}
	if s == nil || s.fetcher == nil {
		return ExecutionResult{}, errors.New("scheduler fetcher is nil")
	}

	values, depErrs := s.fetcher.Gather(ctx, plan.SortedDependencies(), s.concurrency)
	res := ExecutionResult{
		Data:    data.NewMapDataContext(values),
		DepErrs: depErrs,
	}
	return res, ctx.Err()
}
