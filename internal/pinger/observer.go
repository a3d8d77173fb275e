package pinger

import (
	"context"

	"go.uber.org/multierr"

	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/repo"
)

// Observer is told about every counted probe. It only ever sees copies of
// the loop's counters.
type Observer interface {
	Observe(ctx context.Context, r domain.ProbeResult, c domain.Counters) error
}

type ObserverFunc func(ctx context.Context, r domain.ProbeResult, c domain.Counters) error

func (f ObserverFunc) Observe(ctx context.Context, r domain.ProbeResult, c domain.Counters) error {
	return f(ctx, r, c)
}

// Observers fans out to every member and returns all their errors combined.
type Observers []Observer

func (m Observers) Observe(ctx context.Context, r domain.ProbeResult, c domain.Counters) error {
	var err error
	for _, o := range m {
		if o == nil {
			continue
		}
		err = multierr.Append(err, o.Observe(ctx, r, c))
	}
	return err
}

// StoreObserver appends each result to a repo.ResultStore.
type StoreObserver struct {
	Store repo.ResultStore
}

func (s StoreObserver) Observe(ctx context.Context, r domain.ProbeResult, _ domain.Counters) error {
	return s.Store.Append(ctx, &r)
}
