package httpapi

import (
	"context"
	"sync"

	"github.com/hamed0406/ssping/internal/domain"
)

// Board holds the latest counters of a run for the status API. It is fed
// by the probe loop as an observer.
type Board struct {
	mu      sync.RWMutex
	summary domain.RunSummary
}

func NewBoard(s domain.RunSummary) *Board {
	return &Board{summary: s}
}

func (b *Board) Observe(_ context.Context, _ domain.ProbeResult, c domain.Counters) error {
	b.mu.Lock()
	b.summary.Counters = c
	b.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current summary.
func (b *Board) Snapshot() domain.RunSummary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.summary
}
