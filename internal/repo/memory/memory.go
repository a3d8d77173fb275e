package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hamed0406/ssping/internal/domain"
)

const DefaultCapacity = 256

// Store keeps the most recent results in a fixed-size ring.
type Store struct {
	mu      sync.RWMutex
	results []domain.ProbeResult
	next    int
	full    bool
}

func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{results: make([]domain.ProbeResult, capacity)}
}

func (m *Store) Append(ctx context.Context, r *domain.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	m.results[m.next] = *r
	m.next = (m.next + 1) % len(m.results)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

func (m *Store) Recent(ctx context.Context, limit int) ([]domain.ProbeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.next
	if m.full {
		n = len(m.results)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.ProbeResult, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (m.next - i + len(m.results)) % len(m.results)
		out = append(out, m.results[idx])
	}
	return out, nil
}
