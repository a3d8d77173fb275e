package repo

import (
	"context"

	"github.com/hamed0406/ssping/internal/domain"
)

// ResultStore keeps probe results. Swap in any DB adapter.
type ResultStore interface {
	Append(ctx context.Context, r *domain.ProbeResult) error
	// Recent returns at most limit results, newest first.
	Recent(ctx context.Context, limit int) ([]domain.ProbeResult, error)
}
