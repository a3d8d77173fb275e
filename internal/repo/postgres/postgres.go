package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)

// Schema is applied by EnsureSchema; safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS probe_results (
  id          BIGSERIAL PRIMARY KEY,
  run_id      TEXT NOT NULL,
  seq         BIGINT NOT NULL,
  target      TEXT NOT NULL,
  proxy       TEXT NOT NULL,
  up          BOOLEAN NOT NULL,
  http_status INTEGER NULL,
  latency_ms  DOUBLE PRECISION NOT NULL,
  reason      TEXT NOT NULL,
  checked_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_probe_results_checked_at ON probe_results (checked_at DESC);
CREATE INDEX IF NOT EXISTS idx_probe_results_run ON probe_results (run_id, seq);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Debug("pg_schema_ready")
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Append(ctx context.Context, r *domain.ProbeResult) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	var statusPtr *int
	if r.HTTPStatus != 0 {
		statusPtr = &r.HTTPStatus
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO probe_results
		   (run_id, seq, target, proxy, up, http_status, latency_ms, reason, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(r.RunID), int64(r.Seq), r.Target, r.Proxy, r.Up, statusPtr, r.LatencyMS, r.Reason, r.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]domain.ProbeResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT run_id, seq, target, proxy, up, http_status, latency_ms, reason, checked_at
  FROM probe_results
 ORDER BY checked_at DESC, id DESC
 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	defer rows.Close()

	var out []domain.ProbeResult
	for rows.Next() {
		var (
			r        domain.ProbeResult
			runID    string
			seq      int64
			httpNull sql.NullInt32
		)
		if err := rows.Scan(&runID, &seq, &r.Target, &r.Proxy, &r.Up, &httpNull, &r.LatencyMS, &r.Reason, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.RunID = domain.RunID(runID)
		r.Seq = uint64(seq)
		if httpNull.Valid {
			r.HTTPStatus = int(httpNull.Int32)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
