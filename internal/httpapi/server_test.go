package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/repo/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, *domain.ProbeResult) error { return nil }
func (failingStore) Recent(context.Context, int) ([]domain.ProbeResult, error) {
	return nil, errors.New("db down")
}

var started = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, n int) (*Server, *Board) {
	t.Helper()
	board := NewBoard(domain.RunSummary{RunID: "R1", Target: "www.google.com", Proxy: "203.0.113.9", StartedAt: started})
	store := memory.New(2000)
	var c domain.Counters
	for i := 1; i <= n; i++ {
		up := i%2 == 1
		c.Record(up)
		r := domain.ProbeResult{RunID: "R1", Seq: uint64(i), Up: up, CheckedAt: started}
		require.NoError(t, store.Append(context.Background(), &r))
		require.NoError(t, board.Observe(context.Background(), r, c))
	}
	return NewServer(nil, board, store), board
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, 0)
	rr := get(t, s.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestStats_Shape(t *testing.T) {
	s, _ := newTestServer(t, 3)
	rr := get(t, s.Router(), "/api/stats")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "www.google.com", body["target"])
	assert.Equal(t, "203.0.113.9", body["proxy"])
	assert.Equal(t, float64(3), body["total"])
	assert.Equal(t, float64(2), body["success"])
	assert.Equal(t, float64(1), body["error"])
	assert.Equal(t, "2024-05-01T12:00:00Z", body["started_at"])
}

func TestResults_DefaultLimitNewestFirst(t *testing.T) {
	s, _ := newTestServer(t, 60)
	rr := get(t, s.Router(), "/api/results")
	require.Equal(t, http.StatusOK, rr.Code)

	var rs []domain.ProbeResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rs))
	require.Len(t, rs, defaultLimit)
	assert.Equal(t, uint64(60), rs[0].Seq)
}

func TestResults_Limits(t *testing.T) {
	s, _ := newTestServer(t, 1200)
	h := s.Router()

	var rs []domain.ProbeResult
	rr := get(t, h, "/api/results?limit=3")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rs))
	assert.Len(t, rs, 3)

	rr = get(t, h, "/api/results?limit=5000")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rs))
	assert.Len(t, rs, maxLimit)

	for _, bad := range []string{"0", "-1", "x"} {
		assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/results?limit="+bad).Code, bad)
	}
}

func TestResults_EmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t, 0)
	rr := get(t, s.Router(), "/api/results")
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestResults_StoreError(t *testing.T) {
	s := NewServer(nil, NewBoard(domain.RunSummary{}), failingStore{})
	assert.Equal(t, http.StatusInternalServerError, get(t, s.Router(), "/api/results").Code)
}

func TestCORS_AllowsAnyOrigin(t *testing.T) {
	s, _ := newTestServer(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "http://example.com")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBoard_SnapshotIsCopy(t *testing.T) {
	_, b := newTestServer(t, 2)
	snap := b.Snapshot()
	snap.Total = 99
	assert.Equal(t, uint64(2), b.Snapshot().Total)
}
