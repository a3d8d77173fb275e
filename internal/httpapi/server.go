package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hamed0406/ssping/internal/domain"
	"github.com/hamed0406/ssping/internal/repo"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

type Server struct {
	Logger  *zap.Logger
	Board   *Board
	Results repo.ResultStore
}

func NewServer(l *zap.Logger, b *Board, rs repo.ResultStore) *Server {
	if l == nil {
		l = zap.NewNop()
	}
	return &Server{Logger: l, Board: b, Results: rs}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/api/stats", s.handleStats)
	r.Get("/api/results", s.handleResults)

	return r
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Board.Snapshot())
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r.URL.Query().Get("limit"))
	if !ok {
		http.Error(w, "bad limit", http.StatusBadRequest)
		return
	}
	rs, err := s.Results.Recent(r.Context(), limit)
	if err != nil {
		s.Logger.Warn("results_query_failed", zap.Error(err))
		http.Error(w, "list error", http.StatusInternalServerError)
		return
	}
	if rs == nil {
		rs = []domain.ProbeResult{}
	}
	writeJSON(w, rs)
}

// parseLimit applies the default for an empty value and caps large ones.
func parseLimit(raw string) (int, bool) {
	if raw == "" {
		return defaultLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	if n > maxLimit {
		n = maxLimit
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
