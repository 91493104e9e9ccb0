package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"collatz-checker/internal/collatz"
	"collatz-checker/internal/store"
)

const snapshotTimeout = 30 * time.Second

// CheckResponse is returned by GET /check/{n}.
type CheckResponse struct {
	Start     uint64   `json:"start"`
	Converged bool     `json:"converged"`
	Overflow  bool     `json:"overflow,omitempty"`
	Trace     []uint64 `json:"trace"`
}

// MemoEntryResponse is returned by GET /memo/{n}.
type MemoEntryResponse struct {
	Value uint64 `json:"value"`
	Known bool   `json:"known"`
}

// MemoStatsResponse is returned by GET /memo.
type MemoStatsResponse struct {
	Size int `json:"size"`
}

// SnapshotResponse is returned by POST /memo/snapshot.
type SnapshotResponse struct {
	Saved int `json:"saved"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server answers convergence queries against a shared memo.
type Server struct {
	checker *collatz.Checker
	memo    *collatz.SyncSet
	store   store.Store
	logger  *zap.Logger
}

// NewServer creates a server. st may be nil, in which case snapshots are refused.
func NewServer(checker *collatz.Checker, memo *collatz.SyncSet, st store.Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		checker: checker,
		memo:    memo,
		store:   st,
		logger:  logger,
	}
}

// CheckValue runs one convergence check and merges the result into the memo.
func (s *Server) CheckValue(w http.ResponseWriter, r *http.Request, n uint64) {
	if n == 0 {
		writeError(w, http.StatusBadRequest, "Value must be a positive integer")
		return
	}
	if n > collatz.MaxStart {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Value must not exceed %d", collatz.MaxStart))
		return
	}

	result := s.checker.Walk(n, s.memo)
	writeJSON(w, http.StatusOK, CheckResponse{
		Start:     result.Start,
		Converged: result.Converged,
		Overflow:  result.Overflow,
		Trace:     result.Trace,
	})
}

// GetMemoEntry reports whether n is memoized.
func (s *Server) GetMemoEntry(w http.ResponseWriter, r *http.Request, n uint64) {
	if n == 0 {
		writeError(w, http.StatusBadRequest, "Value must be a positive integer")
		return
	}
	writeJSON(w, http.StatusOK, MemoEntryResponse{Value: n, Known: s.memo.Contains(n)})
}

// GetMemoStats returns the memo size.
func (s *Server) GetMemoStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MemoStatsResponse{Size: s.memo.Len()})
}

// SnapshotMemo persists the memo through the configured store.
func (s *Server) SnapshotMemo(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "No memo store configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()

	values := s.memo.Values()
	if err := store.SaveMemo(ctx, s.store, values, s.logger); err != nil {
		msg := "Failed to save memo"
		var se *store.Error
		if errors.As(err, &se) {
			msg += ": " + se.Kind.String()
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}

	writeJSON(w, http.StatusOK, SnapshotResponse{Saved: len(values)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
