// ABOUTME: HTTP boundary exposing sync operations as a JSON API
// ABOUTME: Uniform {success, data|error} responses; rate limits map to 429
package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/harperreed/leadsync/apollo"
	"github.com/harperreed/leadsync/db"
	"github.com/harperreed/leadsync/models"
	"github.com/harperreed/leadsync/sync"
	"github.com/harperreed/leadsync/zoho"
)

// Syncer is the runner slice the server drives.
type Syncer interface {
	Run(ctx context.Context, query apollo.SearchQuery, opts sync.BatchOptions, progress sync.Progress) (models.BatchSummary, error)
	RunPeople(ctx context.Context, people []models.ApolloPerson, opts sync.BatchOptions, progress sync.Progress) models.BatchSummary
}

// TokenStatus is the token manager slice the status endpoint reads.
type TokenStatus interface {
	Valid() (bool, time.Time)
}

// Server serves the sync API.
type Server struct {
	runner   Syncer
	tokens   TokenStatus
	database *sql.DB
}

// NewServer wires the API over runner. database may be nil.
func NewServer(runner Syncer, tokens TokenStatus, database *sql.DB) *Server {
	return &Server{runner: runner, tokens: tokens, database: database}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sync", s.handleSync)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Start blocks serving on addr.
func (s *Server) Start(addr string) error {
	log.Printf("leadsync API listening on %s", addr)
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // batch runs block the response
	}
	return server.ListenAndServe()
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type syncRequest struct {
	Query             *apollo.SearchQuery   `json:"query,omitempty"`
	People            []models.ApolloPerson `json:"people,omitempty"`
	BatchSize         int                   `json:"batch_size,omitempty"`
	InterBatchDelayMS int                   `json:"inter_batch_delay_ms,omitempty"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	opts := sync.BatchOptions{
		BatchSize:       req.BatchSize,
		InterBatchDelay: time.Duration(req.InterBatchDelayMS) * time.Millisecond,
	}

	var summary models.BatchSummary
	if len(req.People) > 0 {
		summary = s.runner.RunPeople(r.Context(), req.People, opts, nil)
	} else if req.Query != nil {
		var err error
		summary, err = s.runner.Run(r.Context(), *req.Query, opts, nil)
		if err != nil {
			writeError(w, classifyStatus(err), err)
			return
		}
	} else {
		writeError(w, http.StatusBadRequest, errors.New("request needs either query or people"))
		return
	}

	// Per-record failures live inside the summary; the batch itself succeeded
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: summary})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}

	valid, expiry := s.tokens.Valid()
	status := map[string]any{
		"token_valid": valid,
	}
	if valid {
		status["token_expiry"] = expiry.Format(time.RFC3339)
	}

	if s.database != nil {
		state, err := db.GetSyncState(s.database, sync.ServiceApollo)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if state != nil {
			status["sync_state"] = state
		}
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Data: status})
}

// classifyStatus maps the error taxonomy onto HTTP status codes so a
// throttle is distinguishable from a hard failure.
func classifyStatus(err error) int {
	if zoho.IsRateLimited(err) {
		return http.StatusTooManyRequests
	}
	var apiErr *zoho.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, apiResponse{Success: false, Error: err.Error()})
}
