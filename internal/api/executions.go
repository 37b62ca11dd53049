package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/proofsched/internal/engine"
	"github.com/seantiz/proofsched/internal/model"
	"github.com/seantiz/proofsched/internal/store"
	"github.com/seantiz/proofsched/internal/workload"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// createExecutionRequest is the JSON body for POST /v1/executions.
type createExecutionRequest struct {
	Class       string `json:"class"`
	MemoryMB    int64  `json:"memory_mb"`
	CPUEligible bool   `json:"cpu_eligible"`
	Async       bool   `json:"async"`
}

// listExecutionsResponse wraps the paginated list response.
type listExecutionsResponse struct {
	Executions []*model.Execution `json:"executions"`
	Total      int                `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// rejectedResponse is returned with 409 when no device has room.
type rejectedResponse struct {
	Error     string           `json:"error"`
	Execution *model.Execution `json:"execution,omitempty"`
}

func (s *Server) handleCreateExecution(w http.ResponseWriter, r *http.Request) {
	var req createExecutionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Class == "" {
		s.writeError(w, http.StatusBadRequest, "class is required")
		return
	}
	class, err := workload.ParseClass(req.Class)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task := engine.Task{
		Class:       class,
		MemoryMB:    req.MemoryMB,
		CPUEligible: req.CPUEligible,
	}

	status := http.StatusCreated
	var exec *model.Execution
	if req.Async {
		status = http.StatusAccepted
		exec, err = s.engine.Submit(r.Context(), task)
	} else {
		exec, err = s.engine.Execute(r.Context(), task)
	}

	switch {
	case errors.Is(err, engine.ErrInvalidTask):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrNoCapacity):
		s.writeJSON(w, http.StatusConflict, rejectedResponse{Error: err.Error(), Execution: exec})
	case err != nil:
		s.logger.Error("create execution", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create execution")
	default:
		s.writeJSON(w, status, exec)
	}
}

func (s *Server) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidID(id) {
		s.writeError(w, http.StatusBadRequest, "invalid execution id")
		return
	}

	exec, err := s.store.GetExecution(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "execution not found")
		return
	}
	if err != nil {
		s.logger.Error("get execution", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get execution")
		return
	}

	s.writeJSON(w, http.StatusOK, exec)
}

func (s *Server) handleListExecutions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	executions, total, err := s.store.ListExecutions(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list executions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list executions")
		return
	}

	if executions == nil {
		executions = []*model.Execution{}
	}

	s.writeJSON(w, http.StatusOK, listExecutionsResponse{
		Executions: executions,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
