package api

import (
	"net/http"

	"github.com/seantiz/proofsched/internal/config"
)

type settingsResponse struct {
	config.Snapshot
	WaitGPUMS      int64 `json:"wait_gpu_ms"`
	WaitFactSealMS int64 `json:"wait_fact_seal_ms"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, settingsResponse{
		Snapshot:       s.settings.Snapshot(),
		WaitGPUMS:      config.WaitGPU.Milliseconds(),
		WaitFactSealMS: config.WaitFactSeal.Milliseconds(),
	})
}

func (s *Server) handleListRunners(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.runners.List())
}
