package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/proofsched/internal/workload"
)

type classesResponse struct {
	Running     map[string]int64 `json:"running"`
	CPUBusy     bool             `json:"cpu_busy"`
	HashBusy    bool             `json:"hash_busy"`
	PendingBell int64            `json:"pending_bell"`
}

type classCountResponse struct {
	Class   string `json:"class"`
	Running int64  `json:"running"`
}

func (s *Server) handleListClasses(w http.ResponseWriter, _ *http.Request) {
	counters := s.tracker.Counters()
	running := make(map[string]int64, len(workload.Classes()))
	for _, c := range workload.Classes() {
		running[c.String()] = counters.Running(c)
	}

	s.writeJSON(w, http.StatusOK, classesResponse{
		Running:     running,
		CPUBusy:     s.tracker.CPUBusy(),
		HashBusy:    s.tracker.HashBusy(),
		PendingBell: s.tracker.PendingBell(),
	})
}

func (s *Server) handleStartClass(w http.ResponseWriter, r *http.Request) {
	s.adjustClass(w, r, s.tracker.Start)
}

func (s *Server) handleFinishClass(w http.ResponseWriter, r *http.Request) {
	s.adjustClass(w, r, s.tracker.Finish)
}

func (s *Server) adjustClass(w http.ResponseWriter, r *http.Request, adjust func(workload.Class)) {
	class, err := workload.ParseClass(chi.URLParam(r, "class"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	adjust(class)
	s.writeJSON(w, http.StatusOK, classCountResponse{
		Class:   class.String(),
		Running: s.tracker.Counters().Running(class),
	})
}
