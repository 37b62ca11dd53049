package api

import "net/http"

type routeResponse struct {
	RouteToCPU bool `json:"route_to_cpu"`
}

// handleRoute asks the admission heuristic for a decision. The response is
// delayed by the heuristic's jitter.
func (s *Server) handleRoute(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, routeResponse{RouteToCPU: s.heuristic.ShouldRouteToCPU()})
}
