package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type deviceStatus struct {
	Slot       int   `json:"slot"`
	DeviceID   int   `json:"device_id"`
	ConsumedMB int64 `json:"consumed_mb"`
	Overloaded bool  `json:"overloaded"`
}

type listDevicesResponse struct {
	CapacityMB int64          `json:"capacity_mb"`
	Devices    []deviceStatus `json:"devices"`
}

type reserveRequest struct {
	MemoryMB *int64 `json:"memory_mb"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	reg := s.selector.Registry()
	ids := reg.DeviceIDs()
	consumed := reg.ConsumedMemory()

	devices := make([]deviceStatus, len(ids))
	for slot := range ids {
		devices[slot] = deviceStatus{
			Slot:       slot,
			DeviceID:   ids[slot],
			ConsumedMB: consumed[slot],
			Overloaded: s.selector.Overloaded(slot),
		}
	}

	s.writeJSON(w, http.StatusOK, listDevicesResponse{
		CapacityMB: s.settings.DeviceMemory(),
		Devices:    devices,
	})
}

// handleReserve reserves memory on the least-loaded device. A failed
// reservation answers 409 with the contended slot.
func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MemoryMB == nil {
		s.writeError(w, http.StatusBadRequest, "memory_mb is required")
		return
	}

	res := s.selector.Reserve(*req.MemoryMB)
	if !res.OK {
		s.writeJSON(w, http.StatusConflict, res)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

// handleRelease returns memory_mb to the slot. Out-of-range slots are rejected
// here because the selector does not bounds-check.
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	slot, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || slot < 0 || slot >= s.selector.Registry().Len() {
		s.writeError(w, http.StatusNotFound, "device slot not found")
		return
	}

	amount, err := strconv.ParseInt(r.URL.Query().Get("memory_mb"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "memory_mb query parameter is required")
		return
	}

	s.selector.Release(slot, amount)

	reg := s.selector.Registry()
	s.writeJSON(w, http.StatusOK, deviceStatus{
		Slot:       slot,
		DeviceID:   reg.DeviceID(slot),
		ConsumedMB: reg.Consumed(slot),
		Overloaded: s.selector.Overloaded(slot),
	})
}
