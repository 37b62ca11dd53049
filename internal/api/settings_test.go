package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/proofsched/internal/backend"
	"github.com/seantiz/proofsched/internal/config"
)

func TestGetSettings(t *testing.T) {
	srv := newTestServerWith(t, config.MapSource{
		config.KeyNoCustom:       "true",
		config.KeyProvingThreads: "9",
	})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/settings")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body settingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.GPUHash || body.GPUBell {
		t.Errorf("gpu_hash/gpu_bell = %v/%v, want false with no_custom", body.GPUHash, body.GPUBell)
	}
	if body.MaxBellGPUThreads != 3 {
		t.Errorf("max_bell_gpu_threads = %d, want 3", body.MaxBellGPUThreads)
	}
	if body.WaitGPUMS != 1000 || body.WaitFactSealMS != 10 {
		t.Errorf("wait = %d/%d, want 1000/10", body.WaitGPUMS, body.WaitFactSealMS)
	}
	if len(body.DeviceList) != 4 {
		t.Errorf("device_list = %v, want default of 4", body.DeviceList)
	}
}

func TestListRunners(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/runners")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var infos []backend.RunnerInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 2 || infos[0].Path != "cpu" || infos[1].Path != "gpu" {
		t.Errorf("runners = %+v, want cpu and gpu", infos)
	}
}
