package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seantiz/proofsched/internal/config"
	"github.com/seantiz/proofsched/internal/model"
)

func postExecution(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/v1/executions", "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST /v1/executions: %v", err)
	}
	return resp
}

func TestCreateExecutionGPU(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postExecution(t, ts.URL, `{"class":"bell","memory_mb":4000}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var exec model.Execution
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(exec.ID) != 26 {
		t.Errorf("ID length = %d, want 26", len(exec.ID))
	}
	if exec.Status != model.StatusCompleted {
		t.Errorf("Status = %q, want %q", exec.Status, model.StatusCompleted)
	}
	if exec.Path != model.PathGPU {
		t.Errorf("Path = %q, want %q", exec.Path, model.PathGPU)
	}
	if exec.Slot == nil || *exec.Slot != 0 {
		t.Errorf("Slot = %v, want 0", exec.Slot)
	}
}

func TestCreateExecutionAsync(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postExecution(t, ts.URL, `{"class":"cpu","async":true}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var exec model.Execution
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if exec.Status != model.StatusRunning {
		t.Errorf("Status = %q, want %q", exec.Status, model.StatusRunning)
	}

	srv.engine.Wait()

	get, err := http.Get(ts.URL + "/v1/executions/" + exec.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer get.Body.Close()

	var got model.Execution
	if err := json.NewDecoder(get.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("Status after Wait = %q, want %q", got.Status, model.StatusCompleted)
	}
}

func TestCreateExecutionNoCapacity(t *testing.T) {
	srv := newTestServerWith(t, config.MapSource{config.KeyDeviceMemory: "100"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postExecution(t, ts.URL, `{"class":"hash","memory_mb":10}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}

	var body rejectedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error == "" {
		t.Error("expected error message")
	}
	if body.Execution == nil || body.Execution.Status != model.StatusRejected {
		t.Errorf("execution = %+v, want rejected", body.Execution)
	}
}

func TestCreateExecutionFallbackToCPU(t *testing.T) {
	srv := newTestServerWith(t, config.MapSource{config.KeyDeviceMemory: "100"})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp := postExecution(t, ts.URL, `{"class":"hash","memory_mb":10,"cpu_eligible":true}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var exec model.Execution
	if err := json.NewDecoder(resp.Body).Decode(&exec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if exec.Path != model.PathCPU || !exec.Offloaded {
		t.Errorf("Path/Offloaded = %s/%v, want cpu/true", exec.Path, exec.Offloaded)
	}
}

func TestCreateExecutionBadRequests(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "not json"},
		{"missing class", `{"memory_mb":1}`},
		{"unknown class", `{"class":"gpu"}`},
		{"negative memory", `{"class":"bell","memory_mb":-5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postExecution(t, ts.URL, tt.body)
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
			var errResp map[string]string
			json.NewDecoder(resp.Body).Decode(&errResp)
			if errResp["error"] == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestGetExecutionNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/executions/" + model.NewID())
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetExecutionInvalidID(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/executions/not-a-ulid")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListExecutionsPagination(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for range 5 {
		resp := postExecution(t, ts.URL, `{"class":"cpu"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status = %d, want 201", resp.StatusCode)
		}
	}

	resp, err := http.Get(fmt.Sprintf("%s/v1/executions?limit=2&offset=1", ts.URL))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var list listExecutionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 5 {
		t.Errorf("total = %d, want 5", list.Total)
	}
	if len(list.Executions) != 2 {
		t.Errorf("len(executions) = %d, want 2", len(list.Executions))
	}
	if list.Limit != 2 || list.Offset != 1 {
		t.Errorf("limit/offset = %d/%d, want 2/1", list.Limit, list.Offset)
	}
}

func TestListExecutionsEmptyIsArray(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/executions?limit=500")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(raw["executions"]) != "[]" {
		t.Errorf("executions = %s, want []", raw["executions"])
	}
	if string(raw["limit"]) != "20" {
		t.Errorf("limit = %s, want 20", raw["limit"])
	}
}
