package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agisfl/agisfl/proto"
	"github.com/agisfl/agisfl/store"
)

func newTestAPI(t *testing.T) (*Coordinator, string) {
	t.Helper()

	srv := New(Options{Store: store.New()})
	transport := NewWSTransport("127.0.0.1:0")
	srv.RegisterTransport(transport)

	api := NewAPI(srv.Coordinator())
	api.Mount(transport.Router())

	ts := httptest.NewServer(transport.Router())
	t.Cleanup(ts.Close)

	return srv.Coordinator(), ts.URL
}

func TestAPI_Health(t *testing.T) {
	_, baseURL := newTestAPI(t)

	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAPI_Status(t *testing.T) {
	coord, baseURL := newTestAPI(t)
	coord.Store.AddThreat(proto.ThreatEvent{Category: "dos"})

	resp, err := http.Get(baseURL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	var status struct {
		Name     string `json:"name"`
		Sessions int    `json:"sessions"`
		Threats  int    `json:"threats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Name != "agisfl-realtime" {
		t.Errorf("unexpected name %q", status.Name)
	}
	if status.Threats != 1 {
		t.Errorf("expected 1 threat, got %d", status.Threats)
	}
}

func TestAPI_CreateAndUpdateIncident(t *testing.T) {
	_, baseURL := newTestAPI(t)

	body := `{"title":"brute force from 203.0.113.9","severity":"high"}`
	resp, err := http.Post(baseURL+"/api/incidents", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/incidents: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var inc proto.Incident
	if err := json.NewDecoder(resp.Body).Decode(&inc); err != nil {
		t.Fatalf("decoding incident: %v", err)
	}
	if inc.ID == "" {
		t.Error("expected server-assigned incident ID")
	}
	if inc.Status != proto.IncidentOpen {
		t.Errorf("expected default status open, got %q", inc.Status)
	}

	req, err := http.NewRequest(http.MethodPatch, baseURL+"/api/incidents/"+inc.ID,
		strings.NewReader(`{"status":"resolved"}`))
	if err != nil {
		t.Fatalf("building PATCH: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	patchResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH incident: %v", err)
	}
	defer patchResp.Body.Close()

	if patchResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", patchResp.StatusCode)
	}

	var updated proto.Incident
	if err := json.NewDecoder(patchResp.Body).Decode(&updated); err != nil {
		t.Fatalf("decoding updated incident: %v", err)
	}
	if updated.Status != proto.IncidentResolved {
		t.Errorf("expected resolved, got %q", updated.Status)
	}
}

func TestAPI_CreateIncidentRejectsBadInput(t *testing.T) {
	_, baseURL := newTestAPI(t)

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{nope`},
		{"missing title", `{"severity":"low"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(baseURL+"/api/incidents", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestAPI_UpdateUnknownIncident(t *testing.T) {
	_, baseURL := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPatch, baseURL+"/api/incidents/nope",
		strings.NewReader(`{"status":"resolved"}`))
	if err != nil {
		t.Fatalf("building PATCH: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}
