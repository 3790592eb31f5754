package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agisfl/agisfl/proto"
)

// API serves the REST surface of the dashboard on the same router as the
// realtime endpoint. Writes through the API are also broadcast on the
// matching realtime channel so connected dashboards stay current.
type API struct {
	coord     *Coordinator
	startedAt time.Time
}

func NewAPI(coord *Coordinator) *API {
	return &API{coord: coord, startedAt: time.Now()}
}

// Mount registers the REST routes. Call before the transport starts.
func (a *API) Mount(r chi.Router) {
	r.Get("/health", a.handleHealth)
	r.Get("/api/status", a.handleStatus)
	r.Get("/api/threats", a.handleThreats)
	r.Get("/api/incidents", a.handleIncidents)
	r.Post("/api/incidents", a.handleCreateIncident)
	r.Patch("/api/incidents/{id}", a.handleUpdateIncident)
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *API) handleStatus(w http.ResponseWriter, _ *http.Request) {
	transports := make([]TransportMetadata, 0, len(a.coord.Transports))
	for _, t := range a.coord.Transports {
		transports = append(transports, t.Meta())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":           "agisfl-realtime",
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"sessions":       a.coord.Registry.Count(),
		"channels":       a.coord.Broker.Channels(),
		"threats":        a.coord.Store.ThreatCount(),
		"open_incidents": a.coord.Store.OpenIncidentCount(),
		"transports":     transports,
	})
}

func (a *API) handleThreats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.coord.Store.Threats())
}

func (a *API) handleIncidents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.coord.Store.Incidents())
}

func (a *API) handleCreateIncident(w http.ResponseWriter, r *http.Request) {
	var inc proto.Incident
	if err := json.NewDecoder(r.Body).Decode(&inc); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if inc.Title == "" {
		http.Error(w, "title required", http.StatusBadRequest)
		return
	}

	inc = a.coord.Store.AddIncident(inc)
	a.coord.Publish(proto.ChannelIncidents, inc)
	slog.Info("incident created", "id", inc.ID, "severity", inc.Severity)

	writeJSON(w, http.StatusCreated, inc)
}

func (a *API) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	switch body.Status {
	case proto.IncidentOpen, proto.IncidentInvestigating, proto.IncidentResolved:
	default:
		http.Error(w, "unknown incident status", http.StatusBadRequest)
		return
	}

	inc, err := a.coord.Store.UpdateIncidentStatus(id, body.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	a.coord.Publish(proto.ChannelIncidents, inc)

	writeJSON(w, http.StatusOK, inc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
