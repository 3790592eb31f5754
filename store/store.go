// Package store keeps the dashboard's working set of threats and
// incidents in memory. It backs the REST API, the MCP tools, and the
// demo feed; nothing is persisted across restarts.
package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/agisfl/agisfl/proto"
)

// maxThreats caps the threat buffer; the oldest events are dropped first.
const maxThreats = 500

type Store struct {
	mu        sync.RWMutex
	threats   []proto.ThreatEvent
	incidents []proto.Incident
}

func New() *Store {
	return &Store{}
}

// AddThreat records a detected threat, filling in ID and DetectedAt when
// the detector left them empty, and returns the stored event.
func (s *Store) AddThreat(t proto.ThreatEvent) proto.ThreatEvent {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.DetectedAt == "" {
		t.DetectedAt = proto.NowTS()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.threats = append(s.threats, t)
	if len(s.threats) > maxThreats {
		s.threats = s.threats[len(s.threats)-maxThreats:]
	}
	return t
}

// Threats returns the buffered threat events, newest last.
func (s *Store) Threats() []proto.ThreatEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]proto.ThreatEvent, len(s.threats))
	copy(out, s.threats)
	return out
}

func (s *Store) ThreatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.threats)
}

// AddIncident records a new incident. ID, timestamps, and a default open
// status are filled in when missing.
func (s *Store) AddIncident(inc proto.Incident) proto.Incident {
	if inc.ID == "" {
		inc.ID = uuid.NewString()
	}
	if inc.Status == "" {
		inc.Status = proto.IncidentOpen
	}
	now := proto.NowTS()
	if inc.CreatedAt == "" {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	s.incidents = append(s.incidents, inc)
	return inc
}

func (s *Store) Incidents() []proto.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]proto.Incident, len(s.incidents))
	copy(out, s.incidents)
	return out
}

func (s *Store) Incident(id string) (proto.Incident, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inc := range s.incidents {
		if inc.ID == id {
			return inc, true
		}
	}
	return proto.Incident{}, false
}

// UpdateIncidentStatus transitions an incident and bumps its UpdatedAt.
func (s *Store) UpdateIncidentStatus(id, status string) (proto.Incident, error) {
	switch status {
	case proto.IncidentOpen, proto.IncidentInvestigating, proto.IncidentResolved:
	default:
		return proto.Incident{}, fmt.Errorf("unknown incident status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.incidents {
		if s.incidents[i].ID == id {
			s.incidents[i].Status = status
			s.incidents[i].UpdatedAt = proto.NowTS()
			return s.incidents[i], nil
		}
	}
	return proto.Incident{}, fmt.Errorf("incident %q not found", id)
}

// OpenIncidentCount counts incidents not yet resolved.
func (s *Store) OpenIncidentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, inc := range s.incidents {
		if inc.Status != proto.IncidentResolved {
			n++
		}
	}
	return n
}
