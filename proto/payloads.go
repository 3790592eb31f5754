package proto

// Typed payloads carried in the Data field of dashboard_update frames.
// These mirror what the dashboard UI renders per channel.

// ThreatEvent is a single detection published on the "threats" channel.
type ThreatEvent struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"` // e.g. "port_scan", "brute_force"
	Severity   string  `json:"severity"` // low | medium | high | critical
	SourceIP   string  `json:"source_ip"`
	TargetIP   string  `json:"target_ip"`
	Score      float64 `json:"score"` // detector confidence, 0..1
	DetectedAt string  `json:"detected_at"`
}

// Incident is a tracked security incident, published on "incidents" and
// served over the REST API.
type Incident struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Severity  string `json:"severity"`
	Status    string `json:"status"` // open | investigating | resolved
	ThreatID  string `json:"threat_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Incident status values.
const (
	IncidentOpen          = "open"
	IncidentInvestigating = "investigating"
	IncidentResolved      = "resolved"
)

// SystemMetrics is a host metrics sample published on "system_metrics".
// The field set matches the original stream agent.
type SystemMetrics struct {
	Hostname      string  `json:"hostname"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	BytesSent     uint64  `json:"bytes_sent"`
	BytesRecv     uint64  `json:"bytes_recv"`
	Timestamp     string  `json:"timestamp"`
}

// FLRound reports simulated federated-learning training progress on
// "fl_rounds". Training itself is out of scope; only the metrics stream
// the dashboard displays is produced.
type FLRound struct {
	Round        int     `json:"round"`
	Accuracy     float64 `json:"accuracy"`
	Loss         float64 `json:"loss"`
	Participants int     `json:"participants"`
	Timestamp    string  `json:"timestamp"`
}
