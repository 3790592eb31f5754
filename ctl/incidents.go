package ctl

import (
	"fmt"
	"strings"

	"github.com/agisfl/agisfl/proto"
)

// Incidents fetches the incident list and prints it.
func Incidents(baseURL string, jsonOutput bool) error {
	var incidents []proto.Incident
	if err := getJSON(baseURL, "/api/incidents", &incidents); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(incidents)
	}

	if len(incidents) == 0 {
		fmt.Println()
		fmt.Println(colorize(dim, "  no incidents"))
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Println(header("  INCIDENTS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 70)))
	for _, inc := range incidents {
		fmt.Printf("  %s %s %s %s %s\n",
			colorize(dim, shortTime(inc.CreatedAt)),
			colorize(severityColor(inc.Severity), padRight(strings.ToUpper(inc.Severity), 8)),
			colorize(statusColor(inc.Status), padRight(inc.Status, 15)),
			colorize(dim, inc.ID[:8]),
			inc.Title,
		)
	}
	fmt.Println()

	return nil
}

// CreateIncident raises a new incident through the REST API.
func CreateIncident(baseURL, title, severity string, jsonOutput bool) error {
	if title == "" {
		return fmt.Errorf("incident title required")
	}
	if severity == "" {
		severity = "medium"
	}

	var inc proto.Incident
	body := proto.Incident{Title: title, Severity: severity}
	if err := postJSON(baseURL, "/api/incidents", body, &inc); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(inc)
	}

	fmt.Printf("  created incident %s\n", colorize(bold, inc.ID))
	return nil
}

// SetIncidentStatus transitions an incident through the REST API.
func SetIncidentStatus(baseURL, id, status string, jsonOutput bool) error {
	if id == "" {
		return fmt.Errorf("incident id required")
	}

	var inc proto.Incident
	body := map[string]string{"status": status}
	if err := patchJSON(baseURL, "/api/incidents/"+id, body, &inc); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(inc)
	}

	fmt.Printf("  incident %s is now %s\n", colorize(dim, inc.ID[:8]), statusLabel(inc.Status))
	return nil
}

func statusLabel(status string) string {
	return colorize(statusColor(status), status)
}

func statusColor(status string) string {
	if !colorEnabled() {
		return ""
	}
	switch status {
	case proto.IncidentOpen:
		return red
	case proto.IncidentInvestigating:
		return yellow
	case proto.IncidentResolved:
		return green
	default:
		return white
	}
}
