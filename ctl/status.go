package ctl

import (
	"fmt"
	"strings"
	"time"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string   `json:"name"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Sessions      int      `json:"sessions"`
	Channels      []string `json:"channels"`
	Threats       int      `json:"threats"`
	OpenIncidents int      `json:"open_incidents"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(s)
	}

	uptime := formatDuration(time.Duration(s.UptimeSeconds) * time.Second)
	channels := strings.Join(s.Channels, ", ")
	if channels == "" {
		channels = colorize(dim, "(none)")
	}

	fmt.Println()
	fmt.Println(header("  AGISFL REALTIME STATUS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-16s %s\n", colorize(dim, "Daemon:"), s.Name)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Uptime:"), uptime)
	fmt.Printf("  %-16s %d\n", colorize(dim, "Sessions:"), s.Sessions)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Channels:"), channels)
	fmt.Printf("  %-16s %d\n", colorize(dim, "Threats:"), s.Threats)
	fmt.Printf("  %-16s %d\n", colorize(dim, "Open incidents:"), s.OpenIncidents)
	fmt.Printf("  %-16s %s\n", colorize(dim, "Host:"), baseURL)
	fmt.Println()

	return nil
}
