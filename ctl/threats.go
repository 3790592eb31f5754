package ctl

import (
	"fmt"
	"strings"

	"github.com/agisfl/agisfl/proto"
)

// ThreatsOptions controls the threats command behavior.
type ThreatsOptions struct {
	JSON     bool
	Severity string // filter by severity (empty = all)
	Limit    int    // cap on rows shown (0 = all)
}

// Threats fetches the buffered threat events and prints them newest first.
func Threats(baseURL string, opts ThreatsOptions) error {
	var threats []proto.ThreatEvent
	if err := getJSON(baseURL, "/api/threats", &threats); err != nil {
		return err
	}

	if opts.Severity != "" {
		filtered := threats[:0]
		for _, t := range threats {
			if t.Severity == opts.Severity {
				filtered = append(filtered, t)
			}
		}
		threats = filtered
	}

	// Newest first for the terminal.
	for i, j := 0, len(threats)-1; i < j; i, j = i+1, j-1 {
		threats[i], threats[j] = threats[j], threats[i]
	}
	if opts.Limit > 0 && len(threats) > opts.Limit {
		threats = threats[:opts.Limit]
	}

	if opts.JSON {
		return printJSON(threats)
	}

	if len(threats) == 0 {
		fmt.Println()
		fmt.Println(colorize(dim, "  no threats recorded"))
		fmt.Println()
		return nil
	}

	fmt.Println()
	fmt.Println(header("  THREATS"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 70)))
	for _, t := range threats {
		fmt.Printf("  %s %s %s %s %s %s %.2f\n",
			colorize(dim, shortTime(t.DetectedAt)),
			colorize(severityColor(t.Severity), padRight(strings.ToUpper(t.Severity), 8)),
			padRight(t.Category, 18),
			padRight(t.SourceIP, 15),
			colorize(dim, "->"),
			padRight(t.TargetIP, 15),
			t.Score,
		)
	}
	fmt.Println()

	return nil
}
