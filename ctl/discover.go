package ctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/agisfl/agisfl/client"
)

// Discover finds an agisfld instance on the local network via mDNS and
// prints how to reach it.
func Discover(timeout time.Duration, jsonOutput bool) error {
	server, err := client.Discover(timeout)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(server)
	}

	fmt.Println()
	fmt.Println(header("  DISCOVERED DAEMON"))
	fmt.Println(colorize(dim, "  "+strings.Repeat("─", 38)))
	fmt.Printf("  %-10s %s\n", colorize(dim, "Name:"), server.Name)
	fmt.Printf("  %-10s %s\n", colorize(dim, "URL:"), colorize(bold, server.BaseURL()))
	if len(server.TXTRecords) > 0 {
		fmt.Printf("  %-10s %s\n", colorize(dim, "Info:"), strings.Join(server.TXTRecords, ", "))
	}
	fmt.Println()
	fmt.Printf("  %s agisflctl -H %s status\n", colorize(dim, "try:"), server.BaseURL())
	fmt.Println()

	return nil
}
