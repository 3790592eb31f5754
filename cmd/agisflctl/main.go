// Agisflctl is the command-line client for a running agisfld instance.
// It queries the REST API and streams realtime channels over WebSocket.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/agisfl/agisfl/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "AgisFL daemon URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
	)

	// Stop parsing global flags at the first non-flag argument (the command
	// name), so subcommand-specific flags like --severity are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "discover":
		var timeoutSec int
		discFlags := pflag.NewFlagSet("discover", pflag.ContinueOnError)
		discFlags.IntVar(&timeoutSec, "timeout", 5, "Seconds to wait for an mDNS answer")
		_ = discFlags.Parse(subArgs)
		err = ctl.Discover(time.Duration(timeoutSec)*time.Second, *jsonOut)

	case "threats":
		opts := ctl.ThreatsOptions{JSON: *jsonOut}
		threatFlags := pflag.NewFlagSet("threats", pflag.ContinueOnError)
		threatFlags.StringVar(&opts.Severity, "severity", "", "Filter by severity (low, medium, high, critical)")
		threatFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of threats shown")
		_ = threatFlags.Parse(subArgs)
		err = ctl.Threats(*host, opts)

	case "incidents":
		err = ctl.Incidents(*host, *jsonOut)

	case "incident-create":
		var title, severity string
		incFlags := pflag.NewFlagSet("incident-create", pflag.ContinueOnError)
		incFlags.StringVar(&title, "title", "", "Incident title")
		incFlags.StringVar(&severity, "severity", "medium", "Incident severity")
		_ = incFlags.Parse(subArgs)
		if incFlags.NArg() > 0 && title == "" {
			title = incFlags.Arg(0)
		}
		err = ctl.CreateIncident(*host, title, severity, *jsonOut)

	case "incident-status":
		var status string
		stFlags := pflag.NewFlagSet("incident-status", pflag.ContinueOnError)
		stFlags.StringVar(&status, "status", "", "New status (open, investigating, resolved)")
		_ = stFlags.Parse(subArgs)
		id := ""
		if stFlags.NArg() > 0 {
			id = stFlags.Arg(0)
		}
		err = ctl.SetIncidentStatus(*host, id, status, *jsonOut)

	case "watch":
		opts := ctl.WatchOptions{JSON: *jsonOut, Reconnect: true}
		watchFlags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
		watchFlags.StringSliceVar(&opts.Channels, "channels", nil, "Channels to subscribe to (comma-separated)")
		noReconnect := watchFlags.Bool("no-reconnect", false, "Exit instead of reconnecting when the connection drops")
		_ = watchFlags.Parse(subArgs)
		opts.Reconnect = !*noReconnect
		err = ctl.Watch(*host, opts)

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  agisflctl — AgisFL realtime dashboard CLI

  USAGE
    agisflctl [flags] <command> [command-flags]

  COMMANDS (query)
    status              Show daemon uptime, sessions, and active channels
    health              Check daemon liveness
    discover            Find an agisfld instance on the LAN via mDNS
    threats             List recorded threat events
    incidents           List tracked incidents

  COMMANDS (control)
    incident-create     Raise a new incident
    incident-status     Transition an incident (open, investigating, resolved)

  COMMANDS (live)
    watch               Stream realtime channels (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text

  COMMAND FLAGS
    discover:
        --timeout SECS      Seconds to wait for an mDNS answer (default: 5)

    threats:
        --severity S        Filter by severity (low, medium, high, critical)
        --limit N           Limit number of threats shown

    incident-create:
        --title T           Incident title (or pass as positional argument)
        --severity S        Incident severity (default: medium)

    incident-status:
        --status S          New status (open, investigating, resolved)

    watch:
        --channels C1,C2    Channels to subscribe to (default: all)
        --no-reconnect      Exit instead of reconnecting on connection loss

`)
}
