package ctl

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agisfl/agisfl/client"
	"github.com/agisfl/agisfl/proto"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Channels  []string // channels to subscribe to (empty = all)
	JSON      bool     // output raw JSON per event
	Reconnect bool     // reconnect automatically on unclean disconnects
}

// Watch subscribes to the daemon's realtime channels and streams updates to
// the terminal until interrupted. Subscriptions do not survive a reconnect,
// so they are re-issued every time the session reaches the connected state.
func Watch(baseURL string, opts WatchOptions) error {
	channels := opts.Channels
	if len(channels) == 0 {
		channels = []string{
			proto.ChannelThreats,
			proto.ChannelIncidents,
			proto.ChannelSystemMetrics,
			proto.ChannelFLRounds,
		}
	}

	endpoint, err := client.Endpoint(baseURL)
	if err != nil {
		return err
	}

	c := client.New(client.NewWSTransport(endpoint),
		client.WithAutoReconnect(opts.Reconnect))
	defer c.Close()

	failed := make(chan struct{}, 1)
	c.OnStateChange(func(state client.State) {
		switch state {
		case client.StateConnected:
			for _, ch := range channels {
				c.Subscribe(ch)
			}
			if !opts.JSON {
				fmt.Printf("  %s %s\n", colorize(green, "connected"), colorize(dim, endpoint))
			}
		case client.StateReconnecting:
			if !opts.JSON {
				fmt.Println(colorize(yellow, "  connection lost, reconnecting..."))
			}
		case client.StateFailed, client.StateDisconnected:
			select {
			case failed <- struct{}{}:
			default:
			}
		}
	})

	c.OnMessage(func(msg proto.Message) {
		if opts.JSON {
			b, err := json.Marshal(msg)
			if err == nil {
				fmt.Println(string(b))
			}
			return
		}
		renderMessage(msg)
	})

	if !opts.JSON {
		fmt.Println()
		fmt.Printf("  %s %s\n", colorize(dim, "channels:"), strings.Join(channels, ", "))
		fmt.Println(colorize(dim, "  "+strings.Repeat("─", 50)))
	}

	if err := c.Connect(); err != nil && !opts.Reconnect {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		if !opts.JSON {
			fmt.Println()
			fmt.Println(colorize(dim, "  disconnecting..."))
		}
		return nil
	case <-failed:
		if c.State() == client.StateFailed {
			return fmt.Errorf("gave up reconnecting to %s", endpoint)
		}
		return nil
	}
}

// renderMessage prints one realtime message in a human-friendly format.
// Unrecognized payloads fall back to raw JSON so nothing is lost.
func renderMessage(msg proto.Message) {
	switch msg.Type {
	case proto.TypeSubscribed:
		fmt.Printf("  %s %s\n", colorize(dim, "subscribed"), msg.Channel)
		return
	case proto.TypeUnsubscribed:
		fmt.Printf("  %s %s\n", colorize(dim, "unsubscribed"), msg.Channel)
		return
	case proto.TypePong:
		return // heartbeat noise
	case proto.TypeError:
		fmt.Printf("  %s %s\n", colorize(red, "server error:"), msg.Text)
		return
	}

	switch msg.Channel {
	case proto.ChannelThreats:
		var t proto.ThreatEvent
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			break
		}
		fmt.Printf("  %s %s %s %s %s %s score=%.2f\n",
			colorize(dim, shortTime(t.DetectedAt)),
			colorize(severityColor(t.Severity), padRight(strings.ToUpper(t.Severity), 8)),
			padRight(t.Category, 18),
			t.SourceIP,
			colorize(dim, "->"),
			t.TargetIP,
			t.Score,
		)
		return

	case proto.ChannelIncidents:
		var inc proto.Incident
		if err := json.Unmarshal(msg.Data, &inc); err != nil {
			break
		}
		fmt.Printf("  %s %s %s %s %s\n",
			colorize(dim, shortTime(inc.UpdatedAt)),
			colorize(bold, "INCIDENT"),
			colorize(severityColor(inc.Severity), strings.ToUpper(inc.Severity)),
			statusLabel(inc.Status),
			inc.Title,
		)
		return

	case proto.ChannelSystemMetrics:
		var m proto.SystemMetrics
		if err := json.Unmarshal(msg.Data, &m); err != nil {
			break
		}
		fmt.Printf("  %s %s cpu %5.1f%%  mem %5.1f%%  disk %5.1f%%  tx %s  rx %s\n",
			colorize(dim, shortTime(m.Timestamp)),
			colorize(cyan, "metrics "),
			m.CPUPercent,
			m.MemoryPercent,
			m.DiskPercent,
			colorize(dim, formatBytes(m.BytesSent)),
			colorize(dim, formatBytes(m.BytesRecv)),
		)
		return

	case proto.ChannelFLRounds:
		var r proto.FLRound
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			break
		}
		fmt.Printf("  %s %s round %-4d acc %.4f  loss %.4f  participants %d\n",
			colorize(dim, shortTime(r.Timestamp)),
			colorize(blue, "fl      "),
			r.Round,
			r.Accuracy,
			r.Loss,
			r.Participants,
		)
		return
	}

	// Unknown channel or undecodable payload.
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	fmt.Printf("  %s\n", string(raw))
}
