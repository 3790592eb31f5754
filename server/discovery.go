package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/mdns"
)

// mdnsService must match what the client package looks up.
const mdnsService = "_agisfl._tcp"

// Advertiser announces the realtime server over mDNS so LAN clients
// (agisflctl discover) can find it without configuration.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes the daemon on the local network under the host's name.
func Advertise(port int) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("resolving hostname for mDNS: %w", err)
	}

	service, err := mdns.NewMDNSService(host, mdnsService, "", "", port, nil,
		[]string{"agisfl realtime dashboard"})
	if err != nil {
		return nil, fmt.Errorf("building mDNS service: %w", err)
	}

	srv, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("starting mDNS server: %w", err)
	}

	slog.Info("advertising over mDNS", "service", mdnsService, "host", host, "port", port)
	return &Advertiser{server: srv}, nil
}

func (a *Advertiser) Shutdown() error {
	slog.Info("stopping mDNS advertisement")
	return a.server.Shutdown()
}
