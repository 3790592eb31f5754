package client

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/mdns"
)

// mdnsService is the service type agisfld advertises on the local network.
const mdnsService = "_agisfl._tcp"

// DiscoveredServer is an agisfld instance found via mDNS.
type DiscoveredServer struct {
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Port       int      `json:"port"`
	TXTRecords []string `json:"txt_records,omitempty"`
}

// BaseURL returns the HTTP base URL of the discovered daemon, suitable for
// the REST API or for Endpoint.
func (d *DiscoveredServer) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", d.Address, d.Port)
}

// Discover finds the first agisfld instance advertising on the local network
// via mDNS. It returns an error if none answers within timeout.
func Discover(timeout time.Duration) (*DiscoveredServer, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)

	go func() {
		defer close(entriesCh)
		_ = mdns.Lookup(mdnsService, entriesCh)
	}()

	select {
	case entry := <-entriesCh:
		if entry == nil {
			return nil, fmt.Errorf("no %s service found", mdnsService)
		}

		server, err := serverFromEntry(entry)
		if err != nil {
			return nil, err
		}

		slog.Info("discovered realtime server",
			"name", server.Name,
			"address", server.Address,
			"port", server.Port,
		)
		return server, nil

	case <-time.After(timeout):
		return nil, fmt.Errorf("mDNS discovery timeout for %s", mdnsService)
	}
}

// serverFromEntry converts an mDNS answer into a DiscoveredServer,
// preferring the IPv4 address and bracketing IPv6.
func serverFromEntry(entry *mdns.ServiceEntry) (*DiscoveredServer, error) {
	var address string
	switch {
	case entry.AddrV4 != nil:
		address = entry.AddrV4.String()
	case entry.AddrV6 != nil:
		address = fmt.Sprintf("[%s]", entry.AddrV6.String())
	default:
		return nil, fmt.Errorf("no valid address in mDNS answer for %q", entry.Name)
	}

	return &DiscoveredServer{
		Name:       entry.Name,
		Address:    address,
		Port:       entry.Port,
		TXTRecords: entry.InfoFields,
	}, nil
}
