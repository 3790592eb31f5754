package client

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
)

func TestServerFromEntry_IPv4(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "lab-host._agisfl._tcp.local.",
		AddrV4:     net.ParseIP("192.168.8.20"),
		Port:       8080,
		InfoFields: []string{"agisfl realtime dashboard"},
	}

	server, err := serverFromEntry(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Address != "192.168.8.20" {
		t.Errorf("expected IPv4 address, got %q", server.Address)
	}
	if server.BaseURL() != "http://192.168.8.20:8080" {
		t.Errorf("unexpected base URL %q", server.BaseURL())
	}
}

func TestServerFromEntry_IPv6Bracketed(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:   "lab-host._agisfl._tcp.local.",
		AddrV6: net.ParseIP("fe80::1"),
		Port:   8080,
	}

	server, err := serverFromEntry(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Address != "[fe80::1]" {
		t.Errorf("expected bracketed IPv6 address, got %q", server.Address)
	}
	if server.BaseURL() != "http://[fe80::1]:8080" {
		t.Errorf("unexpected base URL %q", server.BaseURL())
	}
}

func TestServerFromEntry_PrefersIPv4(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:   "lab-host._agisfl._tcp.local.",
		AddrV4: net.ParseIP("10.0.0.5"),
		AddrV6: net.ParseIP("fe80::1"),
		Port:   8080,
	}

	server, err := serverFromEntry(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Address != "10.0.0.5" {
		t.Errorf("expected IPv4 preferred, got %q", server.Address)
	}
}

func TestServerFromEntry_NoAddress(t *testing.T) {
	entry := &mdns.ServiceEntry{Name: "lab-host._agisfl._tcp.local.", Port: 8080}

	if _, err := serverFromEntry(entry); err == nil {
		t.Error("expected error for answer without address")
	}
}
