package client

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint derives the realtime WebSocket endpoint from the URL the dashboard
// is served from. The scheme is upgraded (http -> ws, https -> wss), the host
// and port are preserved, and the path is fixed to /ws. Query and fragment
// are dropped.
func Endpoint(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", baseURL, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return "", fmt.Errorf("endpoint %q has no host", baseURL)
	}

	u.Path = "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
