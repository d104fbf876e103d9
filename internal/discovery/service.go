package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service is a wiretap listener found on the local network.
type Service struct {
	// Instance is the advertised instance name (e.g. "wiretap-lab1")
	Instance string

	// Hostname is the mDNS hostname (e.g. "lab1.local.")
	Hostname string

	// IP is the preferred address, IPv4 when available
	IP string

	Port int

	// Mode is "tcp" or "http", from the TXT record
	Mode string

	// Version is the advertising build's version, from the TXT record
	Version string

	// Metadata holds every TXT record key
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable description
func (s *Service) String() string {
	return fmt.Sprintf("wiretap %s (%s) at %s", s.Instance, s.Mode, s.Address())
}

// Address returns host:port.
func (s *Service) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}

// WebSocketURL returns the ws:// URL of an HTTP-mode listener, or "" for TCP mode.
func (s *Service) WebSocketURL() string {
	if s.Mode != "http" {
		return ""
	}
	path := s.Metadata["path"]
	if path == "" {
		path = "/ws"
	}
	return "ws://" + s.Address() + path
}
