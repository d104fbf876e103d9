package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func newEntry(instance string, port int, txt []string, ips ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	entry.HostName = "lab1.local."
	entry.Port = port
	entry.Text = txt
	for _, ip := range ips {
		parsed := net.ParseIP(ip)
		if parsed.To4() != nil {
			entry.AddrIPv4 = append(entry.AddrIPv4, parsed)
		} else {
			entry.AddrIPv6 = append(entry.AddrIPv6, parsed)
		}
	}
	return entry
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantMode string
	}{
		{
			name:     "http listener with IPv4",
			entry:    newEntry("wiretap-lab1", 8080, BuildTXT("http", "v1.0.0"), "192.168.4.16"),
			wantIP:   "192.168.4.16",
			wantPort: 8080,
			wantMode: "http",
		},
		{
			name:     "tcp listener with IPv6 only",
			entry:    newEntry("wiretap-lab2", 9000, BuildTXT("tcp", "dev"), "fe80::1"),
			wantIP:   "fe80::1",
			wantPort: 9000,
			wantMode: "tcp",
		},
		{
			name:     "prefers IPv4",
			entry:    newEntry("wiretap-lab3", 8080, nil, "fe80::2", "10.0.0.5"),
			wantIP:   "10.0.0.5",
			wantPort: 8080,
		},
		{
			name:    "no address",
			entry:   newEntry("wiretap-lab4", 8080, nil),
			wantNil: true,
		},
		{
			name:    "no port",
			entry:   newEntry("wiretap-lab5", 0, nil, "10.0.0.6"),
			wantNil: true,
		},
		{
			name:    "no instance",
			entry:   newEntry("", 8080, nil, "10.0.0.7"),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if svc != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", svc)
				}
				return
			}
			if svc == nil {
				t.Fatal("parseServiceEntry() = nil, want service")
			}
			if svc.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", svc.IP, tt.wantIP)
			}
			if svc.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", svc.Port, tt.wantPort)
			}
			if svc.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", svc.Mode, tt.wantMode)
			}
			if svc.Instance != tt.entry.Instance {
				t.Errorf("Instance = %q, want %q", svc.Instance, tt.entry.Instance)
			}
			if time.Since(svc.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt is not recent: %v", svc.DiscoveredAt)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := ParseTXT([]string{"mode=http", "path=/ws", "flag", "note=a=b"})

	want := map[string]string{
		"mode": "http",
		"path": "/ws",
		"flag": "",
		"note": "a=b",
	}
	if len(got) != len(want) {
		t.Errorf("ParseTXT() has %d entries, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("ParseTXT()[%q] = %q, want %q", k, got[k], v)
		}
	}
}

func TestBuildTXT(t *testing.T) {
	http := ParseTXT(BuildTXT("http", "v1"))
	if http[TxtMode] != "http" || http[TxtVersion] != "v1" || http[TxtPath] != "/ws" {
		t.Errorf("BuildTXT(http) = %v", http)
	}

	tcp := ParseTXT(BuildTXT("tcp", "v1"))
	if _, ok := tcp[TxtPath]; ok {
		t.Errorf("BuildTXT(tcp) should not carry a path, got %v", tcp)
	}
}

func TestServiceURLs(t *testing.T) {
	svc := &Service{Instance: "wiretap-lab1", IP: "192.168.1.10", Port: 8080, Mode: "http", Metadata: map[string]string{}}
	if got := svc.WebSocketURL(); got != "ws://192.168.1.10:8080/ws" {
		t.Errorf("WebSocketURL() = %q", got)
	}

	v6 := &Service{IP: "fe80::1", Port: 9000, Mode: "tcp"}
	if got := v6.Address(); got != "[fe80::1]:9000" {
		t.Errorf("Address() = %q, want [fe80::1]:9000", got)
	}
	if got := v6.WebSocketURL(); got != "" {
		t.Errorf("WebSocketURL() for tcp = %q, want empty", got)
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
