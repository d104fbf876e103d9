package discovery

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type wiretap listeners register
	ServiceType = "_wiretap._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default browse duration
	DefaultScanTimeout = 5 * time.Second
)

// TXT record keys
const (
	TxtMode    = "mode"
	TxtVersion = "version"
	TxtPath    = "path"
)

// Scanner handles mDNS service discovery
type Scanner struct {
	// Timeout is how long to browse before returning
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for wiretap listeners until the timeout elapses or ctx is
// cancelled, and returns them sorted by instance name.
func (s *Scanner) Scan(ctx context.Context) ([]*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		found = make(map[string]*Service)
	)

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if svc := parseServiceEntry(entry); svc != nil {
					mu.Lock()
					found[svc.Instance] = svc
					mu.Unlock()
				}
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()

	services := make([]*Service, 0, len(found))
	for _, svc := range found {
		services = append(services, svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Instance < services[j].Instance })

	return services, nil
}

// parseServiceEntry converts a zeroconf entry to a Service.
// Returns nil when the entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Service {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" || entry.Port == 0 {
		return nil
	}

	metadata := ParseTXT(entry.Text)
	return &Service{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         entry.Port,
		Mode:         metadata[TxtMode],
		Version:      metadata[TxtVersion],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// ParseTXT splits key=value TXT records into a map. Keys without a value map to "".
func ParseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}
	return metadata
}

// BuildTXT renders the TXT records a listener advertises.
func BuildTXT(mode, version string) []string {
	txt := []string{TxtMode + "=" + mode, TxtVersion + "=" + version}
	if mode == "http" {
		txt = append(txt, TxtPath+"=/ws")
	}
	return txt
}
