// Package discovery finds wiretap listeners on the local network over mDNS.
//
// A listener started with advertising enabled registers itself as a
// "_wiretap._tcp" service in the "local." domain, with TXT records carrying
// its mode ("tcp" or "http"), build version and, for HTTP mode, the
// WebSocket path. Scanner browses for those registrations.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 3 * time.Second
//	services, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, svc := range services {
//	    fmt.Println(svc)
//	}
//
// # Network Requirements
//
// Multicast must be allowed on the interface and UDP port 5353 must not be
// firewalled. Listeners are only visible on the same network segment.
package discovery
