package server

import (
	"fmt"
	"os"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/config"
	"github.com/develotters/wiretap/internal/discovery"
	"github.com/develotters/wiretap/internal/logging"
	"github.com/develotters/wiretap/internal/version"
)

// advertiser owns an mDNS registration of the listener.
type advertiser struct {
	server   *zeroconf.Server
	instance string
}

// advertise registers the bound listener as a discovery.ServiceType service.
func advertise(instance string, mode config.Mode, port int) (*advertiser, error) {
	if instance == "" {
		instance = DefaultInstanceName()
	}

	txt := discovery.BuildTXT(string(mode), version.Version)
	srv, err := zeroconf.Register(instance, discovery.ServiceType, discovery.ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising listener over mDNS",
		zap.String("instance", instance),
		zap.String("service", discovery.ServiceType),
		zap.Int("port", port),
		zap.Strings("txt", txt),
	)

	return &advertiser{server: srv, instance: instance}, nil
}

func (a *advertiser) shutdown() {
	a.server.Shutdown()
	logging.Debug("mDNS registration withdrawn", zap.String("instance", a.instance))
}

// DefaultInstanceName returns "wiretap-<hostname>".
func DefaultInstanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "wiretap"
	}
	return "wiretap-" + host
}
