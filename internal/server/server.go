package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/develotters/wiretap/internal/capture"
	"github.com/develotters/wiretap/internal/config"
	"github.com/develotters/wiretap/internal/logging"
)

// shutdownTimeout bounds how long Shutdown waits for handlers to return.
const shutdownTimeout = 10 * time.Second

// Config holds the server configuration
type Config struct {
	Host           string
	Port           int // 0 picks an ephemeral port
	Mode           config.Mode
	ReadTimeout    time.Duration // read-idle timeout per connection, 0 disables
	ConnectTimeout time.Duration // HTTP header read and WebSocket upgrade budget
	WSPingInterval time.Duration // 0 disables WebSocket keepalive pings
	Wiretap        bool          // log every read and write at debug level

	MaxConnections int     // 0 = unlimited
	AcceptRate     float64 // accepts per second, 0 = unlimited
	AcceptBurst    int

	Advertise         bool   // register the listener over mDNS
	AdvertiseInstance string // mDNS instance name, defaults to wiretap-<hostname>

	Recorder *capture.Recorder // optional payload capture, nil disables
}

// ConfigFrom maps the file configuration onto a server Config.
func ConfigFrom(c *config.Config, rec *capture.Recorder) *Config {
	return &Config{
		Host:              c.Server.Host,
		Port:              c.Server.Port,
		Mode:              c.Server.Mode,
		ReadTimeout:       c.Server.ReadTimeout,
		ConnectTimeout:    c.Server.ConnectTimeout,
		WSPingInterval:    c.Server.WSPingInterval,
		Wiretap:           c.Server.Wiretap,
		MaxConnections:    c.Limits.MaxConnections,
		AcceptRate:        c.Limits.AcceptRate,
		AcceptBurst:       c.Limits.AcceptBurst,
		Advertise:         c.Advertise.Enabled,
		AdvertiseInstance: c.Advertise.Instance,
		Recorder:          rec,
	}
}

// Server is a TCP sink or an HTTP/WebSocket echo listener, depending on Config.Mode.
type Server struct {
	config     *Config
	listener   net.Listener
	httpServer *http.Server
	upgrader   websocket.Upgrader
	advertiser *advertiser

	wg           sync.WaitGroup
	mu           sync.Mutex
	activeConns  map[string]*trackedConn
	shuttingDown bool
}

// New creates a new Server instance
func New(cfg *Config) (*Server, error) {
	switch cfg.Mode {
	case config.ModeTCP, config.ModeHTTP:
	default:
		return nil, fmt.Errorf("unknown server mode %q", cfg.Mode)
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port %d out of range", cfg.Port)
	}

	return &Server{
		config: cfg,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: cfg.ConnectTimeout,
			CheckOrigin:      func(*http.Request) bool { return true },
		},
		activeConns: make(map[string]*trackedConn),
	}, nil
}

// Listen binds the socket and logs the bound port.
func (s *Server) Listen() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	if s.config.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.config.MaxConnections)
	}
	if s.config.AcceptRate > 0 {
		ln = newRateLimitedListener(ln, s.config.AcceptRate, s.config.AcceptBurst)
	}
	s.listener = &connListener{Listener: ln, srv: s}
	if s.config.Mode == config.ModeHTTP {
		s.httpServer = s.newHTTPServer()
	}

	port := s.Port()
	logging.Info(fmt.Sprintf("Listening on %d", port),
		zap.String("addr", ln.Addr().String()),
		zap.Int("port", port),
		zap.String("mode", string(s.config.Mode)),
		zap.Duration("read_timeout", s.config.ReadTimeout),
		zap.Bool("wiretap", s.config.Wiretap),
	)

	if s.config.Advertise {
		adv, err := advertise(s.config.AdvertiseInstance, s.config.Mode, port)
		if err != nil {
			logging.Warn("mDNS advertisement failed, continuing without it", zap.Error(err))
		} else {
			s.advertiser = adv
		}
	}

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Listen.
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Start binds, serves and blocks until SIGINT/SIGTERM or a fatal error.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		_ = s.config.Recorder.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx)
}

// Serve handles connections on the bound listener until ctx is done,
// then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	errChan := make(chan error, 1)
	go func() {
		if s.httpServer != nil {
			errChan <- s.serveHTTP()
		} else {
			errChan <- s.acceptConnections()
		}
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := s.Shutdown(shutdownCtx)
		<-errChan
		return err
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown stops accepting, closes active connections and waits for
// handlers to return. Calls after the first are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return nil
	}
	s.shuttingDown = true
	s.mu.Unlock()

	logging.Info("Shutting down server...")

	if s.advertiser != nil {
		s.advertiser.shutdown()
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("HTTP server shutdown incomplete", zap.Error(err))
		}
	}
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	conns := make([]*trackedConn, 0, len(s.activeConns))
	for _, c := range s.activeConns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		logging.Debug("Closing active connection",
			zap.String("conn_id", c.id),
			zap.String("remote_addr", c.remote),
		)
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All connections closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close", zap.Error(ctx.Err()))
	}

	if err := s.config.Recorder.Close(); err != nil {
		logging.Warn("Failed to close capture sinks", zap.Error(err))
	}

	return nil
}

// ActiveConnections returns the number of open connections.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) isShuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shuttingDown
}

// track registers c. It refuses once shutdown has started, so every
// tracked connection is seen by Shutdown's close pass.
func (s *Server) track(c *trackedConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.activeConns[c.id] = c
	return true
}

// beginHandler counts a connection handler in the wait group. It returns
// false once shutdown has started; the caller must then close the
// connection and not call endHandler.
func (s *Server) beginHandler() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) endHandler() {
	s.wg.Done()
}

func (s *Server) untrack(c *trackedConn) {
	s.mu.Lock()
	delete(s.activeConns, c.id)
	s.mu.Unlock()
}
