package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/logging"
)

// connListener gives every accepted connection an ID, registers it with the
// server and, when wiretap is on, taps its reads and writes.
type connListener struct {
	net.Listener
	srv *Server
}

func (l *connListener) Accept() (net.Conn, error) {
	c, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	tc := &trackedConn{
		Conn:    c,
		id:      uuid.NewString(),
		remote:  c.RemoteAddr().String(),
		wiretap: l.srv.config.Wiretap,
		onClose: l.srv.untrack,
	}
	if !l.srv.track(tc) {
		_ = c.Close()
		return nil, net.ErrClosed
	}
	logging.LogConnection(tc.id, tc.remote, "connection_accepted")

	return tc, nil
}

// trackedConn wraps an accepted connection. Close is idempotent and
// deregisters the connection exactly once.
type trackedConn struct {
	net.Conn
	id      string
	remote  string
	wiretap bool
	onClose func(*trackedConn)

	bytesRead    atomic.Int64
	bytesWritten atomic.Int64
	closeOnce    sync.Once
	closeErr     error
}

func (c *trackedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.bytesRead.Add(int64(n))
		if c.wiretap {
			logging.LogWire(c.id, c.remote, "read", p[:n])
		}
	}
	return n, err
}

func (c *trackedConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if n > 0 {
		c.bytesWritten.Add(int64(n))
		if c.wiretap {
			logging.LogWire(c.id, c.remote, "write", p[:n])
		}
	}
	return n, err
}

func (c *trackedConn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.Conn.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
		logging.LogConnection(c.id, c.remote, "connection_closed",
			zap.Int64("bytes_read", c.bytesRead.Load()),
			zap.Int64("bytes_written", c.bytesWritten.Load()),
		)
	})
	return c.closeErr
}

type connIDKey struct{}

// withConnID stores the connection ID in the per-connection HTTP context.
func withConnID(ctx context.Context, c net.Conn) context.Context {
	if tc, ok := c.(*trackedConn); ok {
		return context.WithValue(ctx, connIDKey{}, tc.id)
	}
	return ctx
}

// connIDFrom returns the connection ID stored by withConnID, or "".
func connIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(connIDKey{}).(string)
	return id
}
