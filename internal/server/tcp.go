package server

import (
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/capture"
	"github.com/develotters/wiretap/internal/config"
	"github.com/develotters/wiretap/internal/logging"
)

const tcpReadBufferSize = 4096

// acceptConnections accepts and handles incoming TCP connections until the
// listener is closed.
func (s *Server) acceptConnections() error {
	var tempDelay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isShuttingDown() {
				return nil
			}
			// back off on transient failures such as EMFILE
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else if tempDelay *= 2; tempDelay > time.Second {
				tempDelay = time.Second
			}
			logging.Error("Failed to accept connection", zap.Error(err), zap.Duration("retry_in", tempDelay))
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		if !s.beginHandler() {
			_ = conn.Close()
			return nil
		}
		go func() {
			defer s.endHandler()
			s.handleTCP(conn.(*trackedConn))
		}()
	}
}

// handleTCP reads and discards everything the peer sends. The response is
// empty: nothing is written before the connection is closed on EOF, error or
// read-idle timeout.
func (s *Server) handleTCP(conn *trackedConn) {
	defer func() { _ = conn.Close() }()

	buf := make([]byte, tcpReadBufferSize)
	var discarded int64
	reason := "eof"

	for {
		if s.config.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
				reason = "error"
				break
			}
		}

		n, err := conn.Read(buf)
		if n > 0 {
			discarded += int64(n)
			s.config.Recorder.Record(capture.NewRecord(conn.id, conn.remote, string(config.ModeTCP), capture.KindTCPChunk, buf[:n]))
		}
		if err != nil {
			reason = closeReason(err)
			if reason == "error" {
				logging.Warn("TCP read failed",
					zap.String("conn_id", conn.id),
					zap.String("remote_addr", conn.remote),
					zap.Error(err),
				)
			}
			break
		}
	}

	logging.LogConnection(conn.id, conn.remote, "tcp_session_ended",
		zap.Int64("bytes_discarded", discarded),
		zap.String("reason", reason),
	)
}

// closeReason classifies the error that ended a read loop.
func closeReason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		return "eof"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "idle_timeout"
	case errors.Is(err, net.ErrClosed):
		return "shutdown"
	default:
		return "error"
	}
}
