package server

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/develotters/wiretap/internal/capture"
	"github.com/develotters/wiretap/internal/config"
	"github.com/develotters/wiretap/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// EchoPrefix is prepended to every echoed message.
	EchoPrefix = "echo: "
)

// handleWebSocket upgrades /ws requests and echoes each data frame back as a
// text frame. Requests without an upgrade get the plain "ok" response.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		handleOK(w, r)
		return
	}

	connID := connIDFrom(r.Context())

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		logging.Warn("WebSocket upgrade failed",
			zap.String("conn_id", connID),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	if !s.beginHandler() {
		_ = conn.Close()
		return
	}
	defer s.endHandler()

	s.echo(conn, connID, r.RemoteAddr)
}

// echo runs the receive loop for one WebSocket connection.
func (s *Server) echo(conn *websocket.Conn, connID, remoteAddr string) {
	logging.LogConnection(connID, remoteAddr, "websocket_upgraded")

	done := make(chan struct{})
	defer func() {
		close(done)
		_ = conn.Close()
	}()

	readTimeout := s.config.ReadTimeout
	extendDeadline := func() error {
		if readTimeout <= 0 {
			return nil
		}
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	}

	if err := extendDeadline(); err != nil {
		return
	}

	if s.config.WSPingInterval > 0 {
		conn.SetPongHandler(func(string) error { return extendDeadline() })
		go s.keepalive(conn, done, connID)
	}

	messages := 0
	reason := "closed"
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			reason = wsCloseReason(err)
			if reason == "error" {
				logging.Warn("WebSocket read failed",
					zap.String("conn_id", connID),
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			break
		}
		if err := extendDeadline(); err != nil {
			reason = "error"
			break
		}

		messages++
		logging.LogWebSocketMessage(connID, remoteAddr, "received", messageType, payload)

		kind := capture.KindWSText
		if messageType == websocket.BinaryMessage {
			kind = capture.KindWSBinary
		}
		s.config.Recorder.Record(capture.NewRecord(connID, remoteAddr, string(config.ModeHTTP), kind, payload))

		reply := EchoReply(payload)
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			reason = "error"
			break
		}
		if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
			logging.Warn("WebSocket write failed",
				zap.String("conn_id", connID),
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			reason = "error"
			break
		}
		logging.LogWebSocketMessage(connID, remoteAddr, "sent", websocket.TextMessage, reply)
	}

	logging.LogConnection(connID, remoteAddr, "websocket_closed",
		zap.Int("messages", messages),
		zap.String("reason", reason),
	)
}

// keepalive pings the peer until done is closed or a ping fails.
func (s *Server) keepalive(conn *websocket.Conn, done <-chan struct{}, connID string) {
	ticker := time.NewTicker(s.config.WSPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				logging.Debug("WebSocket ping failed", zap.String("conn_id", connID), zap.Error(err))
				return
			}
		}
	}
}

// EchoReply builds the reply for one received message.
func EchoReply(payload []byte) []byte {
	reply := make([]byte, 0, len(EchoPrefix)+len(payload))
	reply = append(reply, EchoPrefix...)
	return append(reply, payload...)
}

func wsCloseReason(err error) string {
	var netErr net.Error
	switch {
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		return "closed"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "idle_timeout"
	case errors.Is(err, net.ErrClosed):
		return "shutdown"
	default:
		return "error"
	}
}
