// Package client talks to a wiretap HTTP-mode listener over WebSocket.
package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Time allowed to write a message to the peer
const writeWait = 10 * time.Second

// Conn is a WebSocket connection to an echo endpoint. Send and Receive may be
// called from different goroutines.
type Conn struct {
	ws      *websocket.Conn
	url     string
	writeMu sync.Mutex
}

// Dial connects to rawURL, which must use the ws or wss scheme.
func Dial(ctx context.Context, rawURL string, timeout time.Duration) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be ws or wss", rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", rawURL)
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}

	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w (HTTP %d)", u, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", u, err)
	}

	return &Conn{ws: ws, url: u.String()}, nil
}

// URL returns the URL the connection was dialed with.
func (c *Conn) URL() string {
	return c.url
}

// Send writes text as a single text frame.
func (c *Conn) Send(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// Receive blocks for the next data frame. A zero timeout waits forever.
func (c *Conn) Receive(timeout time.Duration) (string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.ws.SetReadDeadline(deadline); err != nil {
		return "", err
	}

	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("receive failed: %w", err)
	}
	return string(msg), nil
}

// Close sends a close frame and closes the connection.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.ws.Close()
}

// RunLines sends every line read from in and writes each reply to out.
// It returns nil when in is exhausted.
func RunLines(c *Conn, in io.Reader, out io.Writer, replyTimeout time.Duration) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := c.Send(scanner.Text()); err != nil {
			return err
		}
		reply, err := c.Receive(replyTimeout)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, reply); err != nil {
			return err
		}
	}
	return scanner.Err()
}
