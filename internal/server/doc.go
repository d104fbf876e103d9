// Package server implements the wiretap listener.
//
// A Server runs in one of two modes:
//
//   - TCP: every accepted connection is read until EOF, error or read-idle
//     timeout. Received bytes are discarded and the response is empty: the
//     connection is closed without anything being written.
//   - HTTP: a chi router answers every method on every path with 200 "ok",
//     except /ws, where WebSocket upgrades are accepted and each received
//     frame is answered with the text frame "echo: <message>".
//
// # Lifecycle
//
//	srv, err := server.New(&server.Config{Port: 8080, Mode: config.ModeHTTP})
//	if err != nil {
//	    return err
//	}
//	if err := srv.Listen(); err != nil { // logs "Listening on 8080"
//	    return err
//	}
//	return srv.Serve(ctx) // blocks until ctx is done
//
// Start combines Listen and Serve and stops on SIGINT or SIGTERM.
//
// # Timeouts
//
// ReadTimeout is a read-idle timeout: the deadline is pushed forward before
// each read, so a connection is closed only after that long without data.
// In HTTP mode it is also the keep-alive idle timeout and the per-frame
// deadline of WebSocket connections (pongs extend it when pings are enabled).
// ConnectTimeout bounds reading the request headers and the WebSocket upgrade.
//
// # Wiretap
//
// Every accepted connection gets a UUID used in all of its log entries. With
// Wiretap enabled, each read and write is logged at debug level with a hex
// and ASCII dump.
//
// # Shutdown
//
// Shutdown withdraws the mDNS registration, closes the listener and every
// active connection (hijacked WebSocket connections included), waits for
// handlers until its context expires (10 seconds when Serve is stopped) and
// then closes the capture sinks. Connections accepted after shutdown starts
// are closed immediately.
package server
