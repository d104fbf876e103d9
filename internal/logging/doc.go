// Package logging provides structured logging for wiretap.
//
// This package wraps a package-global zap logger with convenience functions
// for the logging patterns used by the listener: connection lifecycle events,
// HTTP requests, WebSocket messages and the wiretap byte dumps.
//
// # Log Levels
//
//   - Debug: wiretap hex dumps, WebSocket frames, per-read details
//   - Info: bind, connection accepted/closed, HTTP requests
//   - Warn: non-fatal issues (capture sink failures, mDNS registration)
//   - Error: unexpected failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("info"); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// When the level is empty, WIRETAP_LOG_LEVEL is consulted; if that is empty
// too, a nop logger is installed.
//
// # Thread Safety
//
// The logging functions are safe for concurrent use. Initialize and
// SetLogger replace the global and belong in startup code or tests.
package logging
