// Package ui renders terminal output for the wiretap CLI.
//
// One-shot commands such as discover and config show print through a
// Printer, which draws bordered headers, result boxes and the discovered
// listener table with Lipgloss. The client command runs ClientModel, a
// Bubble Tea program with a scrolling transcript and a text input, when
// stdin and stdout are terminals.
//
// Logging is controlled separately via the WIRETAP_LOG_LEVEL environment
// variable or --log-level. When unset the zap logger is silent so the
// curated output stays readable.
package ui
