// Package capture records payloads received by the listener for later analysis.
//
// A Recorder fans records out to one or more Sinks. Two sinks are provided:
//
//   - JSONLSink appends one JSON object per line to
//     capture-<yyyymmdd-hhmmss>.jsonl inside a directory that must already exist.
//   - SQLiteSink inserts rows into a "captures" table of a SQLite database.
//
// Sink failures never end a connection: the Recorder logs them and moves on.
// A nil *Recorder is valid and records nothing.
//
// ReadJSONL loads a capture file back and Summarize groups its records by
// connection, which is what 'wiretap analyze' prints.
package capture
