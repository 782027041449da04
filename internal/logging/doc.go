// Package logging assembles structured slog loggers for shotbridge.
//
// It owns the console and JSON handlers, mirrors every record into the
// on-disk log under the configured log directory, and scrubs credential
// material (API keys, tokens) before anything is written. Context helpers
// tag records with the connection session and request identifiers carried
// by the tracking package so a single reconcile run can be followed across
// log lines.
package logging
