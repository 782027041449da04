// Package main hosts the shotbridge CLI entrypoint and command graph.
//
// The Cobra command tree is the standalone harness around the internal
// packages: it resolves configuration and credentials, opens a tracking
// session through the connection manager, and hands layouts and media to the
// reconciler and attachment operations. Host-application hooks shell out to
// the same commands.
//
// Keep this package thin. New behaviour belongs in internal packages first and
// is surfaced here as a command or flag.
package main
