// Package logs reads back the JSON log file written by internal/logging.
//
// Tail returns the last lines of the file with the offset to resume from,
// Follow streams lines appended after an offset until the context ends, and
// Parse/Filter decode records so `shotbridge logs` can narrow output to one
// session, component or minimum level.
package logs
