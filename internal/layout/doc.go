// Package layout reads editorial shot lists from TOML, JSON or CSV files
// and turns them into the desired hierarchy consumed by the reconciler.
//
// A layout is a flat list of rows, one per shot:
//
//	sequence, shot, tasks, status, description
//
// Rows are grouped by sequence in first-seen order. Tasks may be given as a
// list or as a comma-separated string ("Compositing, Rotoscoping").
package layout
