// Package reconcile brings a tracking project in line with an editorial
// layout of sequences, shots and tasks.
//
// Reconciliation is get-or-create only: entities that already exist are
// reused and never updated, duplicated or removed. Each pass resolves the
// project, walks the layout in order and records one manifest entry per
// node. Per-entity failures are recorded and the pass continues with the
// next sibling; authentication and connectivity failures end the pass and
// return the partial manifest.
//
// Optional steps attach a thumbnail and a version to each shot from
// exported media and assign the credential user to created tasks.
//
// Lookup catalogs (task types, statuses) are loaded at most once per pass
// and discarded with it.
package reconcile
