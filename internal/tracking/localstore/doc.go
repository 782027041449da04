// Package localstore implements tracking.Service on a local SQLite database.
//
// It backs the offline/demo mode: a freshly created database is seeded with
// task types, statuses, asset types, note categories, the server location,
// the configured user and a "Demo Project", so the full reconcile and
// attachment flows can run without a live server. Entities are kept in one
// table with indexed name/parent/project columns and the remaining
// attributes in a JSON document. Only one process may hold the store open.
package localstore
