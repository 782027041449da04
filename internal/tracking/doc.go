// Package tracking defines the boundary between shotbridge and the remote
// production-tracking service.
//
// Key responsibilities:
//   - The Service interface every backend implements (the ftrack JSON API
//     client and the SQLite offline store), expressed as queries, creates,
//     updates and component uploads over named entity types.
//   - Entity and Query value types plus the expression builder used to talk
//     to ftrack-style servers.
//   - Structured error markers (authentication, connectivity, not found,
//     duplicate, upload, permission) and the Wrap helper so callers can
//     classify failures with errors.Is.
//
// Entity identity is owned by the remote service. Nothing in this package
// caches entities between calls.
package tracking
