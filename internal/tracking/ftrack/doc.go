// Package ftrack implements tracking.Service against the ftrack JSON API.
//
// Every call is a POST of a batch of operations to {server}/api carrying the
// ftrack-api-key and ftrack-user headers. Requests are paced by a token
// bucket so large reconcile passes stay under server rate limits. Component
// uploads ask the server for presigned upload metadata and then PUT the
// bytes directly, without the API headers.
package ftrack
