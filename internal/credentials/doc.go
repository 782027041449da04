// Package credentials loads and persists the tracking-service credentials
// (server URL, API key and username).
//
// Credentials live in their own JSON file, written with 0600 permissions
// under an advisory lock so concurrent CLI invocations cannot interleave
// writes. When the file is absent the FTRACK_SERVER, FTRACK_API_KEY and
// FTRACK_API_USER environment variables are consulted instead.
package credentials
