// Package preflight provides readiness checks for the credential file, the
// tracking server and the filesystem paths shotbridge depends on.
//
// The CLI "shotbridge doctor" command runs RunAll and renders the results.
// Individual checks are exported so other commands can reuse them.
package preflight
