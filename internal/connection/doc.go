// Package connection manages the authenticated session with the tracking
// service.
//
// A Manager validates credentials, dials a backend through a Dialer, checks
// the server version with a round trip and hands out at most one live
// Connection. Connections wrap a tracking.Service: closing one cancels calls
// that are still in flight and makes every later call fail with
// tracking.ErrConnectivity. With provides scoped acquisition that releases
// the connection on every exit path.
package connection
