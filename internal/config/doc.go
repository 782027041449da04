// Package config loads, normalizes, and validates shotbridge configuration data.
//
// It supplies repository defaults rooted in the XDG base directories, expands
// user paths (including tilde shortcuts) and reads TOML files. Server
// credentials are not part of the config; see package credentials. The Config
// type centralizes
// every knob the CLI, the connection manager and the reconciler need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
