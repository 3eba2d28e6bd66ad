// Package config loads, normalizes, and validates downloader configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CANVAS_TOKEN. The Config type centralizes every knob the CLI needs, so the
// destination tree, credentials, and concurrency limits are discovered in one
// pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, a resolved bearer token, and clear validation errors.
package config
