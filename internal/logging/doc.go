// Package logging assembles the structured slog loggers used across the
// downloader.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes typed attribute helpers plus component loggers so the
// crawl, gate, download, and discovery code all emit lines with the same
// shape. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
