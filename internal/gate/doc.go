// Package gate bounds concurrent access to the Canvas API and applies the
// retry policy for throttled responses. Every HTTP call made by the crawler
// passes through a Gate; the Gate hands out admission slots, never the
// callers.
package gate
