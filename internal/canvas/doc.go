// Package canvas provides a thin typed client for the Canvas LMS REST API:
// bearer-authenticated requests through the admission gate, Link-header
// pagination, and tolerant decoding of list endpoints that answer with an
// error envelope instead of an array.
package canvas
