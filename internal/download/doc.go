// Package download streams remote files to their local targets atomically.
// Every download lands in a temp file next to its target, is stamped with
// the remote modification time, and only then renamed into place, so a
// killed run never leaves a half-written file where the next run's change
// filter would trust it.
package download
