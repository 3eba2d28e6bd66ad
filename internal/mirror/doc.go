// Package mirror decides what gets downloaded and drives the two phases of a
// run: discovery fans out over course content and collects download
// candidates, then the download phase fetches the survivors. The change
// filter keeps the mirror incremental; the accumulator keeps it free of
// duplicate targets.
package mirror
