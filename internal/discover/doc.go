// Package discover walks course content and turns it into download
// candidates and on-disk JSON dumps. Each handler mirrors one Canvas surface
// (file tree, assignments, discussions, modules, pages, roster) and fans out
// further tasks through the crawl scheduler; none of them fail the run when
// a single surface is closed to the caller.
package discover
