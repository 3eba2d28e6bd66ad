// Package crawl tracks a dynamically fanning-out task graph and detects its
// quiescence. Tasks register synchronously before they start and retire when
// they finish; the coordinator sleeps until the active count falls to zero.
// There is no polling and no global task list, just one counter and a
// single-shot wake channel.
package crawl
