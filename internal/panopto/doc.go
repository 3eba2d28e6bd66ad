// Package panopto mirrors course videos hosted on Panopto.
//
// Canvas embeds Panopto as an LTI tool: each course exposes a launch form
// whose POST establishes a cookie session on the Panopto host and redirects
// into the course's root video folder. The package performs that launch,
// walks the folder tree through the Data.svc JSON services, and resolves
// every session's HLS playlists down to a single progressive file candidate
// for the download phase.
package panopto
