// Package textutil sanitizes remote display names into filesystem-safe file
// and folder names.
//
// Canvas lets uploaders use any Unicode string as a name; these helpers are
// the single place where those strings are made safe before they touch the
// local tree, so every caller computes identical target paths for the same
// remote name. Names are NFC-normalized first so visually identical names
// from different sources collapse to one path.
package textutil
