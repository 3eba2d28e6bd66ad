package canvas

import (
	"net/http"

	"github.com/peterhellberg/link"
)

// nextPage inspects the Link header of a listing response and returns the
// URL of the following page. Pagination stops when no rel="next" is present,
// or when the current page is already the last one; Canvas keeps emitting a
// next link on the final page of some listings.
func nextPage(h http.Header) (string, bool) {
	group := link.ParseHeader(h)
	if group == nil {
		return "", false
	}

	next, ok := group["next"]
	if !ok || next.URI == "" {
		return "", false
	}
	current, haveCurrent := group["current"]
	last, haveLast := group["last"]
	if haveCurrent && haveLast && current.URI == last.URI {
		return "", false
	}
	return next.URI, true
}
