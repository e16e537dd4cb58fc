package api

import (
	"net/http"
	"strconv"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 200
)

// parsePagination reads "limit" and "offset" query parameters from the
// request. Missing or invalid values fall back to defaults (offset=0,
// limit=defaultPageLimit); limit is capped at maxPageLimit.
func parsePagination(r *http.Request) (limit, offset int) {
	q := r.URL.Query()

	limit = defaultPageLimit
	if n, err := strconv.Atoi(q.Get("limit")); err == nil && n > 0 {
		limit = min(n, maxPageLimit)
	}
	if n, err := strconv.Atoi(q.Get("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}

// writePage answers a list request with the page of items selected by the
// limit and offset parameters. The full count goes into X-Total-Count so
// the body stays a plain JSON array.
func writePage[T any](w http.ResponseWriter, r *http.Request, items []T) {
	limit, offset := parsePagination(r)
	start := min(offset, len(items))
	end := min(start+limit, len(items))

	w.Header().Set("X-Total-Count", strconv.Itoa(len(items)))
	page := items[start:end]
	if page == nil {
		page = []T{}
	}
	writeJSON(w, http.StatusOK, page)
}
