package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// PageFromQuery reads page, limit and pagination query parameters.
// pagination=false disables paging.
func PageFromQuery(r *http.Request) shared.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	req := shared.PageRequest{Page: page, Limit: limit}
	switch strings.ToLower(q.Get("pagination")) {
	case "false", "0":
		req.Disabled = true
	}
	return req.Normalize()
}

// TimeQuery parses an RFC 3339 timestamp or a YYYY-MM-DD date from the query.
// A missing parameter yields nil.
func TimeQuery(r *http.Request, name string, loc *time.Location) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return nil, shared.ValidationErrorf("%s must be RFC 3339 or YYYY-MM-DD", name)
	}
	return &t, nil
}
