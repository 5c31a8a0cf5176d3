// Package cache provides a Redis-backed read-through cache for search
// responses. Repeated searches within the TTL are served locally and do
// not consume key quota.
package cache

import (
	"fmt"
	"net/url"
	"strings"
)

// Key identifies one cached search response. One key per distinct
// (term, region, cursor, count) combination.
type Key struct {
	// Term is the search term as given by the caller.
	Term string

	// Region is the region code sent with the call.
	Region string

	// Cursor is the pagination offset of the call.
	Cursor int

	// Count is the requested page size.
	Count int
}

// String generates a deterministic cache key string.
// Format: search:term=<escaped>:region=<code>:cursor=<n>:count=<n>
//
// The term is query-escaped so terms containing ':' cannot collide with
// the separator.
func (k Key) String() string {
	parts := []string{
		"search",
		fmt.Sprintf("term=%s", url.QueryEscape(k.Term)),
		fmt.Sprintf("region=%s", k.Region),
		fmt.Sprintf("cursor=%d", k.Cursor),
		fmt.Sprintf("count=%d", k.Count),
	}
	return strings.Join(parts, ":")
}
