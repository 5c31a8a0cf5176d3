// Package scrape performs credential-authenticated fetches against the
// remote search endpoint and orchestrates them into batches. One call uses
// one credential; a batch fans calls out in parallel during the peak window
// or issues them throttled-sequentially otherwise. Every per-call result is
// returned as data; a failed call never aborts its batch.
package scrape

import (
	"encoding/json"
	"time"
)

// Remote endpoint shape. The search endpoint is fixed; only the query
// parameters vary per call.
const (
	// DefaultHost is the RapidAPI host serving the video search endpoint.
	DefaultHost = "tiktok-scraper7.p.rapidapi.com"

	// searchPath is the fixed search endpoint path.
	searchPath = "/feed/search"

	// Fixed flag values sent with every search call.
	publishTimeFlag = "0"
	sortTypeFlag    = "0"
)

// DefaultPageSize is how many items one call requests from the remote
// endpoint. Batch page computation and cursor arithmetic both use it.
const DefaultPageSize = 30

// DefaultRegion is the region code sent when none is configured.
const DefaultRegion = "US"

// SequentialDelay is the fixed throttle between consecutive calls in
// sequential mode.
const SequentialDelay = 500 * time.Millisecond

// Request describes one paginated fetch. Immutable per call.
type Request struct {
	// Term is the search term, URL-escaped on the wire.
	Term string

	// Cursor is the pagination offset passed to the remote endpoint.
	Cursor int

	// Count is the page size requested from the remote endpoint.
	Count int
}

// Outcome is the result of one call attempt, success or failure. It is
// produced exactly once per issued call and always returned as data,
// never raised as an error.
type Outcome struct {
	// OK indicates the call returned a 2xx response.
	OK bool `json:"ok"`

	// Payload is the raw response body on success. The schema is not
	// interpreted here; that belongs to the ingestion collaborator.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Err is a descriptive failure message when OK is false.
	Err string `json:"error,omitempty"`

	// KeyName identifies the credential used for the attempt.
	KeyName string `json:"key"`

	// NextCursor is always request cursor + request count. This assumes
	// the remote cursor advances by exactly the requested page size; the
	// response's own cursor field is not consulted.
	NextCursor int `json:"next_cursor"`

	// FromCache indicates the payload was served from the response cache
	// without a remote call (and without consuming quota).
	FromCache bool `json:"from_cache,omitempty"`
}
