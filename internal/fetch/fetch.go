// Package fetch provides the two page-fetching strategies used by the
// brand scrapers: a direct JSON API client and a headless-browser
// renderer for sites without a stable API.
package fetch

import "fmt"

// NetworkError reports a transport-level failure: DNS, TLS, connection
// refused. It is recoverable by falling back to the alternate fetch
// strategy or the next brand.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError reports a reachable site that answered with a non-2xx
// status or an unparsable body.
type UpstreamError struct {
	URL    string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream request to %s failed with status %d: %s", e.URL, e.Status, body)
}
