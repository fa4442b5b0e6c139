package loadtest

import (
	"net/http"
	"time"
)

// measuringTransport is an http.RoundTripper that times each request and
// records it in the stats registry under "METHOD /path".
type measuringTransport struct {
	// base is the underlying RoundTripper to execute the request.
	// If nil, http.DefaultTransport is used.
	base http.RoundTripper

	stats *Registry
}

func (t *measuringTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)

	duration := time.Since(start)
	name := req.Method + " " + req.URL.Path

	if err != nil {
		t.stats.AddFailure(name)
		return nil, err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		t.stats.AddFailure(name)
	}
	t.stats.Add(name, duration)

	return resp, nil
}
