// Package http_reporter provides an HTTP handler for exposing the collected
// SQL issues, per-endpoint metrics and runtime stats in JSON format. It's
// intended for debug endpoints and for monitoring systems that scrape the
// current state of the store.
//
// The package implements the standard http.Handler interface and can be
// mounted on any HTTP router or used with the standard library's http package.
package http_reporter
