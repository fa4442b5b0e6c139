// Package http_middleware provides the HTTP middleware that collects SQL
// issues per request. It installs a query accumulator into the request
// context, lets the traced driver record every executed statement, and at
// response time classifies the records into n_plus_one and slow_query
// reports, emitted as DJ_TB_SQL_* response headers, log lines and store
// entries.
//
// The middleware never changes the handler's body or status code and
// swallows every internal failure, so attaching it to a route is
// behavior-preserving for clients that ignore the extra headers.
package http_middleware
