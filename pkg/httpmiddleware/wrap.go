// Package httpmiddleware provides composable net/http middleware: panic
// recovery, CORS, rate limiting, request IDs, logging, and OpenTelemetry
// instrumentation.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware func(http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware in the list becomes
// the outermost wrapper, so it sees the request first.
func Wrap(h http.Handler, mw ...Middleware) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// RouteFinder resolves a request to its route pattern before the mux has
// dispatched it. Used to label telemetry and logs with low-cardinality
// routes instead of raw URLs.
type RouteFinder func(*http.Request) string

// MakeRouteFinder builds a RouteFinder from a ServeMux by consulting its
// routing table without serving the request.
func MakeRouteFinder(mux *http.ServeMux) RouteFinder {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}
