package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/sdk/app"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrument returns a middleware that traces requests and records request
// counts and durations via OpenTelemetry. Spans are named after the route
// pattern so cardinality stays bounded.
func Instrument(serviceName string, find RouteFinder, m *app.Telemetry) Middleware {
	meter := m.MeterProvider().Meter(serviceName)
	requests, _ := meter.Int64Counter("http.server.requests",
		metric.WithDescription("Number of HTTP requests received"),
	)

	return func(next http.Handler) http.Handler {
		counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := find(r)
			requests.Add(r.Context(), 1,
				metric.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("http.route", route),
				),
			)
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(attribute.String("http.route", route))
			}
			next.ServeHTTP(w, r)
		})

		return otelhttp.NewHandler(counted, serviceName,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithPropagators(m.TextMapPropagator()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if route := find(r); route != "" {
					return route
				}
				return r.Method
			}),
		)
	}
}

// Labeler returns a middleware that attaches the route pattern to the
// otelhttp labeler, so the standard duration histogram is grouped by route.
func Labeler(find RouteFinder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if labeler, ok := otelhttp.LabelerFromContext(r.Context()); ok {
				labeler.Add(attribute.String("http.route", find(r)))
			}
			next.ServeHTTP(w, r)
		})
	}
}
