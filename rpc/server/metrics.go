package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/dCouch/lib/registry"
	"github.com/VictoriaMetrics/metrics"
)

// httpMetrics holds the request metrics of one server
type httpMetrics struct {
	set *metrics.Set
}

func newHTTPMetrics(reg *registry.Registry) *httpMetrics {
	set := metrics.NewSet()
	set.NewGauge("dcouch_databases", func() float64 {
		return float64(len(reg.AllDBs()))
	})
	return &httpMetrics{set: set}
}

// observe records one finished request
func (m *httpMetrics) observe(route string, status int, start time.Time) {
	m.set.GetOrCreateCounter(fmt.Sprintf(`dcouch_http_requests_total{route=%q,status="%d"}`, route, status)).Inc()
	m.set.GetOrCreateHistogram(fmt.Sprintf(`dcouch_http_request_duration_seconds{route=%q}`, route)).UpdateDuration(start)
}

// middleware records every request under the mux pattern that served it
func (m *httpMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.observe(route, rw.statusCode, start)
	})
}

// writePrometheus serves the metrics in the Prometheus text format
func (m *httpMetrics) writePrometheus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	m.set.WritePrometheus(w)
}
