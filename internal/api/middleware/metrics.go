package middleware

import (
	"net/http"
	"sync/atomic"
)

// Counters are the request totals exposed on /metrics.
type Counters struct {
	Requests     atomic.Int64
	ClientErrors atomic.Int64
	ServerErrors atomic.Int64
	RateLimited  atomic.Int64
}

// MetricsCollector counts requests by outcome.
type MetricsCollector struct {
	counters *Counters
}

func NewMetricsCollector(c *Counters) *MetricsCollector {
	return &MetricsCollector{counters: c}
}

func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mc.counters.Requests.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		switch {
		case rw.statusCode == http.StatusTooManyRequests:
			mc.counters.RateLimited.Add(1)
			mc.counters.ClientErrors.Add(1)
		case rw.statusCode >= 500:
			mc.counters.ServerErrors.Add(1)
		case rw.statusCode >= 400:
			mc.counters.ClientErrors.Add(1)
		}
	})
}
