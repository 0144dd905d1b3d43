package server

import (
	"net/http"
	"sync/atomic"

	"vodforge/internal/metric"
)

// CountRequests bumps counter on every request.
func CountRequests(counter *metric.CounterMetric, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&counter.Counter, 1)
		next.ServeHTTP(w, r)
	})
}
