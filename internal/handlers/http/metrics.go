package http

import (
	"net/http"
	"time"

	"github.com/sbilibin2017/promsink/internal/exposition"
	"github.com/sbilibin2017/promsink/internal/models"
)

// ContentType is the exposition format content type.
const ContentType = "text/plain; version=0.0.4"

// Snapshotter provides a consistent read-only view of the metric registry
// and the current set-expiry state.
type Snapshotter interface {
	Snapshot() []models.Metric
	Expired(now time.Time) bool
}

// NewMetricsHandler serves GET /metrics. Every request computes the expiry
// flag fresh, takes a registry snapshot, and renders it; nothing is cached
// across requests.
func NewMetricsHandler(snapshotter Snapshotter, namespace string, buckets, quantiles []float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expired := snapshotter.Expired(time.Now())
		body := exposition.Render(namespace, snapshotter.Snapshot(), buckets, quantiles, expired)

		w.Header().Set("Content-Type", ContentType)
		w.Write([]byte(body))
	}
}

// NewNotFoundHandler answers every unknown route or method with a bare 404
// and an empty body.
func NewNotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
}
