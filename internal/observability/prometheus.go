package observability

import (
	"context"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// PrometheusRecorder exports operation counts and latencies.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	total    *prometheus.CounterVec
	seconds  *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the viewer's collectors on a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "starview",
		Name:      "asset_operations_total",
		Help:      "Asset and metadata fetches by operation and outcome.",
	}, []string{"operation", "status"})
	seconds := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "starview",
		Name:      "asset_operation_seconds",
		Help:      "Latency of asset and metadata fetches.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"operation"})
	reg.MustRegister(total, seconds)
	return &PrometheusRecorder{registry: reg, total: total, seconds: seconds}
}

// Registry exposes the underlying registry for HTTP handlers or tests.
func (p *PrometheusRecorder) Registry() *prometheus.Registry { return p.registry }

// Observe implements MetricsRecorder.
func (p *PrometheusRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	p.total.WithLabelValues(operation, statusLabel(success)).Inc()
	p.seconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// WriteText dumps every gathered family in the Prometheus text format.
func (p *PrometheusRecorder) WriteText(w io.Writer) error {
	families, err := p.registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
