package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ByLCY/gcodesolid/kernel"
	"github.com/ByLCY/gcodesolid/outline"
	"github.com/ByLCY/gcodesolid/toolpath"
)

// Metrics collects conversion counters on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	layers      *prometheus.CounterVec
	segments    *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
	layerTime   prometheus.Histogram
}

// New registers the conversion metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		layers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcodesolid_layers_total",
			Help: "Layers processed, by outcome.",
		}, []string{"outcome"}),
		segments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcodesolid_segments_total",
			Help: "Extrusion segments, by outcome.",
		}, []string{"outcome"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gcodesolid_diagnostics_total",
			Help: "Diagnostics recorded, by kind.",
		}, []string{"kind"}),
		layerTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gcodesolid_layer_kernel_seconds",
			Help:    "Time spent in the geometry kernel per layer.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	m.registry.MustRegister(m.layers, m.segments, m.diagnostics, m.layerTime)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Layer counts one layer outcome, eg. "exported", "failed", "empty".
func (m *Metrics) Layer(outcome string) {
	if m == nil {
		return
	}
	m.layers.WithLabelValues(outcome).Inc()
}

// Segments counts n segments with the given outcome, eg. "built", "skipped".
func (m *Metrics) Segments(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.segments.WithLabelValues(outcome).Add(float64(n))
}

// Diagnostic counts an error by its kind.
func (m *Metrics) Diagnostic(err error) {
	if m == nil || err == nil {
		return
	}
	m.diagnostics.WithLabelValues(Kind(err)).Inc()
}

// ObserveLayer records time spent in the kernel for one layer.
func (m *Metrics) ObserveLayer(d time.Duration) {
	if m == nil {
		return
	}
	m.layerTime.Observe(d.Seconds())
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Kind names the error taxonomy entry of err.
func Kind(err error) string {
	switch {
	case errors.Is(err, toolpath.ErrParseAmbiguity):
		return "parse_ambiguity"
	case errors.Is(err, toolpath.ErrLayerHeightMissing):
		return "layer_height_missing"
	case errors.Is(err, toolpath.ErrArcUnsupported):
		return "arc_unsupported"
	case errors.Is(err, outline.ErrGeometryInfeasible):
		return "geometry_infeasible"
	case errors.Is(err, kernel.ErrKernelFailure):
		return "kernel_failure"
	default:
		return "other"
	}
}
