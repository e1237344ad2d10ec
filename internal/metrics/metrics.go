// Package metrics exposes Prometheus instrumentation for the map session and
// the HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/render"
)

// Metrics holds every geoplot collector. A nil *Metrics is a valid no-op.
type Metrics struct {
	// Session
	DatasetRows      prometheus.Gauge
	BoundaryFeatures prometheus.Gauge
	Renders          *prometheus.CounterVec
	RenderFailures   *prometheus.CounterVec
	PlottedPoints    prometheus.Histogram
	DiscardedRows    prometheus.Counter
	MatchedRegions   prometheus.Gauge

	// HTTP
	RequestLatency *prometheus.HistogramVec
	Requests       *prometheus.CounterVec
}

// New registers all metrics with reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DatasetRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "geoplot_dataset_rows",
			Help: "Rows in the currently loaded dataset",
		}),
		BoundaryFeatures: f.NewGauge(prometheus.GaugeOpts{
			Name: "geoplot_boundary_features",
			Help: "Features in the currently loaded boundary set",
		}),
		Renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoplot_renders_total",
			Help: "Successful redraws by mode",
		}, []string{"mode"}),
		RenderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoplot_render_failures_total",
			Help: "Aborted redraws by reason",
		}, []string{"reason"}),
		PlottedPoints: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoplot_plotted_points",
			Help:    "Markers drawn per point-mode redraw",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		DiscardedRows: f.NewCounter(prometheus.CounterOpts{
			Name: "geoplot_discarded_rows_total",
			Help: "Rows skipped for non-numeric coordinates",
		}),
		MatchedRegions: f.NewGauge(prometheus.GaugeOpts{
			Name: "geoplot_matched_regions",
			Help: "Regions colored by the last choropleth redraw",
		}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoplot_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "geoplot_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "method", "code"}),
	}
}

// DatasetLoaded implements session.Observer.
func (m *Metrics) DatasetLoaded(rows int) {
	if m != nil {
		m.DatasetRows.Set(float64(rows))
	}
}

// BoundariesLoaded implements session.Observer.
func (m *Metrics) BoundariesLoaded(features int) {
	if m != nil {
		m.BoundaryFeatures.Set(float64(features))
	}
}

// Rendered implements session.Observer.
func (m *Metrics) Rendered(scene *render.Scene) {
	if m == nil || scene == nil {
		return
	}
	m.Renders.WithLabelValues(string(scene.Mode)).Inc()
	m.DiscardedRows.Add(float64(scene.Stats.Discarded))
	if scene.Mode == mapping.ModePoint {
		m.PlottedPoints.Observe(float64(scene.Stats.Plotted))
	} else {
		m.MatchedRegions.Set(float64(scene.Stats.Matched))
	}
}

// RenderFailed implements session.Observer.
func (m *Metrics) RenderFailed(err error) {
	if m != nil {
		m.RenderFailures.WithLabelValues(FailureReason(err)).Inc()
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestLatency.WithLabelValues(route, method).Observe(d.Seconds())
	m.Requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}

// FailureReason maps a render error onto a low-cardinality label.
func FailureReason(err error) string {
	switch {
	case eris.Is(err, render.ErrNoBoundaries):
		return "no_boundaries"
	case eris.Is(err, render.ErrNoDataset):
		return "no_dataset"
	case eris.Is(err, render.ErrMissingColumns):
		return "missing_columns"
	default:
		return "other"
	}
}
