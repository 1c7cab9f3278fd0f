package metrics

import (
	"fmt"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dfryer1193/timecapsule/capsule/media"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "timecapsule"

var _ media.Observer = (*PrometheusObserver)(nil)

// PrometheusObserver exports image pipeline metrics to Prometheus.
type PrometheusObserver struct {
	duration          *prometheus.HistogramVec
	failures          *prometheus.CounterVec
	collageCells      prometheus.Histogram
	placeholders      prometheus.Counter
	thumbnailFailures prometheus.Counter
}

// NewPrometheusObserver registers the pipeline metrics on reg, or on the
// default registerer when reg is nil.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of selfie normalization and collage generation.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_failures_total",
			Help:      "Failed pipeline operations by error kind.",
		}, []string{"operation", "kind"}),
		collageCells: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collage_cells",
			Help:      "Number of cells requested per collage.",
			Buckets:   []float64{1, 4, 9, 16, 25, 36},
		}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collage_placeholders_total",
			Help:      "Collage cells drawn as placeholders because the source image was unreadable.",
		}),
		thumbnailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thumbnail_failures_total",
			Help:      "Selfies saved without a thumbnail.",
		}),
	}

	collectors := []prometheus.Collector{o.duration, o.failures, o.collageCells, o.placeholders, o.thumbnailFailures}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register pipeline metric: %w", err)
		}
	}
	return o, nil
}

func (o *PrometheusObserver) ObserveNormalize(d time.Duration, result domain.SaveResult) {
	if o == nil {
		return
	}
	switch r := result.(type) {
	case domain.SaveSuccess:
		o.duration.WithLabelValues("normalize", "success").Observe(d.Seconds())
		if r.ThumbnailErr != nil {
			o.thumbnailFailures.Inc()
		}
	case domain.SaveError:
		o.duration.WithLabelValues("normalize", "error").Observe(d.Seconds())
		o.failures.WithLabelValues("normalize", r.Kind.String()).Inc()
	}
}

func (o *PrometheusObserver) ObserveCollage(d time.Duration, cells int, result domain.CollageResult) {
	if o == nil {
		return
	}
	o.collageCells.Observe(float64(cells))
	switch r := result.(type) {
	case domain.CollageSuccess:
		o.duration.WithLabelValues("collage", "success").Observe(d.Seconds())
		o.placeholders.Add(float64(len(r.Placeholders)))
	case domain.CollageError:
		o.duration.WithLabelValues("collage", "error").Observe(d.Seconds())
		o.failures.WithLabelValues("collage", r.Kind.String()).Inc()
	}
}
