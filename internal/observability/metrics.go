package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tristereo/stereo"
)

// Collector holds the prometheus metrics of one process. Each collector owns
// its registry, so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Analysis metrics
	Analyses        *prometheus.CounterVec
	AnalysisSeconds prometheus.Histogram
	Isomers         prometheus.Histogram
	Candidates      *prometheus.CounterVec
	Flags           *prometheus.CounterVec
}

// NewCollector creates the metrics under namespace and registers them.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyses run, by outcome",
		}, []string{"outcome"}),
		AnalysisSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one stereoisomer analysis",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
		Isomers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "isomers_per_analysis",
			Help:      "Distinct stereoisomers found per analysis",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 13),
		}),
		Candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Enumerated candidates, by fate",
		}, []string{"fate"}),
		Flags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "isomer_flags_total",
			Help:      "Per-isomer diagnostics, by kind",
		}, []string{"kind"}),
	}
	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Analyses,
		c.AnalysisSeconds,
		c.Isomers,
		c.Candidates,
		c.Flags,
	)
	return c
}

// Registry returns the registry to expose on /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveAnalysis records the outcome of one stereo.Analyze call.
func (c *Collector) ObserveAnalysis(a *stereo.Analysis, err error, took time.Duration) {
	c.AnalysisSeconds.Observe(took.Seconds())
	switch {
	case err == nil:
		c.Analyses.WithLabelValues("ok").Inc()
	case errors.Is(err, stereo.ErrTooManyStereocenters):
		c.Analyses.WithLabelValues("capped").Inc()
		return
	default:
		c.Analyses.WithLabelValues("error").Inc()
		return
	}
	c.Isomers.Observe(float64(len(a.Isomers)))
	c.Candidates.WithLabelValues("kept").Add(float64(len(a.Isomers)))
	c.Candidates.WithLabelValues("duplicate").Add(float64(a.Duplicates))
	c.Candidates.WithLabelValues("pruned").Add(float64(a.Pruned))
	for _, iso := range a.Isomers {
		for _, f := range iso.Flags {
			c.Flags.WithLabelValues(flagKind(f)).Inc()
		}
	}
}

func flagKind(err error) string {
	if errors.Is(err, stereo.ErrCanonicalizationFailed) {
		return "canonicalization"
	}
	return "cip"
}
