package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fetch-merge-alert pipeline.
type Metrics struct {
	FetchRequests *prometheus.CounterVec   // labels: source={usgs,phivolcs}, outcome={success,error,empty}
	FetchDuration *prometheus.HistogramVec // labels: source
	EventsFetched *prometheus.CounterVec   // labels: source
	RowsSkipped   *prometheus.CounterVec   // labels: source, reason={bad_time,bad_coords,out_of_region}

	MergedFeedSize    prometheus.Histogram
	DuplicatesDropped prometheus.Counter

	AlertsRaised    prometheus.Counter
	LedgerSize      prometheus.Gauge
	NotifyDeliveries *prometheus.CounterVec // labels: outcome={success,error}
	AlertsPublished prometheus.Counter

	CycleDuration   prometheus.Histogram
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.EventsFetched,
		m.RowsSkipped,
		m.MergedFeedSize,
		m.DuplicatesDropped,
		m.AlertsRaised,
		m.LedgerSize,
		m.NotifyDeliveries,
		m.AlertsPublished,
		m.CycleDuration,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "fetch_requests_total",
			Help:      "Upstream feed fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "quakewatch",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"source"}),
		EventsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "events_fetched_total",
			Help:      "In-region events normalized per source.",
		}, []string{"source"}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "rows_skipped_total",
			Help:      "Upstream rows/features dropped during normalization, by reason.",
		}, []string{"source", "reason"}),
		MergedFeedSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakewatch",
			Name:      "merged_feed_size",
			Help:      "Number of events in the merged feed per cycle.",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		DuplicatesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "duplicates_dropped_total",
			Help:      "Secondary events discarded as cross-source duplicates.",
		}),
		AlertsRaised: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "alerts_raised_total",
			Help:      "Newly-alerted events committed to the ledger.",
		}),
		LedgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakewatch",
			Name:      "ledger_size",
			Help:      "Identities currently held in the alert ledger.",
		}),
		NotifyDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "notify_deliveries_total",
			Help:      "Outbound alert notifications by outcome.",
		}, []string{"outcome"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quakewatch",
			Name:      "alerts_published_total",
			Help:      "Alert events written to the egress topic.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quakewatch",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fetch-merge-evaluate cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quakewatch",
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
	}
}
