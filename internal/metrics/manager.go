// Package metrics holds the Prometheus instruments shared by the HTTP host and
// the session engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Commit outcomes.
const (
	CommitSuccess      = "success"
	CommitWriteFailed  = "write_failed"
	CommitPartialWrite = "partial_write"
)

// Autosave results.
const (
	AutosaveSaved   = "saved"
	AutosaveSkipped = "skipped"
	AutosaveError   = "error"
)

// Recovery outcomes.
const (
	RecoveryOffered  = "offered"
	RecoveryContinue = "continue"
	RecoveryDiscard  = "discard"
	RecoveryStale    = "stale"
	RecoveryCorrupt  = "corrupt"
)

type Manager struct {
	// counters
	CounterRequests    *prometheus.CounterVec
	CounterCommits     *prometheus.CounterVec
	CounterAutosaves   *prometheus.CounterVec
	CounterRecovery    *prometheus.CounterVec
	CounterSetsDropped prometheus.Counter
	CounterSetsLogged  prometheus.Counter
	CounterLoadErrors  *prometheus.CounterVec

	// gauges
	GaugeSessionsActive prometheus.Gauge

	// histograms
	HistCommitDuration       prometheus.Histogram
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("liftlog", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("liftlog", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterCommits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commits_total",
			Help:      "Workout commits by outcome",
		}, []string{"outcome"}),
		CounterAutosaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "autosaves_total",
			Help:      "Debounced recovery snapshot saves by result",
		}, []string{"result"}),
		CounterRecovery: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "recovery_total",
			Help:      "Recovery cache reads and decisions by outcome",
		}, []string{"outcome"}),
		CounterSetsDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_dropped_total",
			Help:      "Sets skipped at commit because they carried no weight or reps",
		}),
		CounterSetsLogged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_logged_total",
			Help:      "Sets written as workout log details",
		}),
		CounterLoadErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "load_errors_total",
			Help:      "Loader failures that degraded to an empty result",
		}, []string{"loader"}),
		GaugeSessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_active",
			Help:      "Live workout sessions held in memory",
		}),
		HistCommitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "commit_duration_seconds",
			Help:      "Duration of the durable workout write in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of response time for requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status_code"}),
	}
}

// NewUnregistered returns a Manager bound to a private registry, for
// components constructed without one.
func NewUnregistered() *Manager {
	return NewManager("liftlog", "", prometheus.NewRegistry())
}
