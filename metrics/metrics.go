package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	AuthEvents     *prometheus.CounterVec
	TaskOperations *prometheus.CounterVec
	ServedCached   *prometheus.CounterVec
}

func InitializeMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	metrics := &Metrics{
		AuthEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "auth_events_total",
			Help:        "Number of authentication events by outcome",
			ConstLabels: constLabels,
		}, []string{"event", "outcome"}),
		TaskOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "task_operations_total",
			Help:        "Number of task operations by outcome",
			ConstLabels: constLabels,
		}, []string{"operation", "outcome"}),
		ServedCached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "served_cached_total",
			Help:        "Number of responses served from cache",
			ConstLabels: constLabels,
		}, []string{"type"}),
	}

	registry.MustRegister(metrics.AuthEvents)
	registry.MustRegister(metrics.TaskOperations)
	registry.MustRegister(metrics.ServedCached)

	return metrics
}

// NewNop returns metrics registered on a throwaway registry, for callers
// that run with metrics disabled.
func NewNop() (*Metrics, *PerformanceMetrics) {
	registry := prometheus.NewRegistry()
	return InitializeMetrics(registry, nil), InitializePerformanceMetrics(registry, nil)
}

// Outcome maps an error to a low cardinality label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
