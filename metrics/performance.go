package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type PerformanceMetrics struct {
	RepositoryOperationTime *prometheus.HistogramVec
	PasswordHashTime        prometheus.Histogram
}

func InitializePerformanceMetrics(registry prometheus.Registerer, constLabels prometheus.Labels) *PerformanceMetrics {
	metrics := &PerformanceMetrics{
		RepositoryOperationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "repository_operation_seconds",
			Help:        "Repository operation time in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"operation"}),

		PasswordHashTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "password_hash_seconds",
			Help:        "Time spent hashing or comparing passwords in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}

	registry.MustRegister(
		metrics.RepositoryOperationTime,
		metrics.PasswordHashTime,
	)

	return metrics
}

// TimeFunction measures the execution time of a repository call.
func TimeFunction[T any](fn func() (T, error), operation string, metrics *PerformanceMetrics) (T, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start).Seconds()

	if metrics != nil {
		metrics.RepositoryOperationTime.WithLabelValues(operation).Observe(duration)
	}

	return result, err
}

// TimeOperation is TimeFunction for calls that only return an error.
func TimeOperation(fn func() error, operation string, metrics *PerformanceMetrics) error {
	_, err := TimeFunction(func() (struct{}, error) {
		return struct{}{}, fn()
	}, operation, metrics)
	return err
}

// TimePasswordHash returns a func that records the elapsed hashing time.
func TimePasswordHash(metrics *PerformanceMetrics) func() {
	start := time.Now()
	return func() {
		if metrics != nil {
			metrics.PasswordHashTime.Observe(time.Since(start).Seconds())
		}
	}
}
