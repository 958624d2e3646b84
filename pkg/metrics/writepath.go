package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initWritePathMetrics initializes metrics for the lock/commit/distributor write path.
func (m *Manager) initWritePathMetrics(cfg Config) {
	m.opRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writepath_operations_total",
			Help: "Total number of write-path operations by type and outcome",
		},
		[]string{"operation", "outcome", "reason"},
	)

	m.opPhaseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "writepath_phase_duration_seconds",
			Help:    "Duration of a single executor phase (lock, commit, push)",
			Buckets: cfg.PhaseDurationBuckets,
		},
		[]string{"operation", "phase"},
	)

	m.opTotalDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "writepath_operation_duration_seconds",
			Help:    "End-to-end duration of a write-path operation across all phases",
			Buckets: cfg.TotalDurationBuckets,
		},
		[]string{"operation"},
	)

	m.counterValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "writepath_system_counter",
			Help: "Most recently observed value of the monotonic system counter",
		},
	)

	m.lockRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "writepath_lock_retries_total",
			Help: "Number of lease acquisition retries, by path role",
		},
		[]string{"role"},
	)

	m.registry.MustRegister(m.opRequests, m.opPhaseDur, m.opTotalDur, m.counterValue, m.lockRetries)
}

// RecordOperation records the terminal outcome of a write-path operation.
func (m *Manager) RecordOperation(operation, outcome, reason string) {
	if !m.enabled {
		return
	}
	m.opRequests.WithLabelValues(operation, outcome, reason).Inc()
}

// RecordPhase records how long one executor phase took.
func (m *Manager) RecordPhase(operation, phase string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.opPhaseDur.WithLabelValues(operation, phase).Observe(d.Seconds())
}

// RecordTotal records the end-to-end duration of an operation.
func (m *Manager) RecordTotal(operation string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.opTotalDur.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveCounter publishes the latest known system counter value.
func (m *Manager) ObserveCounter(value int64) {
	if !m.enabled {
		return
	}
	m.counterValue.Set(float64(value))
}

// RecordLockRetry records a single lease-acquisition retry.
// role is "target" or "parent".
func (m *Manager) RecordLockRetry(role string) {
	if !m.enabled {
		return
	}
	m.lockRetries.WithLabelValues(role).Inc()
}
