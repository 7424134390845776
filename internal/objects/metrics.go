package objects

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records adapter calls. A nil *Metrics records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "front50store",
			Name:      "operations_total",
			Help:      "Object store adapter operations by outcome.",
		}, []string{"op", "group", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "front50store",
			Name:      "operation_duration_seconds",
			Help:      "Object store adapter operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "group"}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.duration)
	}
	return m
}

func (m *Metrics) observe(op, group string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, group, outcome(err)).Inc()
	m.duration.WithLabelValues(op, group).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	var decodeErr *DeserializationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.As(err, &decodeErr):
		return "deserialization_error"
	default:
		return "error"
	}
}
