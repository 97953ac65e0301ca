package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Outercircl-dev/backend/internal/domain"
)

const namespace = "participation"

// Dispatch results recorded by EventsDispatched.
const (
	DispatchDelivered = "delivered"
	DispatchFailed    = "failed"
	DispatchDuplicate = "duplicate"
	DispatchSkipped   = "skipped"
)

// Metrics holds the participation engine metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	TransitionsTotal  *prometheus.CounterVec
	TxRetriesTotal    prometheus.Counter
	TxConflictsTotal  prometheus.Counter
	EventsRecorded    *prometheus.CounterVec
	EventsDispatched  *prometheus.CounterVec
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)

	return &Metrics{
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Participation operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Participation operation latency including transaction retries",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Participant status transitions",
			},
			[]string{"from", "to"},
		),
		TxRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_retries_total",
				Help:      "Transactions retried after a serialization failure or deadlock",
			},
		),
		TxConflictsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tx_conflicts_total",
				Help:      "Transactions abandoned after exhausting retries",
			},
		),
		EventsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_recorded_total",
				Help:      "Participation events written to the outbox",
			},
			[]string{"type"},
		),
		EventsDispatched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_dispatched_total",
				Help:      "Outbox delivery attempts by result",
			},
			[]string{"result"},
		),
	}
}

// ObserveOperation records the outcome and latency of one engine call.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(operation, Outcome(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncTransition(from, to domain.ParticipantStatus) {
	if m == nil {
		return
	}
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "none"
	}
	m.TransitionsTotal.WithLabelValues(fromLabel, string(to)).Inc()
}

func (m *Metrics) IncTxRetry() {
	if m == nil {
		return
	}
	m.TxRetriesTotal.Inc()
}

func (m *Metrics) IncTxConflict() {
	if m == nil {
		return
	}
	m.TxConflictsTotal.Inc()
}

func (m *Metrics) IncEventRecorded(t domain.EventType) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(string(t)).Inc()
}

func (m *Metrics) IncEventDispatch(result string) {
	if m == nil {
		return
	}
	m.EventsDispatched.WithLabelValues(result).Inc()
}

// Outcome buckets an error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
