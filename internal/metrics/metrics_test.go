package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Outercircl-dev/backend/internal/domain"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.NotFound("activity %s not found", "a1"), "not_found"},
		{domain.BadRequest("nope"), "bad_request"},
		{domain.Forbidden("nope"), "forbidden"},
		{domain.Conflict(errors.New("40001"), "retry"), "conflict"},
		{fmt.Errorf("wrapped: %w", domain.Forbidden("x")), "forbidden"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestMetrics_Record(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveOperation("join", time.Now(), nil)
	m.ObserveOperation("join", time.Now(), domain.BadRequest("full"))
	m.IncTransition("", domain.ParticipantStatusConfirmed)
	m.IncTransition(domain.ParticipantStatusWaitlisted, domain.ParticipantStatusConfirmed)
	m.IncTxRetry()
	m.IncTxRetry()
	m.IncTxConflict()
	m.IncEventRecorded(domain.EventTypePromoted)
	m.IncEventDispatch(DispatchDelivered)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("join", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("join", "bad_request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("none", "confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("waitlisted", "confirmed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TxRetriesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TxConflictsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues("activity.promoted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDispatched.WithLabelValues("delivered")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("cancel", time.Now(), nil)
		m.IncTransition(domain.ParticipantStatusPending, domain.ParticipantStatusCancelled)
		m.IncTxRetry()
		m.IncTxConflict()
		m.IncEventRecorded(domain.EventTypeCancelled)
		m.IncEventDispatch(DispatchFailed)
	})
}
