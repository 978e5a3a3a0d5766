package accounts

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts activity events by type
type MetricsSink struct {
	events *prometheus.CounterVec
}

// NewMetricsSink registers the accounts_activity_events_total counter on reg.
// A nil registerer skips registration.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "activity_events_total",
		Help:      "Account lifecycle events by type.",
	}, []string{"event"})

	if reg != nil {
		if err := reg.Register(events); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
				if !ok {
					return nil, err
				}
				events = existing
			} else {
				return nil, err
			}
		}
	}

	return &MetricsSink{events: events}, nil
}

// Record implements ActivitySink.
func (m *MetricsSink) Record(_ context.Context, event ActivityEvent) error {
	m.events.WithLabelValues(string(event.EventType)).Inc()
	return nil
}

// Counter exposes the counter for an event type
func (m *MetricsSink) Counter(eventType ActivityEventType) prometheus.Counter {
	return m.events.WithLabelValues(string(eventType))
}
