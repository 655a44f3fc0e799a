package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

var _ Publisher = (*MetricsPublisher)(nil)

// MetricsPublisher counts publish outcomes per event type.
type MetricsPublisher struct {
	next      Publisher
	published *prometheus.CounterVec
}

// NewMetricsPublisher returns a metrics middleware for next.
func NewMetricsPublisher(reg prometheus.Registerer, next Publisher) *MetricsPublisher {
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "food_delivery",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Order events handed to the publisher, by type and result.",
	}, []string{"type", "result"})
	reg.MustRegister(published)
	return &MetricsPublisher{next: next, published: published}
}

func (m *MetricsPublisher) Publish(ctx context.Context, evt OrderEvent) error {
	err := m.next.Publish(ctx, evt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(evt.Type, result).Inc()
	return err
}

func (m *MetricsPublisher) Close() error { return m.next.Close() }
