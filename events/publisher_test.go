package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"food-delivery-backend/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), OrderEvent{
		Type:       OrderStatusChanged,
		OrderID:    17,
		FromStatus: models.StatusOutForDelivery,
		ToStatus:   models.StatusDelivered,
		ActorRole:  models.RoleDelivery,
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "17", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte(OrderStatusChanged)}}, msg.Headers)

	var got OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, models.StatusDelivered, got.ToStatus)
	assert.Equal(t, models.StatusOutForDelivery, got.FromStatus)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestMetricsPublisher(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &fakeWriter{}
	p := NewMetricsPublisher(reg, NewKafkaPublisher(w))

	require.NoError(t, p.Publish(context.Background(), OrderEvent{Type: OrderPlaced, OrderID: 1}))
	w.err = errors.New("broker down")
	require.Error(t, p.Publish(context.Background(), OrderEvent{Type: OrderPlaced, OrderID: 2}))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.published.WithLabelValues(OrderPlaced, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.published.WithLabelValues(OrderPlaced, "error")))
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), OrderEvent{Type: OrderAssigned, OrderID: 9}))
	evts := r.Events()
	require.Len(t, evts, 1)
	evts[0].OrderID = 100
	assert.Equal(t, uint(9), r.Events()[0].OrderID)
	assert.NoError(t, Nop{}.Publish(context.Background(), OrderEvent{}))
}
