package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/shinker1002/seb40-main-019/pkg/logger"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

// ----------------------------------------------------------------------------
// Event
// ----------------------------------------------------------------------------

func TestNewEvent_Fields(t *testing.T) {
	type reviewData struct {
		ReviewID int64 `json:"review_id"`
		Star     int   `json:"star"`
	}

	event, err := NewEvent("review.created", "marketplace", Aggregate{Type: "review", ID: 42}, reviewData{ReviewID: 42, Star: 5})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "review.created", event.EventType)
	assert.Equal(t, Aggregate{Type: "review", ID: 42}, event.Aggregate())
	assert.Equal(t, 1, event.Version)
	assert.Zero(t, event.ActorID)
	assert.WithinDuration(t, time.Now().UTC(), event.OccurredAt, 2*time.Second)
	assert.JSONEq(t, `{"review_id":42,"star":5}`, string(event.Data))
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("x", "svc", Aggregate{Type: "x", ID: 1}, make(chan int))
	require.Error(t, err)
}

func TestAggregate_Key(t *testing.T) {
	assert.Equal(t, "review:42", Aggregate{Type: "review", ID: 42}.Key())
	assert.Equal(t, "user:0", Aggregate{Type: "user"}.Key())
}

func TestEvent_MarshalEnvelope(t *testing.T) {
	event, err := NewEvent("user.deleted", "marketplace", Aggregate{Type: "user", ID: 7}, map[string]string{"origin": "original"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1").WithActor(7)

	raw, err := event.Marshal()
	require.NoError(t, err)

	var restored Event
	require.NoError(t, json.Unmarshal(raw, &restored))
	assert.Equal(t, "corr-1", restored.CorrelationID)
	assert.Equal(t, int64(7), restored.ActorID)
	assert.Equal(t, int64(7), restored.AggregateID)
	assert.JSONEq(t, `{"origin":"original"}`, string(restored.Data))
}

func TestEvent_MarshalOmitsSystemActor(t *testing.T) {
	event, err := NewEvent("user.test_accounts_purged", "marketplace", Aggregate{Type: "user"}, nil)
	require.NoError(t, err)

	raw, err := event.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "actor_id")
}

// ----------------------------------------------------------------------------
// Producer
// ----------------------------------------------------------------------------

func TestProducer_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, []string{"localhost:9092"}, logger.New("test", "error"))

	event, err := NewEvent("review.created", "marketplace", Aggregate{Type: "review", ID: 9}, nil)
	require.NoError(t, err)
	event.WithCorrelationID("c-9").WithActor(3)

	before := testutil.ToFloat64(ProducerMessagesPublished.WithLabelValues("reviews"))
	require.NoError(t, p.Publish(context.Background(), "reviews", event))
	assert.Equal(t, before+1, testutil.ToFloat64(ProducerMessagesPublished.WithLabelValues("reviews")))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "reviews", msg.Topic)
	assert.Equal(t, []byte("review:9"), msg.Key)

	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "review.created", carrier.Get("event_type"))
	assert.Equal(t, "c-9", carrier.Get("correlation_id"))
	assert.Equal(t, "3", carrier.Get("actor_id"))
}

func TestProducer_PublishError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	p := newProducer(w, nil, logger.New("test", "error"))

	event, err := NewEvent("user.signed_up", "marketplace", Aggregate{Type: "user", ID: 1}, nil)
	require.NoError(t, err)

	before := testutil.ToFloat64(ProducerPublishErrors.WithLabelValues("users"))
	err = p.Publish(context.Background(), "users", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to users")
	assert.Equal(t, before+1, testutil.ToFloat64(ProducerPublishErrors.WithLabelValues("users")))
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prevProp) })

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := &recordingWriter{}
	p := newProducer(w, nil, logger.New("test", "error"))
	event, err := NewEvent("review.deleted", "marketplace", Aggregate{Type: "review", ID: 3}, nil)
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, "reviews", event))

	require.Len(t, w.msgs, 1)
	traceparent := NewHeaderCarrier(&w.msgs[0].Headers).Get("traceparent")
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}

func TestProducer_Close(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, nil, logger.New("test", "error"))
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	err := PingBrokers(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

// ----------------------------------------------------------------------------
// HeaderCarrier
// ----------------------------------------------------------------------------

func TestHeaderCarrier_SetOverwrites(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Empty(t, c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}
