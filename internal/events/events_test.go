package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &stubWriter{}
	p := NewKafkaPublisher(w, "storeserver", nil)
	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{Type: ActivityStarted, RangerID: "r1", ActivityID: "a1", OccurredAt: at})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	require.Equal(t, "r1", string(msg.Key))
	require.Equal(t, ActivityStarted, header(msg, "event_type"))
	require.Equal(t, "storeserver", header(msg, "source"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, "a1", decoded.ActivityID)
	require.True(t, at.Equal(decoded.OccurredAt))

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &stubWriter{err: errors.New("broker down")}
	p := NewKafkaPublisher(w, "storeserver", nil)

	err := p.Publish(context.Background(), Event{Type: FindingReported, RangerID: "r1"})
	require.ErrorContains(t, err, "broker down")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "fieldwork.lifecycle")
	require.Equal(t, "fieldwork.lifecycle", w.Topic)
	require.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
