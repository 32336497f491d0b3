package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	topic string
	body  []byte
	attrs map[string]string
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, topicArn string, message []byte, attributes map[string]string) error {
	f.topic, f.body, f.attrs = topicArn, message, attributes
	return f.err
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type sample struct {
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
}

func TestSNSPublisher_AttachesEventType(t *testing.T) {
	client := &fakeSNS{}
	p := NewSNSPublisher(client, "arn:aws:sns:us-east-1:000000000000:admin-events")

	err := p.Publish(context.Background(), "order.refunded", "o-1", sample{EventType: "order.refunded", OrderID: "o-1"})
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:admin-events", client.topic)
	assert.Equal(t, "order.refunded", client.attrs["event_type"])
	assert.Equal(t, "o-1", client.attrs["entity_id"])

	var got sample
	require.NoError(t, json.Unmarshal(client.body, &got))
	assert.Equal(t, "o-1", got.OrderID)
}

func TestKafkaPublisher_KeysByEntity(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisherWithWriter(w, "admin-events")

	require.NoError(t, p.Publish(context.Background(), "label.purchased", "o-9", sample{OrderID: "o-9"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "o-9", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, "label.purchased", string(w.msgs[0].Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_SameEntitySamePartition(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "admin-events")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	defer w.Close() //nolint:errcheck

	partitions := []int{0, 1, 2, 3, 4, 5, 6, 7}
	msg := kafka.Message{Key: []byte("o-9"), Value: make([]byte, 512)}
	first := w.Balancer.Balance(msg, partitions...)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, w.Balancer.Balance(msg, partitions...))
	}
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := newKafkaPublisherWithWriter(&fakeWriter{err: errors.New("broker down")}, "admin-events")
	err := p.Publish(context.Background(), "invoice.sent", "i-1", sample{})
	assert.ErrorContains(t, err, "broker down")
}
