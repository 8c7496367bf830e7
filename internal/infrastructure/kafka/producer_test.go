package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Send(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "transactions"}

	require.NoError(t, p.Send(context.Background(), "tx-1", []byte(`{"event_type":"transaction.created"}`)))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "tx-1", string(w.messages[0].Key))
	assert.JSONEq(t, `{"event_type":"transaction.created"}`, string(w.messages[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_SendError(t *testing.T) {
	brokerDown := errors.New("broker unavailable")
	p := &Producer{writer: &fakeWriter{err: brokerDown}, topic: "transactions"}

	err := p.Send(context.Background(), "tx-1", []byte("{}"))
	assert.ErrorIs(t, err, brokerDown)
}

func TestNewProducer_ConfiguresTopic(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "transactions")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "transactions", w.Topic)
}

func TestNopProducer(t *testing.T) {
	var p KafkaProducer = NopProducer{}
	assert.NoError(t, p.Send(context.Background(), "k", nil))
	assert.NoError(t, p.Close())
}
