package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	err      error
	messages [][]byte
}

func (h *recordingHandler) HandleMessage(_ context.Context, message []byte) error {
	h.messages = append(h.messages, message)
	return h.err
}

func message(value string) *kafka.Message {
	topic := "license_purchases"
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Offset: 7},
		Value:          []byte(value),
	}
}

func TestDispatchHandsMessageToHandler(t *testing.T) {
	h := &recordingHandler{}
	c := &KafkaConsumer{topic: "license_purchases", handler: h}

	require.NoError(t, c.dispatch(context.Background(), message(`{"purchase_id":"p-1"}`)))
	require.Len(t, h.messages, 1)
	assert.JSONEq(t, `{"purchase_id":"p-1"}`, string(h.messages[0]))
}

func TestDispatchSkipsMessageOnHandlerError(t *testing.T) {
	h := &recordingHandler{err: errors.New("smtp down")}
	c := &KafkaConsumer{topic: "license_purchases", handler: h}

	assert.NoError(t, c.dispatch(context.Background(), message(`{}`)))
	assert.NoError(t, c.dispatch(context.Background(), message(`{}`)))
	assert.Len(t, h.messages, 2)
}

func TestDispatchStopsOnFatalError(t *testing.T) {
	c := &KafkaConsumer{handler: &recordingHandler{}}

	assert.NoError(t, c.dispatch(context.Background(), kafka.NewError(kafka.ErrTransport, "broker down", false)))

	err := c.dispatch(context.Background(), kafka.NewError(kafka.ErrFatal, "fenced", true))
	require.Error(t, err)
	var kerr kafka.Error
	require.ErrorAs(t, err, &kerr)
	assert.True(t, kerr.IsFatal())
}

func TestDispatchIgnoresOtherEvents(t *testing.T) {
	h := &recordingHandler{}
	c := &KafkaConsumer{handler: h}

	assert.NoError(t, c.dispatch(context.Background(), nil))
	assert.NoError(t, c.dispatch(context.Background(), kafka.PartitionEOF{}))
	assert.Empty(t, h.messages)
}
