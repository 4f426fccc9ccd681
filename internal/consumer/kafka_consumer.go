package consumer

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) error
}

type KafkaConsumer struct {
	consumer *kafka.Consumer
	topic    string
	handler  MessageHandler
}

// NewKafkaConsumer creates a consumer in groupID and subscribes it to topic.
func NewKafkaConsumer(bootstrapServers, groupID, topic string, handler MessageHandler) (*KafkaConsumer, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": bootstrapServers,
		"group.id":          groupID,
		"auto.offset.reset": "earliest",
	}
	log.WithField("config", fmt.Sprintf("%+v", configMap)).Debug("Kafka consumer config")

	c, err := kafka.NewConsumer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{topic}, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	log.WithField("topic", topic).Info("Subscribed to Kafka topic")
	return &KafkaConsumer{consumer: c, topic: topic, handler: handler}, nil
}

// Start polls until ctx is cancelled or Kafka reports a fatal error. Handler
// failures are logged and the message is skipped.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("Kafka consumer stopping due to context cancellation")
			return ctx.Err()
		default:
			if err := c.dispatch(ctx, c.consumer.Poll(100)); err != nil {
				return err
			}
		}
	}
}

// dispatch routes one polled event and returns an error only when the
// consumer must stop.
func (c *KafkaConsumer) dispatch(ctx context.Context, ev kafka.Event) error {
	switch e := ev.(type) {
	case *kafka.Message:
		logCtx := log.WithFields(log.Fields{
			"topic":  c.topic,
			"offset": e.TopicPartition.Offset,
		})
		if err := c.handler.HandleMessage(ctx, e.Value); err != nil {
			logCtx.WithError(err).Error("Failed to handle license purchase")
			return nil
		}
		logCtx.Debug("License purchase handled")
	case kafka.Error:
		log.WithError(e).Error("Kafka error")
		if e.IsFatal() {
			return fmt.Errorf("fatal kafka error: %w", e)
		}
	}
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.consumer.Close()
}
