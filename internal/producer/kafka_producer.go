package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"lighthouse-checkout/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

// messageTimeoutMs caps how long librdkafka retries an undeliverable message.
const messageTimeoutMs = 10000

// KafkaProducer publishes license purchases for the notifier and any other
// downstream consumer.
type KafkaProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaProducer(bootstrapServers, topic string) (*KafkaProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  bootstrapServers,
		"acks":               "all",
		"message.timeout.ms": messageTimeoutMs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	log.WithField("topic", topic).Info("Kafka producer ready")
	return &KafkaProducer{producer: p, topic: topic}, nil
}

// PublishLicensePurchase produces one message keyed by email and waits for
// its delivery report.
func (p *KafkaProducer) PublishLicensePurchase(ctx context.Context, purchase domain.LicensePurchase) error {
	value, err := json.Marshal(purchase)
	if err != nil {
		return fmt.Errorf("failed to encode license purchase: %w", err)
	}

	delivery := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(purchase.Email),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event %v", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
		log.WithFields(log.Fields{
			"purchase_id": purchase.PurchaseID,
			"partition":   m.TopicPartition.Partition,
			"offset":      m.TopicPartition.Offset,
		}).Debug("License purchase published")
		return nil
	}
}

// Close flushes outstanding messages before closing the producer.
func (p *KafkaProducer) Close() {
	if remaining := p.producer.Flush(5000); remaining > 0 {
		log.WithField("remaining", remaining).Warn("Kafka producer closed with undelivered messages")
	}
	p.producer.Close()
}
