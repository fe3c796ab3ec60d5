package consumer

import (
	"fmt"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// DefaultClientFactory provides production Kafka consumers
type DefaultClientFactory struct{}

// CreateConsumer builds a confluent consumer from the broker, security,
// group, offset reset and commit settings in cfg
func (f *DefaultClientFactory) CreateConsumer(cfg config.KafkaConfig) (Consumer, error) {
	kafkaConfig := kafka.ConfigMap{}
	for key, value := range cfg.ConsumerProperties() {
		kafkaConfig[key] = value
	}

	consumer, err := kafka.NewConsumer(&kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	return consumer, nil
}
