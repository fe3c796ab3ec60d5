package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"gopkg.in/yaml.v3"
)

// TopicSpec represents configuration for a single Kafka topic read from YAML
type TopicSpec struct {
	Partitions        int                    `yaml:"partitions"`
	ReplicationFactor int                    `yaml:"replication_factor"`
	CleanupPolicy     string                 `yaml:"cleanup.policy"`
	Other             map[string]interface{} `yaml:",inline"`
}

type TopicFile struct {
	Topics map[string]TopicSpec `yaml:"topics"`
}

func loadTopicFile(path string) (*TopicFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var tf TopicFile
	if err := yaml.Unmarshal(content, &tf); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	for name, spec := range tf.Topics {
		if spec.Partitions <= 0 {
			return nil, fmt.Errorf("topic %s: partitions must be positive", name)
		}
	}
	return &tf, nil
}

// topicNames returns the topic names in sorted order for consistent output
func (tf *TopicFile) topicNames() []string {
	names := make([]string, 0, len(tf.Topics))
	for name := range tf.Topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// specifications builds the admin requests; defaultReplication applies to
// topics that do not set replication_factor
func (tf *TopicFile) specifications(defaultReplication int) []kafka.TopicSpecification {
	var specs []kafka.TopicSpecification
	for _, name := range tf.topicNames() {
		t := tf.Topics[name]
		cfg := map[string]string{}
		if t.CleanupPolicy != "" {
			cfg["cleanup.policy"] = t.CleanupPolicy
		}
		for k, v := range t.Other {
			cfg[k] = fmt.Sprint(v)
		}

		replication := t.ReplicationFactor
		if replication <= 0 {
			replication = defaultReplication
		}

		specs = append(specs, kafka.TopicSpecification{
			Topic:             name,
			NumPartitions:     t.Partitions,
			ReplicationFactor: replication,
			Config:            cfg,
		})
	}
	return specs
}

type creationSummary struct {
	created, existing, failed int
}

// summarize prints one line per topic result
func summarize(results []kafka.TopicResult) creationSummary {
	var s creationSummary
	for _, res := range results {
		switch res.Error.Code() {
		case kafka.ErrTopicAlreadyExists:
			fmt.Printf("✓ %s already exists\n", res.Topic)
			s.existing++
		case kafka.ErrNoError:
			fmt.Printf("✓ created %s\n", res.Topic)
			s.created++
		default:
			fmt.Printf("✗ %s: %v\n", res.Topic, res.Error)
			s.failed++
		}
	}
	return s
}
