package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

func main() {
	var (
		brokerList  = flag.String("brokers", "", "Comma-separated list of bootstrap brokers (overrides KAFKA_BOOTSTRAP_SERVERS)")
		topicsPath  = flag.String("topics", "configs/kafka_topics.yaml", "Path to kafka_topics.yaml")
		configPath  = flag.String("config", "", "Consumer config file for broker security settings (default: same lookup as event-consumer)")
		replication = flag.Int("replication", 3, "Replication factor for topics that do not set one")
		verbose     = flag.Bool("verbose", false, "Show detailed topic configurations")
		dryRun      = flag.Bool("dry-run", false, "Show what would be created without actually creating topics")
	)
	flag.Parse()

	tf, err := loadTopicFile(*topicsPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if len(tf.Topics) == 0 {
		log.Printf("⚠️  No topics defined in %s", *topicsPath)
		return
	}

	specs := tf.specifications(*replication)

	if *dryRun {
		fmt.Printf("🔍 Dry run mode - would create/verify %d topic(s):\n", len(specs))
		for _, spec := range specs {
			fmt.Printf("   📋 %s (partitions: %d, replication: %d, cleanup: %s)\n",
				spec.Topic, spec.NumPartitions, spec.ReplicationFactor, spec.Config["cleanup.policy"])
			if *verbose {
				for k, v := range spec.Config {
					if k != "cleanup.policy" {
						fmt.Printf("      %s: %s\n", k, v)
					}
				}
			}
		}
		return
	}

	kafkaCfg, err := loadKafkaConfig(*configPath, *brokerList)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	adminConfig := kafka.ConfigMap{}
	for key, value := range kafkaCfg.ClientProperties() {
		adminConfig[key] = value
	}
	admin, err := kafka.NewAdminClient(&adminConfig)
	if err != nil {
		log.Fatalf("❌ Failed to create admin client: %v", err)
	}
	defer admin.Close()

	if *verbose {
		fmt.Printf("🔗 Connecting to Kafka brokers: %s (%s)\n", kafkaCfg.Brokers, kafkaCfg.SecurityProtocol)
		for _, spec := range specs {
			fmt.Printf("📋 Configuring topic %s:\n", spec.Topic)
			fmt.Printf("   Partitions: %d\n", spec.NumPartitions)
			fmt.Printf("   Replication: %d\n", spec.ReplicationFactor)
			for k, v := range spec.Config {
				fmt.Printf("   %s: %s\n", k, v)
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(30*time.Second))
	if err != nil {
		log.Fatalf("❌ CreateTopics request failed: %v", err)
	}

	summary := summarize(results)
	fmt.Printf("📊 Summary: %d created, %d existing, %d failed\n", summary.created, summary.existing, summary.failed)

	if summary.failed > 0 {
		os.Exit(1)
	}
}

// loadKafkaConfig reads broker and security settings the same way the
// consumer does, so SASL credentials come from one place
func loadKafkaConfig(path, brokers string) (config.KafkaConfig, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.KafkaConfig{}, err
	}
	if brokers != "" {
		cfg.Kafka.Brokers = brokers
	}
	if cfg.Kafka.Brokers == "" {
		return config.KafkaConfig{}, fmt.Errorf("no brokers configured: set --brokers or KAFKA_BOOTSTRAP_SERVERS")
	}
	if cfg.Kafka.UsesSASL() && (cfg.Kafka.Username == "" || cfg.Kafka.Password == "") {
		return config.KafkaConfig{}, fmt.Errorf("security protocol %s needs KAFKA_API_KEY and KAFKA_API_SECRET", cfg.Kafka.SecurityProtocol)
	}
	return cfg.Kafka, nil
}
