package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

// rootCmd runs the consumer when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "event-consumer",
	Short: "Consume storefront events from Kafka into MongoDB",
	Long: `Consumes add_to_cart and checkout events from the storefront events topic
and appends each one to its MongoDB collection: add_to_cart events to the
activity collection, checkout events to the orders collection.

Configuration is read from --config, $EVENTS_PIPELINE_CONFIG or a config.yaml in
the usual locations; without a file every setting comes from the environment.

Examples:
  # Run with settings from the environment
  event-consumer

  # Run with a config file and JSON logs
  event-consumer run --config configs/config.yaml --log-format json

  # Verify broker and database connectivity without consuming
  event-consumer check

  # Print classified events without writing to MongoDB
  event-consumer tail --from-beginning`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConsumer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default: $EVENTS_PIPELINE_CONFIG, ~/.commerce-events-pipeline/config.yaml, ./config.yaml, then the environment)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json (overrides config)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &config.ConfigError{Err: err}
	})

	rootCmd.AddCommand(runCmd, checkCmd, tailCmd)
}

// loadConfig reads the configuration, applies flag overrides and checks
// it with validate. Logging is configured from the result.
func loadConfig(validate func(*config.Config) error) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func printConfigSummary(cfg *config.Config) {
	redacted := cfg.Redacted()
	fmt.Fprintf(os.Stderr, "🔧 Configuration Summary:\n")
	fmt.Fprintf(os.Stderr, "  Kafka Brokers: %s (%s)\n", redacted.Kafka.Brokers, redacted.Kafka.SecurityProtocol)
	fmt.Fprintf(os.Stderr, "  Topic: %s\n", redacted.Kafka.Topic)
	fmt.Fprintf(os.Stderr, "  Consumer Group: %s\n", redacted.Kafka.ConsumerGroup)
	fmt.Fprintf(os.Stderr, "  Commit Mode: %s\n", redacted.Kafka.CommitMode)
	if redacted.Storage.URI != "" {
		fmt.Fprintf(os.Stderr, "  MongoDB: %s/%s\n", redacted.Storage.URI, redacted.Storage.Database)
		fmt.Fprintf(os.Stderr, "  Collections: %s, %s\n", redacted.Storage.ActivityCollection, redacted.Storage.OrdersCollection)
	}
	fmt.Fprintf(os.Stderr, "  Strict Decode: %t\n", redacted.Processing.StrictDecode)
	fmt.Fprintln(os.Stderr)
}
