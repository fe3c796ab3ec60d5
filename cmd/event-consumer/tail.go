package main

import (
	"log/slog"
	"os"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/Log-Tools/commerce-events-pipeline/internal/service"
	"github.com/spf13/cobra"
)

var (
	tailGroup         string
	tailFromBeginning bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print classified events to stdout instead of storing them",
	Long: `Consumes the events topic with a separate consumer group and prints every
routed document as "<collection>\t<json>". Nothing is written to MongoDB
and the main consumer group's offsets are untouched.`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().StringVarP(&tailGroup, "consumer-group", "g", "event-consumer-tail", "Kafka consumer group ID")
	tailCmd.Flags().BoolVar(&tailFromBeginning, "from-beginning", false, "start from the earliest offset when the group has none")
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig((*config.Config).ValidateKafka)
	if err != nil {
		return err
	}
	// documents own stdout
	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format))

	cfg.Kafka.ConsumerGroup = tailGroup
	cfg.Kafka.CommitMode = config.CommitModeAuto
	cfg.Kafka.AutoOffsetReset = "latest"
	if tailFromBeginning {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}
	cfg.Storage.MaxConsecutiveFailures = 0
	printConfigSummary(cfg)

	ctx, stop := signalContext()
	defer stop()

	return service.New(cfg, service.WithStoreOpener(service.PrintStore(os.Stdout))).Run(ctx)
}
