package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/logging"
	"github.com/Log-Tools/commerce-events-pipeline/internal/storefront"
	"github.com/spf13/cobra"
)

var (
	configPath string
	sessions   int
	checkouts  int
	interval   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "storefront-sim",
	Short: "Simulate storefront shoppers publishing cart events to Kafka",
	Long: `Runs concurrent shopping sessions over the store catalog. Every add to
cart publishes an add_to_cart event keyed by product; every checkout
publishes a checkout event keyed by session.

Examples:
  # Four shoppers until interrupted
  storefront-sim

  # Stop after 100 checkouts
  storefront-sim --sessions 8 --checkouts 100 --interval 100ms`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSimulator,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (default: $EVENTS_PIPELINE_CONFIG, ~/.commerce-events-pipeline/config.yaml, ./config.yaml, then the environment)")
	rootCmd.Flags().IntVar(&sessions, "sessions", 0, "concurrent shopping sessions (overrides config)")
	rootCmd.Flags().IntVar(&checkouts, "checkouts", 0, "stop after this many checkouts (overrides config)")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "pause between shopper actions, e.g. 500ms (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if sessions > 0 {
		cfg.Simulator.Sessions = sessions
	}
	if checkouts > 0 {
		cfg.Simulator.SessionsToClose = checkouts
	}
	if interval > 0 {
		cfg.Simulator.Interval = interval
	}

	if err := cfg.ValidateKafka(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulator(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	producer, err := storefront.NewKafkaProducer(cfg.Kafka)
	if err != nil {
		return err
	}
	publisher := storefront.NewPublisher(producer, cfg.Kafka.Topic)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog := storefront.DefaultCatalog()
	fmt.Printf("🛒 Catalog: %d products in %s\n", len(catalog), strings.Join(catalog.Categories(), ", "))

	sim := storefront.NewSimulator(publisher, catalog, cfg.Simulator)
	runErr := sim.Run(ctx)

	remaining := publisher.Close(cfg.Simulator.FlushTimeout)
	fmt.Printf("📊 Summary: %d checkouts, %d delivered, %d failed, %d undelivered\n",
		sim.Checkouts(), publisher.Delivered(), publisher.Failed(), remaining)

	if runErr != nil {
		return runErr
	}
	if remaining > 0 {
		return fmt.Errorf("%d events were not delivered within %s", remaining, cfg.Simulator.FlushTimeout)
	}
	return nil
}
