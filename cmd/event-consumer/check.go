package main

import (
	"fmt"

	"github.com/Log-Tools/commerce-events-pipeline/internal/config"
	"github.com/Log-Tools/commerce-events-pipeline/internal/service"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and probe Kafka and MongoDB, then exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig((*config.Config).Validate)
		if err != nil {
			return err
		}
		printConfigSummary(cfg)

		ctx, stop := signalContext()
		defer stop()

		if err := service.New(cfg).Check(ctx); err != nil {
			fmt.Printf("❌ Check failed: %v\n", err)
			return err
		}
		fmt.Println("✓ Kafka and MongoDB are reachable")
		return nil
	},
}
