package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "docketwatch",
	Short: "Incremental sync engine for administrative violation dockets",
	Long:  "Fetches violation case records from the public hearings dataset, matches them to registered clients, tracks metadata changes with an audit trail, archives records that disappear from the source, and schedules quota-bounded OCR enrichment.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
