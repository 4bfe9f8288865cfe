package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/convocatorias-pro/search-service/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "convoca",
	Short: "AI-backed grant and funding call search service",
	Long:  "Searches public funding calls (convocatorias) via tiered language models with fabrication validation, deterministic fallbacks, and session persistence.",
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
