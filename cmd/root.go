package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediguard/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mediguard",
	Short: "Anomaly-aware classification of clinical vital signs",
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
}

// buildLogger loads the config file (when given) and constructs the shared
// logger from it.
func buildLogger() (*Config, *zap.Logger, error) {
	config := defaultConfig()
	if configPath != "" {
		loaded, err := loadConfig(configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		config = loaded
	}
	log, err := logger.New(config.Log)
	if err != nil {
		return nil, nil, err
	}
	return config, log, nil
}
