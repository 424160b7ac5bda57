package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/crawl-pilot/pkg/config"
	"github.com/user/crawl-pilot/pkg/logger"
	"github.com/user/crawl-pilot/pkg/metrics"
)

func main() {
	var envFile string
	root := &cobra.Command{
		Use:          "crawlpilot",
		Short:        "Planner-driven website crawling",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "optional env file read before the environment")

	root.AddCommand(serveCMD(&envFile), scanCMD(&envFile), migrateCMD(&envFile))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap loads configuration and installs the logger and metrics shared
// by every command.
func bootstrap(envFile string) (*config.Config, error) {
	cfg, err := config.LoadFile(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(os.Stderr, logger.ParseLevel(cfg.LogLevel))
	metrics.Init()
	return cfg, nil
}
