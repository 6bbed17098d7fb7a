package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/guarzo/eve-battles/internal/config"
)

var (
	configPath string

	cfg    *config.AppConfig
	logger = logrus.New()

	rootCmd = &cobra.Command{
		Use:   "battlescope",
		Short: "Battle reports from EVE Online killmails",
		Long: `battlescope records killmails from the zKillboard feed and groups them
into battles, with sides, phases, fleet composition and outcome.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json", "Path to the JSON config file")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// setup loads configuration and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	// 1) Optional .env, so BATTLES_ overrides can live next to the binary
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	// 2) Load configuration
	var err error
	cfg, err = config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// 3) Logger
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	lvl, parseErr := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if parseErr != nil {
		logger.Warnf("Invalid log level '%s', defaulting to 'info'", cfg.LogLevel)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
