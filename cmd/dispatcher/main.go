// Package main provides the CLI entry point for the trigger dispatcher.
// Subcommands run the HTTP API, the Kafka job worker, a one-shot emit and
// schema migration.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tienchinh21/BKASIM-TEST-sub006/internal/config"
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "dispatcher",
	Short: "Event trigger dispatch engine",
	Long: `dispatcher reacts to named domain events by evaluating the configured trigger
rules and delivering messages through the chat, SMS and HTTP channels.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return v.BindPFlags(cmd.Flags())
	},
}

func init() {
	defaults := config.Defaults()
	flags := rootCmd.PersistentFlags()
	flags.String("postgres-dsn", defaults["postgres-dsn"].(string), "PostgreSQL connection string")
	flags.String("redis-addr", defaults["redis-addr"].(string), "Redis address for metrics and the chat access token")
	flags.String("kafka-brokers", defaults["kafka-brokers"].(string), "Kafka broker addresses (comma-separated)")
	flags.String("queue-mode", defaults["queue-mode"].(string), "Dispatch job queue: memory or kafka")
	flags.String("jobs-topic", defaults["jobs-topic"].(string), "Kafka topic for dispatch jobs")
	flags.Int("workers", defaults["workers"].(int), "Number of dispatch workers")

	rootCmd.AddCommand(serveCmd, workerCmd, emitCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler. LOG_LEVEL=debug enables
// debug output.
func setupLogging() {
	logLevel := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return nil, err
	}
	return cfg, nil
}
