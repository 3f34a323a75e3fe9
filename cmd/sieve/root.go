package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/praetorian-inc/sieve"
	"github.com/praetorian-inc/sieve/pkg/config"
	"github.com/praetorian-inc/sieve/pkg/logging"
	"github.com/praetorian-inc/sieve/pkg/metrics"
	"github.com/praetorian-inc/sieve/pkg/rule"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "sieve",
	Short: "Sieve - route-scoped content inspection engine",
	Long: `Sieve decides whether response text contains any of a set of forbidden
literal substrings. Each route carries its own rule set, which can be loaded,
replaced and cleared while content is being checked.

Rule sets travel as base64 text of a JSON array of strings.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format: json, console")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(routesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config, or the defaults, and applies the global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return logger, nil
}

func newEngine(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (*sieve.Engine, error) {
	policy := sieve.FailOpen
	if cfg.Engine.FailClosed {
		policy = sieve.FailClosed
	}
	return sieve.NewEngine(
		sieve.WithLogger(logger),
		sieve.WithMetrics(m),
		sieve.WithBackend(cfg.Engine.Backend),
		sieve.WithLimits(cfg.Engine.Limits),
		sieve.WithInvalidTextPolicy(policy),
	)
}

func filterConfig(cfg *config.Config) rule.FilterConfig {
	return rule.FilterConfig{Include: cfg.Rules.Include, Exclude: cfg.Rules.Exclude}
}

// loadRuleFile loads path and applies the configured include/exclude filters.
func loadRuleFile(path string, filter rule.FilterConfig) (*rule.File, error) {
	f, err := rule.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	routes, err := rule.Filter(f.Routes, filter)
	if err != nil {
		return nil, err
	}
	return &rule.File{Routes: routes}, nil
}
