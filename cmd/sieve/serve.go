package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/sieve/pkg/config"
	"github.com/praetorian-inc/sieve/pkg/metrics"
	"github.com/praetorian-inc/sieve/pkg/rule"
	"github.com/praetorian-inc/sieve/pkg/serve"
	"github.com/praetorian-inc/sieve/pkg/store"
	"github.com/praetorian-inc/sieve/pkg/watch"
)

var (
	serveRulesPath   string
	serveWatch       bool
	serveMetricsAddr string
	serveJournal     string
	serveFailClosed  bool
	serveBackend     string
	serveInclude     string
	serveExclude     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the NDJSON control server",
	Long: `Run sieve as a long-lived server that accepts load, clear and check
requests via stdin and writes one JSON response per request to stdout.

A rule file can be preloaded with --rules and kept in sync with --watch.
The process runs until stdin closes, a "close" request arrives, or SIGTERM
is received.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveRulesPath, "rules", "", "Rule file to preload")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload the rule file when it changes")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	serveCmd.Flags().StringVar(&serveJournal, "journal", "", "Journal control operations to this SQLite file, or :memory:")
	serveCmd.Flags().BoolVar(&serveFailClosed, "fail-closed", false, "Report text that is not valid UTF-8 as a match")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "Matcher backend: ahocorasick, hyperscan")
	serveCmd.Flags().StringVar(&serveInclude, "rules-include", "", "Only preload routes whose name matches these regexes (comma-separated)")
	serveCmd.Flags().StringVar(&serveExclude, "rules-exclude", "", "Skip routes whose name matches these regexes (comma-separated)")
}

// loadServeConfig merges serve flags over the configuration file.
func loadServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("rules") {
		cfg.Rules.File = serveRulesPath
	}
	if flags.Changed("watch") {
		cfg.Rules.Watch = serveWatch
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = serveMetricsAddr
	}
	if flags.Changed("journal") {
		cfg.Journal.Path = serveJournal
	}
	if flags.Changed("fail-closed") {
		cfg.Engine.FailClosed = serveFailClosed
	}
	if flags.Changed("backend") {
		cfg.Engine.Backend = serveBackend
	}
	if flags.Changed("rules-include") {
		cfg.Rules.Include = rule.ParsePatterns(serveInclude)
	}
	if flags.Changed("rules-exclude") {
		cfg.Rules.Exclude = rule.ParsePatterns(serveExclude)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engine, err := newEngine(cfg, logger, metrics.New(reg))
	if err != nil {
		return err
	}

	var journal store.Store
	if cfg.Journal.Path != "" {
		journal, err = store.New(cfg.StoreConfig())
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer journal.Close()
	}

	// Set up signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Rules.File != "" {
		var target rule.Target = engine
		if journal != nil {
			source := "rules"
			if cfg.Rules.Watch {
				source = "watch"
			}
			target = &journaled{target: engine, journal: journal, source: source, logger: logger}
		}
		if err := startRules(ctx, g, cfg, target, logger); err != nil {
			return err
		}
	}

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger)
		})
	}

	opts := []serve.Option{serve.WithLogger(logger)}
	if journal != nil {
		opts = append(opts, serve.WithJournal(journal))
	}
	srv := serve.NewServer(engine, cmd.InOrStdin(), cmd.OutOrStdout(), opts...)

	g.Go(func() error {
		// The other goroutines stop once the control stream ends.
		defer cancel()
		return srv.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// startRules preloads the rule file, and with watching enabled keeps the
// engine in sync with it until ctx is done.
func startRules(ctx context.Context, g *errgroup.Group, cfg *config.Config, target rule.Target, logger *zap.Logger) error {
	filter := filterConfig(cfg)

	if !cfg.Rules.Watch {
		f, err := loadRuleFile(cfg.Rules.File, filter)
		if err != nil {
			return err
		}
		if err := rule.Apply(f, target); err != nil {
			logger.Warn("some routes failed to load", zap.Error(err))
		}
		logger.Info("rule file loaded", zap.String("path", cfg.Rules.File), zap.Int("routes", len(f.Routes)))
		return nil
	}

	w, err := watch.NewWatcher(cfg.Rules.File, target,
		watch.WithLogger(logger),
		watch.WithDebounceDelay(cfg.Rules.Debounce.Duration()),
		watch.WithFilter(filter),
	)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		if w.LastFile() == nil {
			w.Stop() //nolint:errcheck
			return fmt.Errorf("loading rules: %w", err)
		}
		logger.Warn("rule watcher started with errors", zap.Error(err))
	}

	g.Go(func() error {
		<-ctx.Done()
		return w.Stop()
	})
	return nil
}
