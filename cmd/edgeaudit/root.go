// edgeaudit is the terminal client for the edge audit service. Run without
// a subcommand to open the interactive UI.
//
// Usage:
//
//	edgeaudit [--open /audit/<id>]
//	edgeaudit status
//	edgeaudit audits list [--filter name] [--sort score] [--order asc] [--page 2]
//	edgeaudit audits get <id>
//	edgeaudit submit <strategy> [--asset SPY]
//	edgeaudit strategies
//	edgeaudit leaderboard [--limit 10]
//	edgeaudit history local|remote
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/edgeaudit/internal/api"
	"github.com/jask/edgeaudit/internal/config"
	"github.com/jask/edgeaudit/internal/history"
	"github.com/jask/edgeaudit/internal/logging"
	"github.com/jask/edgeaudit/internal/metrics"
)

// version is set at build time via -ldflags.
var version = "dev"

// cli carries what the persistent pre-run resolves for every command.
type cli struct {
	configPath  string
	baseURL     string
	output      string
	verbose     bool
	metricsAddr string

	cfg     config.Config
	logger  *zap.Logger
	client  *api.Client
	journal *history.Journal
	metrics *http.Server
}

func newRootCmd(c *cli) *cobra.Command {
	var open string

	root := &cobra.Command{
		Use:   "edgeaudit",
		Short: "Browse and submit strategy edge audits",
		Long: `edgeaudit talks to the edge audit service: it lists past audits,
shows their scores and submits new strategies for analysis.

Run without arguments to start the interactive interface.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd.Name() == "edgeaudit")
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runInteractive(cmd.Context(), open)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&c.configPath, "config", "", "config file (default $HOME/.config/edgeaudit/config.toml)")
	f.StringVar(&c.baseURL, "base-url", "", "service base URL, overrides api.base_url")
	f.StringVarP(&c.output, "output", "o", "table", "output format: table, json or yaml")
	f.BoolVarP(&c.verbose, "verbose", "v", false, "debug logging to stderr")
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	root.Flags().StringVar(&open, "open", "", "start on a route such as /audit/<id> or /submit")

	root.AddCommand(
		newStatusCmd(c),
		newAuditsCmd(c),
		newSubmitCmd(c),
		newStrategiesCmd(c),
		newLeaderboardCmd(c),
		newHistoryCmd(c),
	)
	return root
}

func (c *cli) setup(interactive bool) error {
	if c.configPath != "" {
		if err := os.Setenv("EDGEAUDIT_CONFIG", c.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.baseURL != "" {
		cfg.API.BaseURL = c.baseURL
	}
	if c.metricsAddr != "" {
		cfg.Metrics.Addr = c.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := parseFormat(c.output); err != nil {
		return err
	}
	c.cfg = cfg

	// The interactive UI owns the terminal, so it always logs to a file.
	opts := logging.Options{Level: cfg.Log.Level, Path: cfg.Log.Path, JSON: cfg.Log.JSON}
	if c.verbose && !interactive {
		opts = logging.Options{Level: "debug"}
	}
	if c.logger, err = logging.Init(opts); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.Metrics.Addr != "" {
		c.serveMetrics(cfg.Metrics.Addr)
	}

	c.client, err = api.New(cfg.API.BaseURL, api.WithLogger(logging.Named("api")))
	if err != nil {
		return err
	}
	return nil
}

func (c *cli) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	c.metrics = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	srv := c.metrics
	go func() {
		c.logger.Info("metrics server listening", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server exited", zap.Error(err))
		}
	}()
}

// teardown releases what setup acquired. It is safe after a failed setup.
func (c *cli) teardown() {
	if c.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = c.metrics.Shutdown(ctx)
		cancel()
	}
	if c.journal != nil {
		_ = c.journal.Close()
	}
	logging.Sync()
}

// openJournal opens the submission journal once. It returns nil when
// journaling is disabled.
func (c *cli) openJournal() (*history.Journal, error) {
	if !c.cfg.History.Enabled {
		return nil, nil
	}
	if c.journal != nil {
		return c.journal, nil
	}
	j, err := history.Open(c.cfg.History.Path, logging.Named("history"))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	c.journal = j
	return j, nil
}

// call bounds one remote call by api.request_timeout when it is set.
func (c *cli) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.API.RequestTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.API.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

func main() {
	c := &cli{}
	err := newRootCmd(c).Execute()
	c.teardown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
