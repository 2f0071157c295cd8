package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"launchdash/internal/config"
	"launchdash/internal/dataset"
	"launchdash/internal/logging"
	"launchdash/internal/metrics"
	"launchdash/internal/store"
	"launchdash/internal/web"
)

var flags struct {
	config    string
	addr      string
	source    string
	db        string
	logLevel  string
	logFormat string

	writeConfig string
}

var rootCmd = &cobra.Command{
	Use:   "launchweb",
	Short: "Serve the SpaceX launch dashboard",
	Long: `Loads the launch table once, from a launchindex database when --db is
set or from the CSV source otherwise, and serves the dashboard until
interrupted.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.config, "config", config.DefaultPath, "Path to YAML config file")
	f.StringVar(&flags.addr, "addr", "", "Listen address (overrides config)")
	f.StringVar(&flags.source, "source", "", "CSV URL or file path (overrides config)")
	f.StringVar(&flags.db, "db", "", "Path to launchindex database (overrides config)")
	f.StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&flags.logFormat, "log-format", "", "json or console")
	f.StringVar(&flags.writeConfig, "write-config", "", "Write the effective configuration to this path and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flags.config)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if flags.writeConfig != "" {
		if err := cfg.Save(flags.writeConfig); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", flags.writeConfig)
		return nil
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := loadTable(ctx, cfg, log)
	if err != nil {
		return errors.Wrap(err, "load launch data")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	m.ObserveDataset(table)

	srv, err := web.NewServer(table, web.Options{
		Title:    cfg.Title,
		Bounds:   cfg.Slider,
		Logger:   log,
		Gatherer: reg,
		Observer: m.Observer(),
	})
	if err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("serving dashboard",
			zap.String("addr", cfg.Addr),
			zap.Int("records", table.Len()),
			zap.Int("sites", len(table.Sites())),
		)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = flags.addr
	}
	if f.Changed("source") {
		cfg.Dataset.Source = flags.source
	}
	if f.Changed("db") {
		cfg.Dataset.DB = flags.db
	}
	if f.Changed("log-level") {
		cfg.Logging.Level = flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.Logging.Format = flags.logFormat
	}
}

func loadTable(ctx context.Context, cfg *config.Config, log *zap.Logger) (*dataset.Table, error) {
	if cfg.Dataset.DB != "" {
		st, err := store.Open(cfg.Dataset.DB, store.Options{ReadOnly: true, Logger: log})
		if err != nil {
			return nil, err
		}
		defer st.Close()

		t, err := st.Load()
		if err != nil {
			return nil, err
		}
		log.Info("dataset loaded", zap.String("db", cfg.Dataset.DB), zap.Int("records", t.Len()))
		return t, nil
	}
	return dataset.NewFetcher(cfg.FetchTimeout(), log).Fetch(ctx, cfg.Dataset.Source)
}
