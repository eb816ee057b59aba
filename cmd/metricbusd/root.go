package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnykmshr/metricbus/internal/app"
	"github.com/vnykmshr/metricbus/internal/config"
	"github.com/vnykmshr/metricbus/internal/logging"
)

type rootFlags struct {
	configPath      string
	shutdownTimeout time.Duration
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "metricbusd",
		Short: "In-process metric bus daemon",
		Long: `metricbusd samples resource usage and throughput reports on a fixed
period or cron schedule and dispatches them to log, Redis, Prometheus and
OpenTelemetry sinks. Type "help" on stdin for console commands.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default: ./config/metricbus.yaml or ./metricbus.yaml)")
	root.Flags().DurationVar(&flags.shutdownTimeout, "shutdown-timeout", 5*time.Second, "how long to drain executors on exit")

	root.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok (period=%s schedule=%q pool=%d)\n",
				cfg.Metrics.Period, cfg.Metrics.Schedule, cfg.Pool.Capacity)
			return nil
		},
	})
	return root
}

func run(parent context.Context, flags rootFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mb, err := app.New(app.Options{
		Config:     cfg,
		Logger:     logger,
		Out:        os.Stdout,
		Registerer: prometheus.DefaultRegisterer,
	})
	if err != nil {
		return fmt.Errorf("build metric bus: %w", err)
	}
	if err := mb.Start(); err != nil {
		mb.Stop(flags.shutdownTimeout)
		return fmt.Errorf("start metric bus: %w", err)
	}
	defer mb.Stop(flags.shutdownTimeout)

	var srv *http.Server
	if cfg.Prometheus.Address != "" {
		srv = serveMetrics(cfg.Prometheus.Address, logger)
	}

	if cfg.Console.Enabled {
		go func() {
			if err := mb.RunConsole(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("console stopped", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), flags.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	return srv
}
