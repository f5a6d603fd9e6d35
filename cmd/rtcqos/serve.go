package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/luongdev/rtcqos/pkg/calculator"
	"github.com/luongdev/rtcqos/pkg/config"
	"github.com/luongdev/rtcqos/pkg/exporter"
	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/processor"
	"github.com/luongdev/rtcqos/pkg/server"
	"github.com/luongdev/rtcqos/pkg/stats"
	"github.com/luongdev/rtcqos/pkg/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the capture ingestion and report HTTP service",
	RunE:  serveMain,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "http listen port (overrides config)")

	rootCmd.AddCommand(serveCmd)
}

// sweepInterval is how often the memory store drops expired sessions.
func sweepInterval(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0 || ttl > time.Minute:
		return time.Minute
	case ttl < time.Second:
		return time.Second
	default:
		return ttl
	}
}

func newCaptureStore(ctx context.Context, cfg config.StorageConfig) (store.CaptureStore, error) {
	switch cfg.Type {
	case "redis":
		return store.DialRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	default:
		mem := store.NewMemoryStore()
		mem.StartSweeper(ctx, sweepInterval(cfg.TTL))
		return mem, nil
	}
}

func newExporter(cfg config.ExporterConfig, reg prometheus.Registerer) (exporter.MetricsExporter, error) {
	if !cfg.Enabled {
		return exporter.NewNopExporter(), nil
	}
	return exporter.NewPrometheusExporter(cfg.Namespace, reg)
}

func serveMain(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("--- Starting rtcqos ---")

	captureStore, err := newCaptureStore(ctx, conf.Storage)
	if err != nil {
		logger.Error("error creating capture store: %v", err)
		return err
	}
	defer captureStore.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	metricsExporter, err := newExporter(conf.Exporter, reg)
	if err != nil {
		return errors.Wrap(err, "create exporter")
	}
	if err := metricsExporter.Start(ctx); err != nil {
		return errors.Wrap(err, "start exporter")
	}
	defer metricsExporter.Stop(context.Background())

	extractor := processor.NewExtractor(calculator.NewQoSCalculator(logger.Logr("calculator")))
	sessions := processor.NewSessionProcessor(
		captureStore,
		extractor,
		metricsExporter,
		stats.Filter(conf.Stats.SelectedStats),
		conf.Storage.TTL,
	)

	port := conf.HTTP.Port
	if servePort != 0 {
		port = servePort
	}
	srv := server.NewHTTPServer(port, conf.HTTP.MaxBodyBytes, server.Dependencies{
		Sessions:  sessions,
		Extractor: extractor,
		Storage:   captureStore,
		Gatherer:  reg,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	logger.InfoWithFields(map[string]interface{}{
		"port":     port,
		"storage":  conf.Storage.Type,
		"ttl":      conf.Storage.TTL.String(),
		"exporter": conf.Exporter.Enabled,
	}, "rtcqos started")

	// Listen for signals
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-srv.Errors():
		logger.Error("Error in HTTP server: %v", err)
		return err
	case sig := <-sigs:
		logger.Info("Got signal %v, beginning shutdown", sig)
		cancel()
		<-srv.Done()
		return nil
	}
}
