package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ilpkit/ledgerws/pkg/ledger"
	"github.com/ilpkit/ledgerws/pkg/log"
	"github.com/ilpkit/ledgerws/pkg/wsrpc"
)

func main() {
	config, err := LoadConfig()
	if err != nil {
		log.NewZapLogger(log.Config{}).Fatal("failed to load configuration", "error", err)
	}

	logger := log.NewZapLogger(config.Log).WithName("ledger-listen")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.SetContextLogger(ctx, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := wsrpc.NewMetrics(registry)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              config.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Prometheus metrics available", "listenAddr", config.MetricsAddr, "endpoint", "/metrics")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failure", "error", err)
		}
	}()

	var printer eventPrinter = logPrinter{}
	if config.Output == OutputTable {
		printer = &tablePrinter{out: os.Stdout}
	}

	var exhausted atomic.Bool
	l := &listener{
		accounts: config.Accounts,
		printer:  printer,
		giveUp: func(error) {
			exhausted.Store(true)
			stop()
		},
	}

	notifier, err := ledger.NewNotifier(ctx, config.WebsocketURL, config.TokenSource(), l, nil, config.Channel, wsrpc.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("failed to create ledger notifier", "error", err)
	}
	l.subscribe = notifier.SubscribeAccounts

	if err := notifier.Open(ctx); err != nil {
		logger.Fatal("failed to open ledger channel", "error", err)
	}
	logger.Info("listening for ledger notifications", "url", wsrpc.RedactURL(config.WebsocketURL))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := notifier.Close(); err != nil {
		logger.Warn("error closing ledger channel", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down metrics server", "error", err)
	}

	if exhausted.Load() {
		logger.Error("ledger unreachable, exiting")
		os.Exit(1)
	}
}
