// Command quakewatch runs the earthquake monitoring pipeline: it polls the
// USGS feed and the PHIVOLCS bulletin, reconciles them into one feed,
// raises one-shot magnitude alerts, and serves the merged feed over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/phquake/quakewatch/internal/adapter/httpapi"
	"github.com/phquake/quakewatch/internal/config"
	"github.com/phquake/quakewatch/internal/ledger"
	"github.com/phquake/quakewatch/internal/notify"
	"github.com/phquake/quakewatch/internal/observability"
	"github.com/phquake/quakewatch/internal/pipeline"
	"github.com/phquake/quakewatch/internal/publish"
	"github.com/phquake/quakewatch/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	primary := source.NewUSGSClient(cfg.USGSFeedURL, cfg.FetchTimeout, cfg.Region, logger, metrics)
	secondary := source.NewPHIVOLCSClient(cfg.PHIVOLCSURL, cfg.FetchTimeout, cfg.Region, logger, metrics)

	ledgerOpts := []ledger.Option{}
	if cfg.LedgerRetention > 0 {
		ledgerOpts = append(ledgerOpts, ledger.WithRetention(cfg.LedgerRetention))
	}
	led := ledger.Open(cfg.LedgerPath, logger, ledgerOpts...)
	logger.Info("alert ledger loaded", "path", cfg.LedgerPath, "entries", led.Size())

	evaluator := pipeline.NewEvaluator(led, logger, metrics)

	var opts []pipeline.Option
	if cfg.TelegramEnabled {
		opts = append(opts, pipeline.WithNotifier(
			notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.FetchTimeout, logger)))
		logger.Info("telegram notification enabled", "chat_id", cfg.TelegramChatID)
	} else {
		logger.Info("telegram notification disabled")
	}

	var publisher *publish.Writer
	if cfg.KafkaEnabled {
		publisher = publish.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		opts = append(opts, pipeline.WithPublisher(publisher))
		logger.Info("kafka alert egress enabled", "topic", cfg.KafkaAlertTopic)
	}

	p := pipeline.New(primary, secondary, evaluator, cfg.AlertThreshold, logger, metrics, opts...)

	srv := httpapi.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := p.Run(ctx, cfg.RefreshInterval); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
