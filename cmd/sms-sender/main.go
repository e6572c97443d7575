package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"reviewboost/internal/adapters/repo"
	"reviewboost/internal/adapters/sms"
	"reviewboost/internal/infra/config"
	"reviewboost/internal/infra/db"
	logpkg "reviewboost/internal/infra/log"
	"reviewboost/internal/infra/metrics"
	deliveryusecase "reviewboost/internal/usecase/delivery"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("sms-sender: нет подключения к БД")
	}
	defer pool.Close()

	sender, err := sms.NewVendorSender(cfg.SMS.VendorURL, cfg.SMS.VendorToken, cfg.SMS.SenderName)
	if err != nil {
		logger.Fatal().Err(err).Msg("sms-sender: поставщик не настроен")
	}

	repoAdapter := repo.NewPostgres(pool)
	deliveryService := deliveryusecase.NewService(repoAdapter, repoAdapter, repoAdapter, sender, cfg.SMS.BatchSize, logger.With().Str("component", "delivery").Logger())

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	logger.Info().Dur("poll_interval", cfg.SMS.PollInterval).Msg("sms-sender: старт")
	if err := deliveryService.Run(ctx, cfg.SMS.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("sms-sender: воркер остановлен с ошибкой")
	}
	logger.Info().Msg("sms-sender: остановка")
}
