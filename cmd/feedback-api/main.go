package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"reviewboost/internal/adapters/repo"
	"reviewboost/internal/httpapi"
	"reviewboost/internal/infra/config"
	"reviewboost/internal/infra/db"
	httpinfra "reviewboost/internal/infra/http"
	logpkg "reviewboost/internal/infra/log"
	"reviewboost/internal/infra/metrics"
	feedbackusecase "reviewboost/internal/usecase/feedback"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("feedback-api: нет подключения к БД")
	}
	defer pool.Close()

	repoAdapter := repo.NewPostgres(pool)
	feedbackService := feedbackusecase.NewService(repoAdapter, repoAdapter, repoAdapter, repoAdapter, cfg.SMS.MaxAttempts, logger.With().Str("component", "feedback").Logger())
	handler := httpapi.NewFeedbackHandler(feedbackService, logger.With().Str("component", "http").Logger())

	server := httpinfra.NewServer(logger)
	handler.Routes(server.Router)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("feedback-api: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("feedback-api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
