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
	"github.com/redis/go-redis/v9"

	"reviewboost/internal/domain"
	"reviewboost/internal/httpapi"
	"reviewboost/internal/infra/cache"
	"reviewboost/internal/infra/config"
	httpinfra "reviewboost/internal/infra/http"
	logpkg "reviewboost/internal/infra/log"
	"reviewboost/internal/infra/metrics"
	"reviewboost/internal/infra/queue"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var syncQueue domain.SyncQueue
	switch {
	case cfg.Rabbit.URL != "":
		rabbitQueue, err := queue.NewRabbitSyncQueue(cfg.Rabbit.URL, cfg.Queues.Sync)
		if err != nil {
			logger.Fatal().Err(err).Msg("billing-webhook: нет подключения к брокеру")
		}
		defer rabbitQueue.Close()
		syncQueue = rabbitQueue
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		syncQueue = queue.NewRedisSyncQueue(client, cfg.Queues.Sync)
	default:
		logger.Fatal().Msg("billing-webhook: не задана очередь задач (AMQP_URL или REDIS_ADDR)")
	}

	var dedupeCache domain.Cache
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		dedupeCache = cache.NewRedis(client)
	}

	handler := httpapi.NewWebhookHandler(syncQueue, dedupeCache, cfg.Stripe.WebhookSecret, logger.With().Str("component", "webhook").Logger())

	server := httpinfra.NewServer(logger, "stripe-signature")
	handler.Routes(server.Router)

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)
	go func() {
		if err := server.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("billing-webhook: сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("billing-webhook: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
