package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"reviewboost/internal/adapters/repo"
	"reviewboost/internal/adapters/stripeapi"
	"reviewboost/internal/domain"
	"reviewboost/internal/infra/config"
	"reviewboost/internal/infra/db"
	logpkg "reviewboost/internal/infra/log"
	"reviewboost/internal/infra/metrics"
	"reviewboost/internal/infra/queue"
	billingusecase "reviewboost/internal/usecase/billing"
)

func main() {
	cfg := config.Load()
	logger := logpkg.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("sync-worker: нет подключения к БД")
	}
	defer pool.Close()

	var syncQueue domain.SyncQueue
	switch {
	case cfg.Rabbit.URL != "":
		rabbitQueue, err := queue.NewRabbitSyncQueue(cfg.Rabbit.URL, cfg.Queues.Sync)
		if err != nil {
			logger.Fatal().Err(err).Msg("sync-worker: нет подключения к брокеру")
		}
		defer rabbitQueue.Close()
		syncQueue = rabbitQueue
	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		syncQueue = queue.NewRedisSyncQueue(client, cfg.Queues.Sync)
	default:
		logger.Fatal().Msg("sync-worker: не задана очередь задач (AMQP_URL или REDIS_ADDR)")
	}

	repoAdapter := repo.NewPostgres(pool)
	provider := stripeapi.NewClient(cfg.Stripe.SecretKey)
	billingService := billingusecase.NewService(repoAdapter, repoAdapter, repoAdapter, provider, cfg.Public.BaseURL, logger.With().Str("component", "billing_sync").Logger())

	metrics.StartServer(ctx, logger.With().Str("component", "metrics").Logger(), cfg.MetricsAddr)

	logger.Info().Str("queue", cfg.Queues.Sync).Msg("sync-worker: старт")
	for {
		job, ack, err := syncQueue.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("sync-worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		processErr := billingService.Process(ctx, job)
		if processErr != nil {
			logger.Error().Err(processErr).Str("event_id", job.EventID).Str("customer_id", job.CustomerID).Msg("sync-worker: задача не обработана")
		}
		if err := ack(processErr == nil); err != nil {
			logger.Error().Err(err).Str("event_id", job.EventID).Msg("sync-worker: не удалось подтвердить задачу")
		}
	}
	logger.Info().Msg("sync-worker: остановка")
}
