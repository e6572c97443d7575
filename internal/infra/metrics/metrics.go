package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	WebhookEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Количество принятых событий провайдера по типам",
	}, []string{"type"})

	WebhookEventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "webhook_events_dropped_total",
		Help: "События без клиента провайдера, отброшенные без обработки",
	})

	SyncJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_sync_jobs_total",
		Help: "Количество обработанных задач синхронизации по результату",
	}, []string{"status"})

	SyncDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_sync_duration_seconds",
		Help:    "Время полной синхронизации клиента",
		Buckets: prometheus.DefBuckets,
	})

	FeedbackSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_submissions_total",
		Help: "Количество принятых отзывов по каналам",
	}, []string{"source"})

	SMSQueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sms_queued_total",
		Help: "Количество поставленных в очередь сообщений",
	})

	SMSSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sms_send_errors_total",
		Help: "Ошибки отправки сообщений поставщиком",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		WebhookEventsTotal,
		WebhookEventsDropped,
		SyncJobsTotal,
		SyncDurationSeconds,
		FeedbackSubmissionsTotal,
		SMSQueuedTotal,
		SMSSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}
