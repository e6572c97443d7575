package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Europe/Paris"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Rabbit struct {
		URL string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Queues struct {
		Sync string `envconfig:"SYNC_QUEUE_KEY" default:"billing_sync_jobs"`
	} `envconfig:""`

	Stripe struct {
		SecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
		WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	} `envconfig:""`

	Public struct {
		BaseURL string `envconfig:"PUBLIC_BASE_URL" default:"https://app.reviewboost.io"`
	} `envconfig:""`

	SMS struct {
		VendorURL    string        `envconfig:"SMS_VENDOR_URL"`
		VendorToken  string        `envconfig:"SMS_VENDOR_TOKEN"`
		SenderName   string        `envconfig:"SMS_SENDER_NAME" default:"ReviewBoost"`
		MaxAttempts  int           `envconfig:"SMS_MAX_ATTEMPTS" default:"3"`
		PollInterval time.Duration `envconfig:"SMS_POLL_INTERVAL" default:"30s"`
		BatchSize    int           `envconfig:"SMS_BATCH_SIZE" default:"50"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
