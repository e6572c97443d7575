package domain

import (
	"context"
	"time"
)

// SyncJobKind описывает категорию события провайдера, породившего задачу.
type SyncJobKind string

const (
	// SyncCauseCheckout — завершённая сессия оплаты.
	SyncCauseCheckout SyncJobKind = "checkout"
	// SyncCauseSubscription — событие жизненного цикла подписки.
	SyncCauseSubscription SyncJobKind = "subscription"
	// SyncCausePayment — разовый платёж без счёта.
	SyncCausePayment SyncJobKind = "payment"
)

// SyncJob содержит информацию о задаче синхронизации биллинга.
type SyncJob struct {
	EventID           string      `json:"event_id"`
	EventType         string      `json:"event_type"`
	Kind              SyncJobKind `json:"kind"`
	CustomerID        string      `json:"customer_id"`
	CheckoutSessionID string      `json:"checkout_session_id,omitempty"`
	PriceID           string      `json:"price_id,omitempty"`
	PaymentIntentID   string      `json:"payment_intent_id,omitempty"`
	AmountTotal       int64       `json:"amount_total,omitempty"`
	Currency          string      `json:"currency,omitempty"`
	PaymentStatus     string      `json:"payment_status,omitempty"`
	RequestedAt       time.Time   `json:"requested_at"`
}

// SyncAckFunc подтверждает успешную обработку или запрашивает повтор доставки задачи.
type SyncAckFunc func(success bool) error

// SyncQueue описывает очередь задач синхронизации биллинга.
type SyncQueue interface {
	Enqueue(ctx context.Context, job SyncJob) error
	Receive(ctx context.Context) (SyncJob, SyncAckFunc, error)
}
