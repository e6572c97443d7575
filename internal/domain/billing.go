package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrProfileNotFound возвращается, когда бизнес-профиль не найден.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrAccountNotFound возвращается, когда учётная запись не найдена.
	ErrAccountNotFound = errors.New("account not found")

	// ErrCustomerNotLinked возвращается, когда клиент провайдера не привязан к аккаунту.
	ErrCustomerNotLinked = errors.New("customer not linked to account")
)

// SubscriptionStatus описывает статус подписки в терминах провайдера.
type SubscriptionStatus string

const (
	SubscriptionStatusNotStarted        SubscriptionStatus = "not_started"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// BillingCustomer связывает аккаунт с клиентом платёжного провайдера.
type BillingCustomer struct {
	AccountID  string
	CustomerID string
	CreatedAt  time.Time
	DeletedAt  *time.Time
}

// BillingSubscription хранит последний известный снимок подписки клиента.
// На одного клиента существует не более одной строки: каждая синхронизация
// перезаписывает предыдущий снимок.
type BillingSubscription struct {
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	PaymentMethodBrand string
	PaymentMethodLast4 string
	Status             SubscriptionStatus
	UpdatedAt          time.Time
}

// BillingOrder описывает разовый платёж, привязанный к сессии оплаты.
type BillingOrder struct {
	CheckoutSessionID string
	CustomerID        string
	PaymentIntentID   string
	AmountTotal       int64
	Currency          string
	PaymentStatus     string
	CreatedAt         time.Time
}

// ProviderCustomer содержит данные клиента, полученные от провайдера.
type ProviderCustomer struct {
	ID      string
	Email   string
	Name    string
	Deleted bool
}

// ProviderSubscription содержит снимок подписки со стороны провайдера.
type ProviderSubscription struct {
	ID                 string
	PriceID            string
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	PaymentMethodBrand string
	PaymentMethodLast4 string
}

// BillingProvider описывает доступ к платёжному провайдеру.
type BillingProvider interface {
	// GetCustomer возвращает клиента провайдера по идентификатору.
	GetCustomer(ctx context.Context, customerID string) (ProviderCustomer, error)
	// LatestSubscription возвращает самую свежую подписку клиента среди всех
	// статусов либо nil, когда подписок нет.
	LatestSubscription(ctx context.Context, customerID string) (*ProviderSubscription, error)
}
