package domain

import (
	"context"
	"time"
)

// AccountRepo управляет учётными записями.
type AccountRepo interface {
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	// CreateVerifiedAccount создаёт учётную запись с подтверждённой почтой.
	CreateVerifiedAccount(ctx context.Context, email, name string) (Account, error)
}

// ProfileRepo управляет бизнес-профилями.
type ProfileRepo interface {
	GetProfile(ctx context.Context, accountID string) (BusinessProfile, error)
	// UpsertProfile создаёт или обновляет профиль по идентификатору аккаунта.
	UpsertProfile(ctx context.Context, profile BusinessProfile) error
	// UpdateReviewStats записывает пересчитанные счётчик и средний рейтинг,
	// не затрагивая остальные поля блока статистики.
	UpdateReviewStats(ctx context.Context, accountID string, totalReviews int, avgRating float64) error
	// IncrementScans атомарно увеличивает счётчик сканирований.
	IncrementScans(ctx context.Context, accountID string) error
	// IncrementSMSSent атомарно увеличивает счётчик отправленных сообщений.
	IncrementSMSSent(ctx context.Context, accountID string) error
}

// FeedbackRepo управляет отзывами.
type FeedbackRepo interface {
	InsertFeedback(ctx context.Context, feedback Feedback) (Feedback, error)
	// ListRatings возвращает рейтинги всех отзывов аккаунта.
	ListRatings(ctx context.Context, accountID string) ([]int, error)
	// MarkFeedbackSMSSent помечает отзыв как обработанный SMS-рассылкой.
	MarkFeedbackSMSSent(ctx context.Context, feedbackID string) error
}

// MessageRepo управляет очередью исходящих сообщений.
type MessageRepo interface {
	EnqueueMessage(ctx context.Context, message QueuedMessage) (QueuedMessage, error)
	// ListDueMessages возвращает ожидающие сообщения с наступившим временем отправки.
	ListDueMessages(ctx context.Context, now time.Time, limit int) ([]QueuedMessage, error)
	MarkMessageSent(ctx context.Context, messageID string, sentAt time.Time) error
	// MarkMessageAttempt фиксирует неудачную попытку; при final статус становится failed.
	MarkMessageAttempt(ctx context.Context, messageID string, attempt int, lastError string, final bool) error
}

// BillingRepo управляет зеркалом биллинговых сущностей.
type BillingRepo interface {
	UpsertCustomer(ctx context.Context, accountID, customerID string) error
	AccountIDByCustomer(ctx context.Context, customerID string) (string, error)
	// UpsertSubscription перезаписывает снимок подписки, не меняя тариф профиля.
	UpsertSubscription(ctx context.Context, subscription BillingSubscription) error
	// UpsertSubscriptionWithPlan перезаписывает снимок подписки и в той же
	// транзакции приводит тариф профиля в соответствие с ценой подписки.
	UpsertSubscriptionWithPlan(ctx context.Context, subscription BillingSubscription, plan Plan) error
	UpsertOrder(ctx context.Context, order BillingOrder) error
}

// AnalyticsRepo ведёт суточные срезы активности.
type AnalyticsRepo interface {
	RecordScan(ctx context.Context, accountID string, day time.Time) error
	RecordReview(ctx context.Context, accountID string, day time.Time) error
}

// SMSSender отправляет сообщение через внешнего поставщика.
type SMSSender interface {
	Send(ctx context.Context, message QueuedMessage) error
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
