package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// EnqueueMessage сохраняет запланированное сообщение в очередь отправки.
func (p *Postgres) EnqueueMessage(ctx context.Context, message domain.QueuedMessage) (domain.QueuedMessage, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.Status == "" {
		message.Status = domain.MessageStatusPending
	}
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO sms_queue (id, account_id, feedback_id, phone, message, business_name, scheduled_at, status, max_attempts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at, updated_at
`, message.ID, message.AccountID, message.FeedbackID, message.Phone, message.Message,
		message.BusinessName, message.ScheduledAt, message.Status, message.MaxAttempts).
		Scan(&message.CreatedAt, &message.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "sms_queue_enqueue", "sms_queue", start, err)
	if err != nil {
		return domain.QueuedMessage{}, err
	}
	return message, nil
}

// ListDueMessages возвращает ожидающие сообщения с наступившим временем отправки.
func (p *Postgres) ListDueMessages(ctx context.Context, now time.Time, limit int) ([]domain.QueuedMessage, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, account_id, feedback_id, phone, message, business_name, scheduled_at,
       status, attempts, max_attempts, COALESCE(last_error, ''), sent_at, created_at, updated_at
FROM sms_queue
WHERE status = 'pending' AND scheduled_at <= $1
ORDER BY scheduled_at
LIMIT $2
`, now, limit)
	metrics.ObserveNetworkRequest("postgres", "sms_queue_list_due", "sms_queue", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.QueuedMessage
	for rows.Next() {
		var (
			message domain.QueuedMessage
			sentAt  sql.NullTime
		)
		if err := rows.Scan(&message.ID, &message.AccountID, &message.FeedbackID, &message.Phone,
			&message.Message, &message.BusinessName, &message.ScheduledAt, &message.Status,
			&message.Attempts, &message.MaxAttempts, &message.LastError, &sentAt,
			&message.CreatedAt, &message.UpdatedAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			ts := sentAt.Time
			message.SentAt = &ts
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// MarkMessageSent помечает сообщение отправленным.
func (p *Postgres) MarkMessageSent(ctx context.Context, messageID string, sentAt time.Time) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE sms_queue
SET status = 'sent', sent_at = $2, updated_at = now()
WHERE id = $1
`, messageID, sentAt)
	metrics.ObserveNetworkRequest("postgres", "sms_queue_mark_sent", "sms_queue", start, err)
	return err
}

// MarkMessageAttempt фиксирует неудачную попытку отправки.
// При final сообщение переводится в статус failed и больше не выбирается.
func (p *Postgres) MarkMessageAttempt(ctx context.Context, messageID string, attempt int, lastError string, final bool) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE sms_queue
SET attempts = $2,
    last_error = NULLIF($3, ''),
    status = CASE WHEN $4 THEN 'failed' ELSE status END,
    updated_at = now()
WHERE id = $1
`, messageID, attempt, lastError, final)
	metrics.ObserveNetworkRequest("postgres", "sms_queue_mark_attempt", "sms_queue", start, err)
	return err
}
