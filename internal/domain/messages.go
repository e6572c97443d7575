package domain

import "time"

// MessageStatus описывает состояние отложенного сообщения.
type MessageStatus string

const (
	// MessageStatusPending — сообщение ждёт отправки.
	MessageStatusPending MessageStatus = "pending"
	// MessageStatusSent — сообщение отправлено.
	MessageStatusSent MessageStatus = "sent"
	// MessageStatusFailed — попытки отправки исчерпаны.
	MessageStatusFailed MessageStatus = "failed"
	// MessageStatusCancelled — сообщение отменено и не будет отправлено.
	MessageStatusCancelled MessageStatus = "cancelled"
)

const (
	// DefaultSMSDelayHours — задержка отправки, когда профиль её не задал.
	DefaultSMSDelayHours = 72
	// DefaultSMSMessage — текст сообщения по умолчанию.
	DefaultSMSMessage = "Merci pour votre visite ! Votre avis nous intéresse."
	// DefaultBusinessName — имя отправителя по умолчанию.
	DefaultBusinessName = "Business"
)

// QueuedMessage представляет одно запланированное исходящее сообщение.
type QueuedMessage struct {
	ID           string
	AccountID    string
	FeedbackID   string
	Phone        string
	Message      string
	BusinessName string
	ScheduledAt  time.Time
	Status       MessageStatus
	Attempts     int
	MaxAttempts  int
	LastError    string
	SentAt       *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
