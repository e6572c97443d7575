package delivery

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// Service отправляет отложенные сообщения, срок которых наступил.
// Содержимое сообщений зафиксировано при постановке в очередь.
type Service struct {
	messages  domain.MessageRepo
	feedbacks domain.FeedbackRepo
	profiles  domain.ProfileRepo
	sender    domain.SMSSender
	batchSize int
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт воркер доставки.
func NewService(messages domain.MessageRepo, feedbacks domain.FeedbackRepo, profiles domain.ProfileRepo, sender domain.SMSSender, batchSize int, logger zerolog.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Service{
		messages:  messages,
		feedbacks: feedbacks,
		profiles:  profiles,
		sender:    sender,
		batchSize: batchSize,
		log:       logger,
		now:       time.Now,
	}
}

// Run опрашивает очередь с указанным интервалом до отмены контекста.
func (s *Service) Run(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.ProcessDue(ctx); err != nil {
				s.log.Error().Err(err).Msg("delivery: не удалось обработать очередь")
			}
		}
	}
}

// ProcessDue отправляет одну порцию сообщений с наступившим временем отправки.
func (s *Service) ProcessDue(ctx context.Context) error {
	due, err := s.messages.ListDueMessages(ctx, s.now(), s.batchSize)
	if err != nil {
		return err
	}
	for _, message := range due {
		s.deliver(ctx, message)
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, message domain.QueuedMessage) {
	attempt := message.Attempts + 1
	if err := s.sender.Send(ctx, message); err != nil {
		metrics.SMSSendErrors.Inc()
		final := message.MaxAttempts > 0 && attempt >= message.MaxAttempts
		if markErr := s.messages.MarkMessageAttempt(ctx, message.ID, attempt, err.Error(), final); markErr != nil {
			s.log.Error().Err(markErr).Str("message_id", message.ID).Msg("delivery: не удалось зафиксировать попытку")
			return
		}
		s.log.Error().Err(err).Str("message_id", message.ID).Int("attempt", attempt).Bool("final", final).Msg("delivery: отправка не удалась")
		return
	}

	if err := s.messages.MarkMessageSent(ctx, message.ID, s.now()); err != nil {
		s.log.Error().Err(err).Str("message_id", message.ID).Msg("delivery: не удалось пометить сообщение отправленным")
		return
	}
	if err := s.feedbacks.MarkFeedbackSMSSent(ctx, message.FeedbackID); err != nil {
		s.log.Error().Err(err).Str("feedback_id", message.FeedbackID).Msg("delivery: не удалось пометить отзыв")
	}
	if err := s.profiles.IncrementSMSSent(ctx, message.AccountID); err != nil {
		s.log.Error().Err(err).Str("account_id", message.AccountID).Msg("delivery: не удалось обновить счётчик отправок")
	}
}
