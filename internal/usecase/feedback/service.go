package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// ErrInvalidSubmission возвращается, когда обязательные поля отзыва не заполнены
// или рейтинг не является целым числом от 1 до 5.
var ErrInvalidSubmission = errors.New("некорректные данные отзыва")

// PublicProfile содержит публичную часть бизнес-профиля.
type PublicProfile struct {
	BusinessName     string
	GoogleReviewLink string
	LogoURL          string
	CustomColor      string
}

// SubmitParams содержит параметры публичной отправки отзыва.
type SubmitParams struct {
	AccountID string
	Email     string
	FirstName string
	Phone     string
	Rating    float64
	Comment   string
	Consent   bool
	Source    string
	UserAgent string
}

// Service принимает публичные отзывы и ведёт производные данные профиля.
type Service struct {
	profiles       domain.ProfileRepo
	feedbacks      domain.FeedbackRepo
	messages       domain.MessageRepo
	analytics      domain.AnalyticsRepo
	smsMaxAttempts int
	log            zerolog.Logger
	now            func() time.Time
}

// NewService создаёт сервис приёма отзывов.
func NewService(profiles domain.ProfileRepo, feedbacks domain.FeedbackRepo, messages domain.MessageRepo, analytics domain.AnalyticsRepo, smsMaxAttempts int, logger zerolog.Logger) *Service {
	return &Service{
		profiles:       profiles,
		feedbacks:      feedbacks,
		messages:       messages,
		analytics:      analytics,
		smsMaxAttempts: smsMaxAttempts,
		log:            logger,
		now:            time.Now,
	}
}

// PublicInfo возвращает публичные данные бизнеса для страницы отзыва
// и засчитывает сканирование.
func (s *Service) PublicInfo(ctx context.Context, accountID string) (PublicProfile, error) {
	profile, err := s.profiles.GetProfile(ctx, accountID)
	if err != nil {
		return PublicProfile{}, err
	}

	// Открытие страницы и есть сканирование QR-кода. Счётчики ведутся
	// по принципу best effort: их сбой не мешает показать страницу.
	if err := s.profiles.IncrementScans(ctx, accountID); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("feedback: не удалось увеличить счётчик сканирований")
	}
	if err := s.analytics.RecordScan(ctx, accountID, s.now()); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("feedback: не удалось записать суточную статистику")
	}

	return PublicProfile{
		BusinessName:     profile.BusinessName,
		GoogleReviewLink: profile.GoogleReviewLink,
		LogoURL:          profile.LogoURL,
		CustomColor:      profile.CustomColor,
	}, nil
}

// Submit сохраняет отзыв, при необходимости планирует отложенное сообщение
// и пересчитывает статистику профиля. Единственная операция, сбой которой
// отменяет запрос, — первичная запись отзыва: всё остальное best effort.
func (s *Service) Submit(ctx context.Context, params SubmitParams) (string, error) {
	if params.AccountID == "" || !domain.ValidRating(params.Rating) {
		return "", ErrInvalidSubmission
	}
	source := domain.FeedbackSource(params.Source)
	if source == "" {
		source = domain.FeedbackSourceQR
	}

	now := s.now()
	feedback := domain.Feedback{
		AccountID: params.AccountID,
		Email:     params.Email,
		FirstName: params.FirstName,
		Phone:     params.Phone,
		Consent:   params.Consent,
		Rating:    int(params.Rating),
		Comment:   params.Comment,
		Source:    source,
		DeviceInfo: domain.DeviceInfo{
			UserAgent: params.UserAgent,
			Timestamp: now,
		},
	}
	feedback, err := s.feedbacks.InsertFeedback(ctx, feedback)
	if err != nil {
		return "", fmt.Errorf("сохранение отзыва: %w", err)
	}
	metrics.FeedbackSubmissionsTotal.WithLabelValues(string(source)).Inc()

	s.scheduleFollowUp(ctx, feedback)
	s.recomputeStats(ctx, params.AccountID)
	if err := s.analytics.RecordReview(ctx, params.AccountID, now); err != nil {
		s.log.Error().Err(err).Str("account_id", params.AccountID).Msg("feedback: не удалось записать суточную статистику")
	}

	return feedback.ID, nil
}

func followUpEligible(source domain.FeedbackSource) bool {
	return source == domain.FeedbackSourceQR || source == domain.FeedbackSourceWiFi
}

func (s *Service) scheduleFollowUp(ctx context.Context, feedback domain.Feedback) {
	if feedback.Phone == "" || !feedback.Consent || !followUpEligible(feedback.Source) {
		return
	}
	profile, err := s.profiles.GetProfile(ctx, feedback.AccountID)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", feedback.AccountID).Msg("feedback: не удалось загрузить настройки рассылки")
		return
	}
	if !profile.SMSEnabled {
		return
	}

	delayHours := profile.SMSDelayHours
	if delayHours <= 0 {
		delayHours = domain.DefaultSMSDelayHours
	}
	text := profile.SMSMessage
	if text == "" {
		text = domain.DefaultSMSMessage
	}
	businessName := profile.BusinessName
	if businessName == "" {
		businessName = domain.DefaultBusinessName
	}

	message := domain.QueuedMessage{
		AccountID:    feedback.AccountID,
		FeedbackID:   feedback.ID,
		Phone:        feedback.Phone,
		Message:      text,
		BusinessName: businessName,
		ScheduledAt:  feedback.DeviceInfo.Timestamp.Add(time.Duration(delayHours) * time.Hour),
		MaxAttempts:  s.smsMaxAttempts,
	}
	if _, err := s.messages.EnqueueMessage(ctx, message); err != nil {
		s.log.Error().Err(err).Str("feedback_id", feedback.ID).Msg("feedback: не удалось запланировать сообщение")
		return
	}
	metrics.SMSQueuedTotal.Inc()
}

func (s *Service) recomputeStats(ctx context.Context, accountID string) {
	ratings, err := s.feedbacks.ListRatings(ctx, accountID)
	if err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("feedback: не удалось прочитать рейтинги")
		return
	}
	if len(ratings) == 0 {
		return
	}
	totalReviews, avgRating := domain.ComputeReviewStats(ratings)
	if err := s.profiles.UpdateReviewStats(ctx, accountID, totalReviews, avgRating); err != nil {
		s.log.Error().Err(err).Str("account_id", accountID).Msg("feedback: не удалось обновить статистику")
	}
}
