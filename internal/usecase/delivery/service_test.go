package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reviewboost/internal/domain"
)

type stubMessages struct {
	due      []domain.QueuedMessage
	sent     []string
	attempts []attemptRecord
}

type attemptRecord struct {
	messageID string
	attempt   int
	final     bool
}

func (s *stubMessages) EnqueueMessage(_ context.Context, message domain.QueuedMessage) (domain.QueuedMessage, error) {
	return message, nil
}
func (s *stubMessages) ListDueMessages(context.Context, time.Time, int) ([]domain.QueuedMessage, error) {
	return s.due, nil
}
func (s *stubMessages) MarkMessageSent(_ context.Context, messageID string, _ time.Time) error {
	s.sent = append(s.sent, messageID)
	return nil
}
func (s *stubMessages) MarkMessageAttempt(_ context.Context, messageID string, attempt int, _ string, final bool) error {
	s.attempts = append(s.attempts, attemptRecord{messageID: messageID, attempt: attempt, final: final})
	return nil
}

type stubFeedbacks struct {
	marked []string
}

func (s *stubFeedbacks) InsertFeedback(_ context.Context, feedback domain.Feedback) (domain.Feedback, error) {
	return feedback, nil
}
func (s *stubFeedbacks) ListRatings(context.Context, string) ([]int, error) { return nil, nil }
func (s *stubFeedbacks) MarkFeedbackSMSSent(_ context.Context, feedbackID string) error {
	s.marked = append(s.marked, feedbackID)
	return nil
}

type stubProfiles struct {
	smsSent int
}

func (s *stubProfiles) GetProfile(context.Context, string) (domain.BusinessProfile, error) {
	return domain.BusinessProfile{}, nil
}
func (s *stubProfiles) UpsertProfile(context.Context, domain.BusinessProfile) error { return nil }
func (s *stubProfiles) UpdateReviewStats(context.Context, string, int, float64) error {
	return nil
}
func (s *stubProfiles) IncrementScans(context.Context, string) error { return nil }
func (s *stubProfiles) IncrementSMSSent(context.Context, string) error {
	s.smsSent++
	return nil
}

type stubSender struct {
	err   error
	calls int
}

func (s *stubSender) Send(context.Context, domain.QueuedMessage) error {
	s.calls++
	return s.err
}

func TestProcessDueMarksSent(t *testing.T) {
	messages := &stubMessages{due: []domain.QueuedMessage{{
		ID:          "msg-1",
		AccountID:   "acc-1",
		FeedbackID:  "fb-1",
		Phone:       "+33600000001",
		MaxAttempts: 3,
	}}}
	feedbacks := &stubFeedbacks{}
	profiles := &stubProfiles{}
	sender := &stubSender{}
	service := NewService(messages, feedbacks, profiles, sender, 10, zerolog.Nop())

	if err := service.ProcessDue(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if sender.calls != 1 {
		t.Fatalf("ожидали одну отправку, получили %d", sender.calls)
	}
	if len(messages.sent) != 1 || messages.sent[0] != "msg-1" {
		t.Fatalf("сообщение должно быть помечено отправленным")
	}
	if len(feedbacks.marked) != 1 || feedbacks.marked[0] != "fb-1" {
		t.Fatalf("отзыв должен быть помечен обработанным")
	}
	if profiles.smsSent != 1 {
		t.Fatalf("счётчик отправок должен увеличиться")
	}
}

func TestProcessDueRetriesOnFailure(t *testing.T) {
	messages := &stubMessages{due: []domain.QueuedMessage{{
		ID:          "msg-1",
		Attempts:    0,
		MaxAttempts: 3,
	}}}
	sender := &stubSender{err: errors.New("vendor down")}
	service := NewService(messages, &stubFeedbacks{}, &stubProfiles{}, sender, 10, zerolog.Nop())

	if err := service.ProcessDue(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(messages.attempts) != 1 {
		t.Fatalf("ожидали запись попытки")
	}
	record := messages.attempts[0]
	if record.attempt != 1 {
		t.Fatalf("ожидали первую попытку, получили %d", record.attempt)
	}
	if record.final {
		t.Fatalf("попытки не исчерпаны, сообщение должно остаться в очереди")
	}
	if len(messages.sent) != 0 {
		t.Fatalf("неотправленное сообщение не должно помечаться")
	}
}

func TestProcessDueExhaustsAttempts(t *testing.T) {
	messages := &stubMessages{due: []domain.QueuedMessage{{
		ID:          "msg-1",
		Attempts:    2,
		MaxAttempts: 3,
	}}}
	sender := &stubSender{err: errors.New("vendor down")}
	service := NewService(messages, &stubFeedbacks{}, &stubProfiles{}, sender, 10, zerolog.Nop())

	if err := service.ProcessDue(context.Background()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	record := messages.attempts[0]
	if record.attempt != 3 {
		t.Fatalf("ожидали третью попытку, получили %d", record.attempt)
	}
	if !record.final {
		t.Fatalf("лимит попыток исчерпан, сообщение должно стать failed")
	}
}
