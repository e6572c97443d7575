package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

const fallbackCustomerName = "ReviewBoost User"

// Service выполняет задачи синхронизации биллинга: подготовку аккаунта
// после оплаты и приведение локального снимка подписки к состоянию провайдера.
type Service struct {
	accounts      domain.AccountRepo
	profiles      domain.ProfileRepo
	billing       domain.BillingRepo
	provider      domain.BillingProvider
	publicBaseURL string
	log           zerolog.Logger
}

// NewService создаёт сервис синхронизации.
func NewService(accounts domain.AccountRepo, profiles domain.ProfileRepo, billing domain.BillingRepo, provider domain.BillingProvider, publicBaseURL string, logger zerolog.Logger) *Service {
	return &Service{
		accounts:      accounts,
		profiles:      profiles,
		billing:       billing,
		provider:      provider,
		publicBaseURL: publicBaseURL,
		log:           logger,
	}
}

// Process обрабатывает одну задачу синхронизации. Возврат ошибки означает,
// что задачу стоит доставить повторно.
func (s *Service) Process(ctx context.Context, job domain.SyncJob) error {
	start := time.Now()
	err := s.process(ctx, job)
	metrics.SyncDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SyncJobsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.SyncJobsTotal.WithLabelValues("success").Inc()
	return nil
}

func (s *Service) process(ctx context.Context, job domain.SyncJob) error {
	switch job.Kind {
	case domain.SyncCauseCheckout:
		if err := s.handleCheckout(ctx, job); err != nil {
			return err
		}
		return s.SyncCustomer(ctx, job.CustomerID)
	case domain.SyncCauseSubscription, domain.SyncCausePayment:
		// Тело события не содержит достоверного состояния: синхронизация
		// всегда перечитывает текущую правду у провайдера.
		return s.SyncCustomer(ctx, job.CustomerID)
	default:
		s.log.Warn().Str("kind", string(job.Kind)).Str("event_id", job.EventID).Msg("billing: неизвестная категория задачи")
		return nil
	}
}

func (s *Service) handleCheckout(ctx context.Context, job domain.SyncJob) error {
	customer, err := s.provider.GetCustomer(ctx, job.CustomerID)
	if err != nil {
		return fmt.Errorf("получение клиента: %w", err)
	}
	if customer.Deleted || customer.Email == "" {
		s.log.Error().Str("customer_id", job.CustomerID).Msg("billing: у клиента нет почты, оплата пропущена")
		return nil
	}
	name := customer.Name
	if name == "" {
		name = fallbackCustomerName
	}

	account, err := s.accounts.GetAccountByEmail(ctx, customer.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("поиск аккаунта: %w", err)
		}
		account, err = s.accounts.CreateVerifiedAccount(ctx, customer.Email, name)
		if err != nil {
			return fmt.Errorf("создание аккаунта: %w", err)
		}
	}

	profile := domain.BusinessProfile{
		AccountID:  account.ID,
		Email:      customer.Email,
		Name:       name,
		Plan:       domain.PlanForPrice(job.PriceID),
		CustomerID: job.CustomerID,
		QRLink:     fmt.Sprintf("%s/f/%s", s.publicBaseURL, account.ID),
	}
	if err := s.profiles.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("сохранение профиля: %w", err)
	}
	if err := s.billing.UpsertCustomer(ctx, account.ID, job.CustomerID); err != nil {
		return fmt.Errorf("привязка клиента: %w", err)
	}
	if job.CheckoutSessionID != "" {
		order := domain.BillingOrder{
			CheckoutSessionID: job.CheckoutSessionID,
			CustomerID:        job.CustomerID,
			PaymentIntentID:   job.PaymentIntentID,
			AmountTotal:       job.AmountTotal,
			Currency:          job.Currency,
			PaymentStatus:     job.PaymentStatus,
		}
		if err := s.billing.UpsertOrder(ctx, order); err != nil {
			return fmt.Errorf("сохранение платежа: %w", err)
		}
	}
	s.log.Info().Str("account_id", account.ID).Str("plan", string(profile.Plan)).Msg("billing: оплата обработана")
	return nil
}

// SyncCustomer перечитывает подписки клиента у провайдера и перезаписывает
// локальный снимок. Операция идемпотентна и безопасна для повторного запуска.
func (s *Service) SyncCustomer(ctx context.Context, customerID string) error {
	accountID, err := s.billing.AccountIDByCustomer(ctx, customerID)
	if err != nil {
		if !errors.Is(err, domain.ErrCustomerNotLinked) {
			return fmt.Errorf("поиск привязки клиента: %w", err)
		}
		// Снимок ведётся по customer_id, поэтому синхронизация продолжается:
		// привязка появится при обработке оплаты.
		s.log.Warn().Str("customer_id", customerID).Msg("billing: клиент не привязан к аккаунту")
	}

	subscription, err := s.provider.LatestSubscription(ctx, customerID)
	if err != nil {
		return fmt.Errorf("получение подписок: %w", err)
	}
	if subscription == nil {
		snapshot := domain.BillingSubscription{
			CustomerID: customerID,
			Status:     domain.SubscriptionStatusNotStarted,
		}
		if err := s.billing.UpsertSubscription(ctx, snapshot); err != nil {
			return fmt.Errorf("сохранение снимка: %w", err)
		}
		s.log.Info().Str("customer_id", customerID).Msg("billing: подписок нет, снимок сброшен")
		return nil
	}

	periodStart := subscription.CurrentPeriodStart
	periodEnd := subscription.CurrentPeriodEnd
	snapshot := domain.BillingSubscription{
		CustomerID:         customerID,
		SubscriptionID:     subscription.ID,
		PriceID:            subscription.PriceID,
		CurrentPeriodStart: &periodStart,
		CurrentPeriodEnd:   &periodEnd,
		CancelAtPeriodEnd:  subscription.CancelAtPeriodEnd,
		PaymentMethodBrand: subscription.PaymentMethodBrand,
		PaymentMethodLast4: subscription.PaymentMethodLast4,
		Status:             subscription.Status,
	}
	plan := domain.PlanForPrice(subscription.PriceID)
	if err := s.billing.UpsertSubscriptionWithPlan(ctx, snapshot, plan); err != nil {
		return fmt.Errorf("сохранение снимка: %w", err)
	}
	s.log.Info().Str("customer_id", customerID).Str("account_id", accountID).Str("status", string(subscription.Status)).Str("plan", string(plan)).Msg("billing: подписка синхронизирована")
	return nil
}
