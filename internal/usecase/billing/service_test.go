package billing

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reviewboost/internal/domain"
)

type stubStore struct {
	accounts      map[string]domain.Account
	created       int
	profiles      map[string]domain.BusinessProfile
	customers     map[string]string
	subscriptions map[string]domain.BillingSubscription
	planUpdates   map[string]domain.Plan
	orders        map[string]domain.BillingOrder
}

func newStubStore() *stubStore {
	return &stubStore{
		accounts:      map[string]domain.Account{},
		profiles:      map[string]domain.BusinessProfile{},
		customers:     map[string]string{},
		subscriptions: map[string]domain.BillingSubscription{},
		planUpdates:   map[string]domain.Plan{},
		orders:        map[string]domain.BillingOrder{},
	}
}

func (s *stubStore) GetAccountByEmail(_ context.Context, email string) (domain.Account, error) {
	account, ok := s.accounts[email]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	return account, nil
}
func (s *stubStore) CreateVerifiedAccount(_ context.Context, email, name string) (domain.Account, error) {
	s.created++
	account := domain.Account{ID: "acc-" + email, Email: email, Name: name, EmailVerified: true}
	s.accounts[email] = account
	return account, nil
}

func (s *stubStore) GetProfile(_ context.Context, accountID string) (domain.BusinessProfile, error) {
	profile, ok := s.profiles[accountID]
	if !ok {
		return domain.BusinessProfile{}, domain.ErrProfileNotFound
	}
	return profile, nil
}
func (s *stubStore) UpsertProfile(_ context.Context, profile domain.BusinessProfile) error {
	s.profiles[profile.AccountID] = profile
	return nil
}
func (s *stubStore) UpdateReviewStats(context.Context, string, int, float64) error { return nil }
func (s *stubStore) IncrementScans(context.Context, string) error                  { return nil }
func (s *stubStore) IncrementSMSSent(context.Context, string) error                { return nil }

func (s *stubStore) UpsertCustomer(_ context.Context, accountID, customerID string) error {
	s.customers[customerID] = accountID
	return nil
}
func (s *stubStore) AccountIDByCustomer(_ context.Context, customerID string) (string, error) {
	accountID, ok := s.customers[customerID]
	if !ok {
		return "", domain.ErrCustomerNotLinked
	}
	return accountID, nil
}
func (s *stubStore) UpsertSubscription(_ context.Context, subscription domain.BillingSubscription) error {
	s.subscriptions[subscription.CustomerID] = subscription
	return nil
}
func (s *stubStore) UpsertSubscriptionWithPlan(_ context.Context, subscription domain.BillingSubscription, plan domain.Plan) error {
	s.subscriptions[subscription.CustomerID] = subscription
	s.planUpdates[subscription.CustomerID] = plan
	return nil
}
func (s *stubStore) UpsertOrder(_ context.Context, order domain.BillingOrder) error {
	s.orders[order.CheckoutSessionID] = order
	return nil
}

type stubProvider struct {
	customer     domain.ProviderCustomer
	subscription *domain.ProviderSubscription
}

func (p *stubProvider) GetCustomer(context.Context, string) (domain.ProviderCustomer, error) {
	return p.customer, nil
}
func (p *stubProvider) LatestSubscription(context.Context, string) (*domain.ProviderSubscription, error) {
	return p.subscription, nil
}

const boostPriceID = "price_1RdBhb08DTKTigBID2XBJCPH"

func newTestService(store *stubStore, provider *stubProvider) *Service {
	return NewService(store, store, store, provider, "https://app.example.com", zerolog.Nop())
}

func checkoutJob() domain.SyncJob {
	return domain.SyncJob{
		EventID:           "evt-1",
		EventType:         "checkout.session.completed",
		Kind:              domain.SyncCauseCheckout,
		CustomerID:        "cus_1",
		CheckoutSessionID: "cs_1",
		PriceID:           boostPriceID,
		PaymentIntentID:   "pi_1",
		AmountTotal:       4900,
		Currency:          "eur",
		PaymentStatus:     "paid",
	}
}

func TestProcessCheckoutProvisionsAccount(t *testing.T) {
	store := newStubStore()
	provider := &stubProvider{
		customer: domain.ProviderCustomer{ID: "cus_1", Email: "owner@example.com", Name: "Paul"},
		subscription: &domain.ProviderSubscription{
			ID:                 "sub_1",
			PriceID:            boostPriceID,
			Status:             domain.SubscriptionStatusActive,
			CurrentPeriodStart: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			CurrentPeriodEnd:   time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
			PaymentMethodBrand: "visa",
			PaymentMethodLast4: "4242",
		},
	}
	service := newTestService(store, provider)

	if err := service.Process(context.Background(), checkoutJob()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if store.created != 1 {
		t.Fatalf("ожидали создание аккаунта")
	}
	profile, ok := store.profiles["acc-owner@example.com"]
	if !ok {
		t.Fatalf("ожидали создание профиля")
	}
	if profile.Plan != domain.PlanBoost {
		t.Fatalf("ожидали тариф boost, получили %s", profile.Plan)
	}
	if profile.QRLink != "https://app.example.com/f/acc-owner@example.com" {
		t.Fatalf("неверная ссылка на страницу отзывов: %s", profile.QRLink)
	}
	if store.customers["cus_1"] != "acc-owner@example.com" {
		t.Fatalf("ожидали привязку клиента к аккаунту")
	}
	order, ok := store.orders["cs_1"]
	if !ok {
		t.Fatalf("ожидали сохранение платежа")
	}
	if order.AmountTotal != 4900 || order.Currency != "eur" {
		t.Fatalf("платёж сохранён с неверными полями: %+v", order)
	}
	snapshot, ok := store.subscriptions["cus_1"]
	if !ok {
		t.Fatalf("ожидали снимок подписки после синхронизации")
	}
	if snapshot.Status != domain.SubscriptionStatusActive || snapshot.PaymentMethodLast4 != "4242" {
		t.Fatalf("снимок подписки неверный: %+v", snapshot)
	}
	if store.planUpdates["cus_1"] != domain.PlanBoost {
		t.Fatalf("тариф профиля должен обновляться вместе со снимком")
	}
}

func TestProcessCheckoutExistingAccount(t *testing.T) {
	store := newStubStore()
	store.accounts["owner@example.com"] = domain.Account{ID: "acc-old", Email: "owner@example.com"}
	provider := &stubProvider{customer: domain.ProviderCustomer{ID: "cus_1", Email: "owner@example.com", Name: "Paul"}}
	service := newTestService(store, provider)

	if err := service.Process(context.Background(), checkoutJob()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if store.created != 0 {
		t.Fatalf("существующий аккаунт не должен создаваться заново")
	}
	if _, ok := store.profiles["acc-old"]; !ok {
		t.Fatalf("профиль должен обновиться у существующего аккаунта")
	}
}

func TestProcessCheckoutFallbackName(t *testing.T) {
	store := newStubStore()
	provider := &stubProvider{customer: domain.ProviderCustomer{ID: "cus_1", Email: "owner@example.com"}}
	service := newTestService(store, provider)

	if err := service.Process(context.Background(), checkoutJob()); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	account := store.accounts["owner@example.com"]
	if account.Name != "ReviewBoost User" {
		t.Fatalf("ожидали имя по умолчанию, получили %q", account.Name)
	}
}

func TestProcessCheckoutSkipsCustomerWithoutEmail(t *testing.T) {
	store := newStubStore()
	provider := &stubProvider{customer: domain.ProviderCustomer{ID: "cus_1", Deleted: true}}
	service := newTestService(store, provider)

	if err := service.Process(context.Background(), checkoutJob()); err != nil {
		t.Fatalf("клиент без почты пропускается без ошибки: %v", err)
	}
	if store.created != 0 || len(store.profiles) != 0 {
		t.Fatalf("аккаунт и профиль не должны создаваться")
	}
}

func TestSyncCustomerNoSubscriptions(t *testing.T) {
	store := newStubStore()
	provider := &stubProvider{}
	service := newTestService(store, provider)

	if err := service.SyncCustomer(context.Background(), "cus_1"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	snapshot, ok := store.subscriptions["cus_1"]
	if !ok {
		t.Fatalf("ожидали снимок даже без подписок")
	}
	if snapshot.Status != domain.SubscriptionStatusNotStarted {
		t.Fatalf("ожидали статус not_started, получили %s", snapshot.Status)
	}
	if len(store.planUpdates) != 0 {
		t.Fatalf("тариф профиля не должен меняться, когда подписок нет")
	}
}

func TestSyncCustomerIdempotent(t *testing.T) {
	store := newStubStore()
	provider := &stubProvider{subscription: &domain.ProviderSubscription{
		ID:      "sub_1",
		PriceID: boostPriceID,
		Status:  domain.SubscriptionStatusActive,
	}}
	service := newTestService(store, provider)

	for i := 0; i < 3; i++ {
		if err := service.SyncCustomer(context.Background(), "cus_1"); err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if len(store.subscriptions) != 1 {
		t.Fatalf("на клиента должна приходиться одна строка снимка, получили %d", len(store.subscriptions))
	}
}

func TestProcessUnknownKindDropped(t *testing.T) {
	store := newStubStore()
	service := newTestService(store, &stubProvider{})

	job := domain.SyncJob{EventID: "evt-9", Kind: "unknown"}
	if err := service.Process(context.Background(), job); err != nil {
		t.Fatalf("неизвестная категория пропускается без ошибки: %v", err)
	}
	if len(store.subscriptions) != 0 {
		t.Fatalf("состояние не должно меняться")
	}
}
