package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// UpsertCustomer привязывает клиента провайдера к аккаунту.
// Повторная привязка снимает отметку об удалении.
func (p *Postgres) UpsertCustomer(ctx context.Context, accountID, customerID string) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO billing_customers (account_id, customer_id)
VALUES ($1, $2)
ON CONFLICT (customer_id) DO UPDATE SET account_id = EXCLUDED.account_id, deleted_at = NULL
`, accountID, customerID)
	metrics.ObserveNetworkRequest("postgres", "billing_customers_upsert", "billing_customers", start, err)
	return err
}

// AccountIDByCustomer возвращает аккаунт, привязанный к клиенту провайдера.
func (p *Postgres) AccountIDByCustomer(ctx context.Context, customerID string) (string, error) {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	var accountID string
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT account_id FROM billing_customers
WHERE customer_id = $1 AND deleted_at IS NULL
`, customerID).Scan(&accountID)
	metrics.ObserveNetworkRequest("postgres", "billing_customers_get", "billing_customers", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrCustomerNotLinked
		}
		return "", err
	}
	return accountID, nil
}

func upsertSubscriptionSQL(ctx context.Context, run func(context.Context, string, ...any) error, subscription domain.BillingSubscription) error {
	var periodStart, periodEnd sql.NullTime
	if subscription.CurrentPeriodStart != nil {
		periodStart = sql.NullTime{Time: *subscription.CurrentPeriodStart, Valid: true}
	}
	if subscription.CurrentPeriodEnd != nil {
		periodEnd = sql.NullTime{Time: *subscription.CurrentPeriodEnd, Valid: true}
	}
	return run(ctx, `
INSERT INTO billing_subscriptions (customer_id, subscription_id, price_id, current_period_start,
    current_period_end, cancel_at_period_end, payment_method_brand, payment_method_last4, status)
VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, $6, NULLIF($7,''), NULLIF($8,''), $9)
ON CONFLICT (customer_id) DO UPDATE SET
    subscription_id = EXCLUDED.subscription_id,
    price_id = EXCLUDED.price_id,
    current_period_start = EXCLUDED.current_period_start,
    current_period_end = EXCLUDED.current_period_end,
    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
    payment_method_brand = EXCLUDED.payment_method_brand,
    payment_method_last4 = EXCLUDED.payment_method_last4,
    status = EXCLUDED.status,
    updated_at = now()
`, subscription.CustomerID, subscription.SubscriptionID, subscription.PriceID, periodStart, periodEnd,
		subscription.CancelAtPeriodEnd, subscription.PaymentMethodBrand, subscription.PaymentMethodLast4,
		subscription.Status)
}

// UpsertSubscription перезаписывает снимок подписки клиента, не меняя тариф
// профиля. Ключ снимка — customer_id: история не накапливается.
func (p *Postgres) UpsertSubscription(ctx context.Context, subscription domain.BillingSubscription) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	err := upsertSubscriptionSQL(ctx, func(ctx context.Context, sql string, args ...any) error {
		_, err := p.pool.Exec(ctx, sql, args...)
		return err
	}, subscription)
	metrics.ObserveNetworkRequest("postgres", "billing_subscriptions_upsert", "billing_subscriptions", start, err)
	return err
}

// UpsertSubscriptionWithPlan перезаписывает снимок подписки клиента и в той же
// транзакции приводит тариф профиля в соответствие с ценой подписки, чтобы
// тариф и статус подписки не могли разойтись между двумя записями.
func (p *Postgres) UpsertSubscriptionWithPlan(ctx context.Context, subscription domain.BillingSubscription, plan domain.Plan) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "billing_subscriptions", start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	err = upsertSubscriptionSQL(ctx, func(ctx context.Context, sql string, args ...any) error {
		_, err := tx.Exec(ctx, sql, args...)
		return err
	}, subscription)
	metrics.ObserveNetworkRequest("postgres", "billing_subscriptions_upsert", "billing_subscriptions", start, err)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	start = time.Now()
	_, err = tx.Exec(ctx, `
UPDATE business_profiles SET plan = $2, updated_at = now()
WHERE stripe_customer_id = $1
`, subscription.CustomerID, plan)
	metrics.ObserveNetworkRequest("postgres", "profiles_update_plan", "business_profiles", start, err)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "billing_subscriptions", start, err)
	return err
}

// UpsertOrder сохраняет разовый платёж по сессии оплаты.
func (p *Postgres) UpsertOrder(ctx context.Context, order domain.BillingOrder) error {
	ctx, cancel := p.connCtxWithParent(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO billing_orders (checkout_session_id, customer_id, payment_intent_id, amount_total, currency, payment_status)
VALUES ($1, $2, NULLIF($3,''), $4, NULLIF($5,''), NULLIF($6,''))
ON CONFLICT (checkout_session_id) DO UPDATE SET
    payment_intent_id = EXCLUDED.payment_intent_id,
    amount_total = EXCLUDED.amount_total,
    payment_status = EXCLUDED.payment_status
`, order.CheckoutSessionID, order.CustomerID, order.PaymentIntentID, order.AmountTotal, order.Currency, order.PaymentStatus)
	metrics.ObserveNetworkRequest("postgres", "billing_orders_upsert", "billing_orders", start, err)
	return err
}
