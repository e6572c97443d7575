package stripeapi

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// Client реализует domain.BillingProvider поверх API Stripe.
type Client struct {
	api *client.API
}

var _ domain.BillingProvider = (*Client)(nil)

// NewClient создаёт клиента провайдера.
func NewClient(secretKey string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{api: api}
}

// GetCustomer возвращает клиента провайдера по идентификатору.
func (c *Client) GetCustomer(ctx context.Context, customerID string) (domain.ProviderCustomer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	start := time.Now()
	customer, err := c.api.Customers.Get(customerID, params)
	metrics.ObserveNetworkRequest("stripe", "customers_get", "customers", start, err)
	if err != nil {
		return domain.ProviderCustomer{}, fmt.Errorf("get customer: %w", err)
	}
	return domain.ProviderCustomer{
		ID:      customer.ID,
		Email:   customer.Email,
		Name:    customer.Name,
		Deleted: customer.Deleted,
	}, nil
}

// LatestSubscription возвращает самую свежую подписку клиента среди всех
// статусов либо nil, когда подписок нет. Платёжный метод раскрывается,
// чтобы снять бренд и последние цифры карты.
func (c *Client) LatestSubscription(ctx context.Context, customerID string) (*domain.ProviderSubscription, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)
	params.AddExpand("data.default_payment_method")

	start := time.Now()
	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		subscription := iter.Subscription()
		metrics.ObserveNetworkRequest("stripe", "subscriptions_list", "subscriptions", start, nil)
		return convertSubscription(subscription), nil
	}
	err := iter.Err()
	metrics.ObserveNetworkRequest("stripe", "subscriptions_list", "subscriptions", start, err)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return nil, nil
}

func convertSubscription(subscription *stripe.Subscription) *domain.ProviderSubscription {
	converted := &domain.ProviderSubscription{
		ID:                subscription.ID,
		Status:            domain.SubscriptionStatus(subscription.Status),
		CancelAtPeriodEnd: subscription.CancelAtPeriodEnd,
	}
	if subscription.Items != nil && len(subscription.Items.Data) > 0 {
		item := subscription.Items.Data[0]
		if item.Price != nil {
			converted.PriceID = item.Price.ID
		}
		converted.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		converted.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
	}
	if pm := subscription.DefaultPaymentMethod; pm != nil && pm.Card != nil {
		converted.PaymentMethodBrand = string(pm.Card.Brand)
		converted.PaymentMethodLast4 = pm.Card.Last4
	}
	return converted
}
