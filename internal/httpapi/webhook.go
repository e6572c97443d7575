package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

const (
	maxWebhookBody = 1 << 20
	eventDedupeTTL = 24 * time.Hour
)

// WebhookHandler принимает события платёжного провайдера, проверяет подпись
// и ставит задачи синхронизации в очередь. Сама обработка событий выполняется
// воркером: провайдер ждёт быстрый ответ.
type WebhookHandler struct {
	queue  domain.SyncQueue
	cache  domain.Cache
	secret string
	log    zerolog.Logger
	now    func() time.Time
}

// NewWebhookHandler создаёт обработчик. cache может быть nil, тогда
// дедупликация событий отключена.
func NewWebhookHandler(queue domain.SyncQueue, cache domain.Cache, secret string, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{queue: queue, cache: cache, secret: secret, log: logger, now: time.Now}
}

// Routes регистрирует маршруты обработчика.
func (h *WebhookHandler) Routes(r chi.Router) {
	r.Options("/", noContent)
	r.Post("/", h.handleEvent)
}

func (h *WebhookHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	signature := strings.TrimSpace(r.Header.Get("Stripe-Signature"))
	if signature == "" {
		writeError(w, http.StatusBadRequest, "No signature found")
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, h.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("webhook: подпись не прошла проверку")
		writeError(w, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(event.Type)).Inc()

	job, ok := h.classifyEvent(event)
	if !ok {
		metrics.WebhookEventsDropped.Inc()
		writeJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	enqueue := func() error { return h.queue.Enqueue(r.Context(), job) }
	if h.cache != nil {
		err = h.cache.Once("stripe:event:"+event.ID, eventDedupeTTL, enqueue)
	} else {
		err = enqueue()
	}
	if err != nil {
		// Ошибка постановки в очередь возвращается провайдеру: он повторит
		// доставку события позже.
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("webhook: не удалось поставить задачу")
		writeError(w, http.StatusInternalServerError, "Failed to queue event")
		return
	}

	h.log.Info().Str("event_id", event.ID).Str("event_type", string(event.Type)).Str("customer_id", job.CustomerID).Msg("webhook: событие принято")
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

// providerRef разбирает ссылку на объект провайдера, которая в событиях
// приходит то строкой, то развёрнутым объектом.
type providerRef string

func (ref *providerRef) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*ref = ""
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*ref = providerRef(id)
		return nil
	}
	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	*ref = providerRef(object.ID)
	return nil
}

type eventObject struct {
	ID            string      `json:"id"`
	Customer      providerRef `json:"customer"`
	Invoice       providerRef `json:"invoice"`
	PaymentIntent providerRef `json:"payment_intent"`
	AmountTotal   int64       `json:"amount_total"`
	Currency      string      `json:"currency"`
	PaymentStatus string      `json:"payment_status"`
	Mode          string      `json:"mode"`
	LineItems     struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

// classifyEvent выбирает категорию задачи по типу события. Нерелевантные
// и некорректные события отбрасываются без ошибки.
func (h *WebhookHandler) classifyEvent(event stripe.Event) (domain.SyncJob, bool) {
	if event.Data == nil {
		h.log.Warn().Str("event_id", event.ID).Msg("webhook: событие без тела пропущено")
		return domain.SyncJob{}, false
	}
	var object eventObject
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		h.log.Warn().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("webhook: тело события не разобрано")
		return domain.SyncJob{}, false
	}
	if object.Customer == "" {
		h.log.Info().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("webhook: событие без клиента пропущено")
		return domain.SyncJob{}, false
	}

	job := domain.SyncJob{
		EventID:     event.ID,
		EventType:   string(event.Type),
		CustomerID:  string(object.Customer),
		RequestedAt: h.now(),
	}
	eventType := string(event.Type)
	switch {
	case eventType == "checkout.session.completed":
		job.Kind = domain.SyncCauseCheckout
		job.CheckoutSessionID = object.ID
		job.PaymentIntentID = string(object.PaymentIntent)
		job.AmountTotal = object.AmountTotal
		job.Currency = object.Currency
		job.PaymentStatus = object.PaymentStatus
		if len(object.LineItems.Data) > 0 {
			job.PriceID = object.LineItems.Data[0].Price.ID
		}
		return job, true
	case strings.HasPrefix(eventType, "customer.subscription."):
		job.Kind = domain.SyncCauseSubscription
		return job, true
	case eventType == "payment_intent.succeeded":
		// Платежи по счетам покрываются событиями подписки, синхронизируются
		// только разовые платежи.
		if object.Invoice != "" {
			h.log.Info().Str("event_id", event.ID).Msg("webhook: платёж по счёту пропущен")
			return domain.SyncJob{}, false
		}
		job.Kind = domain.SyncCausePayment
		return job, true
	default:
		h.log.Info().Str("event_id", event.ID).Str("event_type", eventType).Msg("webhook: тип события не обрабатывается")
		return domain.SyncJob{}, false
	}
}
