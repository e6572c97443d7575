package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reviewboost/internal/domain"
	"reviewboost/internal/infra/metrics"
)

// VendorSender отправляет сообщения через HTTP API внешнего поставщика.
// Содержимое и поведение поставщика для сервиса непрозрачны: важен
// только код ответа.
type VendorSender struct {
	client  *http.Client
	baseURL string
	token   string
	sender  string
}

var _ domain.SMSSender = (*VendorSender)(nil)

// NewVendorSender создаёт отправителя.
func NewVendorSender(baseURL, token, sender string) (*VendorSender, error) {
	if baseURL == "" {
		return nil, errors.New("vendor url is empty")
	}
	return &VendorSender{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		sender:  sender,
	}, nil
}

// Send выполняет один запрос на отправку сообщения.
func (s *VendorSender) Send(ctx context.Context, message domain.QueuedMessage) error {
	payload, err := json.Marshal(map[string]string{
		"to":   message.Phone,
		"text": message.Message,
		"from": s.sender,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	start := time.Now()
	resp, err := s.client.Do(req)
	metrics.ObserveNetworkRequest("sms_vendor", "send", "messages", start, err)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}
