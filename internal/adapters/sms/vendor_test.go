package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reviewboost/internal/domain"
)

func TestSendSuccess(t *testing.T) {
	var got map[string]string
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Fatalf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("не удалось разобрать тело: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := NewVendorSender(server.URL, "token-1", "ReviewBoost")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	message := domain.QueuedMessage{Phone: "+33600000001", Message: "Merci !"}
	if err := sender.Send(context.Background(), message); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if auth != "Bearer token-1" {
		t.Fatalf("ожидали bearer-токен, получили %q", auth)
	}
	if got["to"] != "+33600000001" || got["text"] != "Merci !" || got["from"] != "ReviewBoost" {
		t.Fatalf("тело запроса собрано неверно: %+v", got)
	}
}

func TestSendVendorError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sender, err := NewVendorSender(server.URL, "", "ReviewBoost")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	err = sender.Send(context.Background(), domain.QueuedMessage{Phone: "+336"})
	if err == nil {
		t.Fatalf("ожидали ошибку при статусе 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("ошибка должна содержать статус: %v", err)
	}
}

func TestNewVendorSenderRequiresURL(t *testing.T) {
	if _, err := NewVendorSender("", "", ""); err == nil {
		t.Fatalf("ожидали ошибку без адреса поставщика")
	}
}
