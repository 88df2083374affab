package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aspirehq/aspire/backend/internal/notify"
	"github.com/aspirehq/aspire/backend/internal/prefs"
)

func TestTelegramTransportSendsMessage(t *testing.T) {
	var received struct {
		ChatID string `json:"chat_id"`
		Text   string `json:"text"`
	}
	var requestPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body failed: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	transport := notify.NewTelegramTransport("bot-token", server.URL)
	if transport.Channel() != prefs.ChannelTelegram {
		t.Fatalf("unexpected channel: %q", transport.Channel())
	}

	target := prefs.UserPrefs{UserID: "u", TelegramChatID: "12345"}
	if err := transport.Send(context.Background(), target, "check in"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if requestPath != "/botbot-token/sendMessage" {
		t.Fatalf("unexpected path: %q", requestPath)
	}
	if received.ChatID != "12345" || received.Text != "check in" {
		t.Fatalf("unexpected request body: %#v", received)
	}
}

func TestTelegramTransportSurfacesAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer server.Close()

	transport := notify.NewTelegramTransport("bot-token", server.URL)
	err := transport.Send(context.Background(), prefs.UserPrefs{TelegramChatID: "12345"}, "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected api description in error, got %v", err)
	}
}

func TestTelegramTransportRequiresChatID(t *testing.T) {
	transport := notify.NewTelegramTransport("bot-token", "http://127.0.0.1:0")
	if err := transport.Send(context.Background(), prefs.UserPrefs{}, "hi"); err == nil {
		t.Fatalf("expected error without chat id")
	}
}

func TestWhatsAppTransportSendsMessage(t *testing.T) {
	var received struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to"`
		Type             string `json:"type"`
		Text             struct {
			Body string `json:"body"`
		} `json:"text"`
	}
	var requestPath, authHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestPath = r.URL.Path
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := notify.NewWhatsAppTransport("access-token", "phone-123", server.URL)
	if transport.Channel() != prefs.ChannelWhatsApp {
		t.Fatalf("unexpected channel: %q", transport.Channel())
	}

	target := prefs.UserPrefs{UserID: "u", WhatsAppNumber: "+15550001111"}
	if err := transport.Send(context.Background(), target, "check in"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if requestPath != "/phone-123/messages" {
		t.Fatalf("unexpected path: %q", requestPath)
	}
	if authHeader != "Bearer access-token" {
		t.Fatalf("expected bearer auth, got %q", authHeader)
	}
	if received.MessagingProduct != "whatsapp" || received.To != "+15550001111" || received.Text.Body != "check in" {
		t.Fatalf("unexpected request body: %#v", received)
	}
}

func TestWhatsAppTransportRequiresNumber(t *testing.T) {
	transport := notify.NewWhatsAppTransport("access-token", "phone-123", "http://127.0.0.1:0")
	if err := transport.Send(context.Background(), prefs.UserPrefs{}, "hi"); err == nil {
		t.Fatalf("expected error without number")
	}
}
