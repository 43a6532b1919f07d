package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type testEmailConfig struct {
	enabled  bool
	provider string
	apiKey   string
	smtpHost string
}

func (c testEmailConfig) GetEmailEnabled() bool       { return c.enabled }
func (c testEmailConfig) GetEmailProvider() string    { return c.provider }
func (c testEmailConfig) GetBrevoAPIKey() string      { return c.apiKey }
func (c testEmailConfig) GetSMTPHost() string         { return c.smtpHost }
func (c testEmailConfig) GetSMTPPort() int            { return 587 }
func (c testEmailConfig) GetSMTPUsername() string     { return "" }
func (c testEmailConfig) GetSMTPPassword() string     { return "" }
func (c testEmailConfig) GetEmailFromName() string    { return "Portail" }
func (c testEmailConfig) GetEmailFromAddress() string { return "noreply@example.com" }

func TestNewSenderSelectsProvider(t *testing.T) {
	s, err := NewSender(testEmailConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(NoopSender); !ok {
		t.Fatalf("expected NoopSender when disabled, got %T", s)
	}

	s, err = NewSender(testEmailConfig{enabled: true, provider: "smtp", smtpHost: "mail.example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*SMTPSender); !ok {
		t.Fatalf("expected SMTPSender, got %T", s)
	}

	if _, err := NewSender(testEmailConfig{enabled: true, provider: "brevo"}); err == nil {
		t.Fatal("expected error for brevo without api key")
	}
	if _, err := NewSender(testEmailConfig{enabled: true, provider: "pigeon"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRenderNotificationEscapesContent(t *testing.T) {
	html, err := RenderNotification(NotificationData{
		Title:         "Nouveau message",
		RecipientName: "Alice Martin",
		RoleLabel:     "locataire",
		Message:       "<script>alert(1)</script>",
		CTALabel:      "Voir",
		CTAURL:        "https://app.example.com/interventions/1",
	})
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "Bonjour Alice Martin") {
		t.Fatalf("expected recipient name in body")
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected message to be escaped")
	}
	if !strings.Contains(html, "https://app.example.com/interventions/1") {
		t.Fatalf("expected call to action link")
	}
}

func TestBrevoSenderPostsMessage(t *testing.T) {
	var got brevoEmailRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewBrevoSender("key", "noreply@example.com", "Portail")
	s.endpoint = srv.URL

	err := s.Send(context.Background(), Message{ToEmail: "bob@example.com", ToName: "Bob", Subject: "Sujet", HTML: "<p>x</p>"})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(got.To) != 1 || got.To[0].Email != "bob@example.com" {
		t.Fatalf("unexpected recipients: %+v", got.To)
	}
	if got.Subject != "Sujet" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}

	s.apiKey = "wrong"
	if err := s.Send(context.Background(), Message{ToEmail: "bob@example.com"}); err == nil {
		t.Fatal("expected error on non-2xx response")
	}
}
