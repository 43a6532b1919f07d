// Package email delivers transactional emails through Brevo or SMTP.
package email

import (
	"context"
	"fmt"
	"strings"

	"property_portal_backend/platform/config"
)

const (
	ProviderBrevo = "brevo"
	ProviderSMTP  = "smtp"
)

// Message is one email to one recipient.
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
}

// Sender delivers a single rendered email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	IsConfigured() bool
}

// NoopSender accepts and drops every message. Used when email is disabled.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }

func (NoopSender) IsConfigured() bool { return false }

// NewSender builds the sender selected by EMAIL_PROVIDER.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch strings.ToLower(cfg.GetEmailProvider()) {
	case "", ProviderBrevo:
		if cfg.GetBrevoAPIKey() == "" {
			return nil, fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER=brevo")
		}
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	case ProviderSMTP:
		if cfg.GetSMTPHost() == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(), cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	default:
		return nil, fmt.Errorf("unknown EMAIL_PROVIDER %q", cfg.GetEmailProvider())
	}
}
