// Package mailer sends personalised notification emails in paced batches.
package mailer

import (
	"context"
	"fmt"
	"time"

	"property_portal_backend/internal/email"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultSendInterval keeps the outbound provider near two requests per second.
const DefaultSendInterval = 500 * time.Millisecond

// sendAllowance is the time budgeted for one provider call on top of the pacing gap.
const sendAllowance = 10 * time.Second

// Recipient is one addressee of a batch.
type Recipient struct {
	UserID    uuid.UUID `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleLabel string    `json:"roleLabel"`
}

// Batch is one notification rendered once per recipient.
type Batch struct {
	Title      string      `json:"title"`
	Message    string      `json:"message"`
	URL        string      `json:"url,omitempty"`
	Recipients []Recipient `json:"recipients"`
}

// Batcher sends a batch sequentially with a fixed gap between sends.
type Batcher struct {
	sender   email.Sender
	interval time.Duration
	log      *logger.Logger
}

// NewBatcher creates a batcher. A non-positive interval falls back to DefaultSendInterval.
func NewBatcher(sender email.Sender, interval time.Duration, log *logger.Logger) *Batcher {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	return &Batcher{sender: sender, interval: interval, log: log}
}

// Budget is the longest a batch of n recipients may take: the pacing gaps
// plus one provider call per recipient.
func (b *Batcher) Budget(n int) time.Duration {
	return time.Duration(n) * (b.interval + sendAllowance)
}

// Send delivers one email per recipient and returns how many were accepted
// by the provider. A failed recipient is logged and skipped. The error is
// non-nil only when ctx ends before every recipient was attempted.
func (b *Batcher) Send(ctx context.Context, batch Batch) (int, error) {
	if b.sender == nil || !b.sender.IsConfigured() || len(batch.Recipients) == 0 {
		return 0, nil
	}

	limiter := rate.NewLimiter(rate.Every(b.interval), 1)
	sent := 0
	for i, r := range batch.Recipients {
		if r.Email == "" {
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			b.logWarn("email batch interrupted", "error", err, "sent", sent, "remaining", len(batch.Recipients)-i)
			return sent, fmt.Errorf("email batch interrupted after %d of %d recipients: %w", i, len(batch.Recipients), err)
		}

		msg, err := render(batch, r)
		if err != nil {
			b.logWarn("render notification email failed", "error", err, "userId", r.UserID)
			continue
		}
		if err := b.sender.Send(ctx, msg); err != nil {
			b.logWarn("send notification email failed", "error", err, "userId", r.UserID)
			continue
		}
		sent++
	}
	return sent, nil
}

func (b *Batcher) logWarn(msg string, args ...any) {
	if b.log != nil {
		b.log.Warn(msg, args...)
	}
}

func render(batch Batch, r Recipient) (email.Message, error) {
	html, err := email.RenderNotification(email.NotificationData{
		Title:         batch.Title,
		RecipientName: r.Name,
		RoleLabel:     r.RoleLabel,
		Message:       batch.Message,
		CTALabel:      "Voir l'intervention",
		CTAURL:        batch.URL,
	})
	if err != nil {
		return email.Message{}, fmt.Errorf("render: %w", err)
	}
	return email.Message{
		ToEmail: r.Email,
		ToName:  r.Name,
		Subject: email.Subject(batch.Title),
		HTML:    html,
	}, nil
}
