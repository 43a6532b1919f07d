package notification

import (
	"context"
	"fmt"

	"property_portal_backend/internal/directory"
	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/notification/inapp"
	"property_portal_backend/internal/notification/mailer"
	"property_portal_backend/internal/notification/push"
	"property_portal_backend/internal/notification/throttle"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
)

// Effect names of the three channels, in dispatch order.
const (
	ChannelInApp = "notification.inapp"
	ChannelPush  = "notification.push"
	ChannelEmail = "notification.email"
)

// InAppSender persists notification rows.
type InAppSender interface {
	SendBatch(ctx context.Context, params []inapp.CreateParams) ([]inapp.Notification, error)
}

// PushSender delivers to registered devices.
type PushSender interface {
	SendToUsers(ctx context.Context, userIDs []uuid.UUID, p push.Payload) (push.Result, error)
}

// ContactReader resolves users to email addresses and names.
type ContactReader interface {
	ContactsByIDs(ctx context.Context, ids []uuid.UUID) ([]directory.Contact, error)
}

// EffectRunner executes effects in isolation and reports their outcomes.
type EffectRunner interface {
	Run(ctx context.Context, effects ...effects.Effect) effects.Report
}

// Channels are the delivery mechanisms. Email may be nil to disable it.
type Channels struct {
	InApp        InAppSender
	Push         PushSender
	Email        mailer.Delivery
	EmailEnabled bool
	Gate         throttle.Gate
}

// Dispatch is one fan-out request.
type Dispatch struct {
	TeamID     uuid.UUID
	Actor      domain.Actor
	ThreadID   *uuid.UUID
	Notice     Notice
	Recipients []Recipient
}

// Dispatcher delivers a notice to its recipients through every channel:
// in-app first, then push, then email. Each channel is an isolated effect,
// so one failing never prevents the next from being attempted.
type Dispatcher struct {
	channels Channels
	contacts ContactReader
	runner   EffectRunner
	log      *logger.Logger
}

// NewDispatcher creates a dispatcher. Nil channels in channels are skipped.
func NewDispatcher(channels Channels, contacts ContactReader, runner EffectRunner, log *logger.Logger) *Dispatcher {
	return &Dispatcher{channels: channels, contacts: contacts, runner: runner, log: log}
}

// Dispatch runs the three channel effects and returns their outcomes.
func (d *Dispatcher) Dispatch(ctx context.Context, in Dispatch) effects.Report {
	recipients := make([]Recipient, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		if r.UserID != in.Actor.ID {
			recipients = append(recipients, r)
		}
	}
	if len(recipients) == 0 {
		return effects.Report{}
	}

	userIDs := make([]uuid.UUID, 0, len(recipients))
	for _, r := range recipients {
		userIDs = append(userIDs, r.UserID)
	}

	return d.runner.Run(ctx,
		effects.New(ChannelInApp, func(ctx context.Context) error {
			return d.sendInApp(ctx, in, recipients)
		}),
		effects.New(ChannelPush, func(ctx context.Context) error {
			return d.sendPush(ctx, in, userIDs)
		}),
		effects.New(ChannelEmail, func(ctx context.Context) error {
			return d.sendEmail(ctx, in, userIDs)
		}),
	)
}

func (d *Dispatcher) sendInApp(ctx context.Context, in Dispatch, recipients []Recipient) error {
	if d.channels.InApp == nil {
		return nil
	}

	createdBy := in.Actor.ID
	params := make([]inapp.CreateParams, 0, len(recipients))
	for _, r := range recipients {
		params = append(params, inapp.CreateParams{
			UserID:     r.UserID,
			TeamID:     in.TeamID,
			CreatedBy:  &createdBy,
			Type:       in.Notice.Type,
			Priority:   in.Notice.Priority,
			Title:      in.Notice.Title,
			Message:    in.Notice.Message,
			IsPersonal: r.IsPersonal,
			Metadata:   withURL(in.Notice.Metadata, in.Notice.URL),
		})
	}
	_, err := d.channels.InApp.SendBatch(ctx, params)
	return err
}

func (d *Dispatcher) sendPush(ctx context.Context, in Dispatch, userIDs []uuid.UUID) error {
	if d.channels.Push == nil {
		return nil
	}

	res, err := d.channels.Push.SendToUsers(ctx, userIDs, push.Payload{
		Title:   in.Notice.Title,
		Message: in.Notice.Message,
		URL:     in.Notice.URL,
		Type:    in.Notice.Type,
	})
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		d.log.Warn("push delivery partially failed", "success", res.Success, "failed", res.Failed, "type", in.Notice.Type)
	}
	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, in Dispatch, userIDs []uuid.UUID) error {
	if d.channels.Email == nil || !d.channels.EmailEnabled {
		return nil
	}

	if in.ThreadID != nil && d.channels.Gate != nil {
		claimed, err := d.channels.Gate.TryClaim(ctx, *in.ThreadID)
		if err != nil {
			return err
		}
		if !claimed {
			d.log.Debug("email throttled", "threadId", *in.ThreadID)
			return nil
		}
	}

	contacts, err := d.contacts.ContactsByIDs(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("load email contacts: %w", err)
	}

	batch := mailer.Batch{
		Title:      in.Notice.Title,
		Message:    in.Notice.Message,
		URL:        in.Notice.URL,
		Recipients: make([]mailer.Recipient, 0, len(contacts)),
	}
	for _, c := range contacts {
		if c.Email == "" {
			continue
		}
		batch.Recipients = append(batch.Recipients, mailer.Recipient{
			UserID:    c.UserID,
			Email:     c.Email,
			Name:      c.DisplayName(),
			RoleLabel: RoleLabel(c.Role),
		})
	}
	if len(batch.Recipients) == 0 {
		return nil
	}

	sent, err := d.channels.Email.Deliver(ctx, batch)
	if err != nil {
		return err
	}
	d.log.Info("notification emails dispatched", "type", in.Notice.Type, "recipients", len(batch.Recipients), "sent", sent)
	return nil
}

func withURL(metadata map[string]any, url string) map[string]any {
	out := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		out[k] = v
	}
	if url != "" {
		out["url"] = url
	}
	return out
}
