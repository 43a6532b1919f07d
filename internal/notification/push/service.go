// Package push delivers notifications to registered devices through
// Firebase Cloud Messaging.
package push

import (
	"context"

	"property_portal_backend/platform/logger"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
)

// multicastLimit is the FCM cap on tokens per multicast request.
const multicastLimit = 500

// Payload is the content of a push notification.
type Payload struct {
	Title   string
	Message string
	URL     string
	Type    string
}

// Result counts delivered and failed device sends.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// TokenStore reads and prunes device tokens.
type TokenStore interface {
	TokensForUsers(ctx context.Context, userIDs []uuid.UUID) ([]Device, error)
	RemoveTokens(ctx context.Context, tokens []string) error
}

// Service fans a payload out to every device of the given users.
type Service struct {
	tokens TokenStore
	client Messaging
	log    *logger.Logger
}

// NewService creates a push service. A nil client turns sends into no-ops.
func NewService(tokens TokenStore, client Messaging, log *logger.Logger) *Service {
	return &Service{tokens: tokens, client: client, log: log}
}

// Enabled reports whether a messaging client is configured.
func (s *Service) Enabled() bool { return s.client != nil }

// SendToUsers pushes p to all devices of userIDs. One device failing does
// not affect the others; unregistered tokens are removed afterwards.
func (s *Service) SendToUsers(ctx context.Context, userIDs []uuid.UUID, p Payload) (Result, error) {
	var res Result
	if s.client == nil || len(userIDs) == 0 {
		return res, nil
	}

	devices, err := s.tokens.TokensForUsers(ctx, userIDs)
	if err != nil {
		return res, err
	}
	if len(devices) == 0 {
		return res, nil
	}

	tokens := make([]string, 0, len(devices))
	for _, d := range devices {
		tokens = append(tokens, d.Token)
	}

	var stale []string
	for start := 0; start < len(tokens); start += multicastLimit {
		end := min(start+multicastLimit, len(tokens))
		chunk := tokens[start:end]

		resp, err := s.client.SendEachForMulticast(ctx, buildMessage(chunk, p))
		if err != nil {
			s.log.Warn("push multicast failed", "error", err, "tokens", len(chunk))
			res.Failed += len(chunk)
			continue
		}

		for i, r := range resp.Responses {
			if r.Success {
				res.Success++
				continue
			}
			res.Failed++
			if messaging.IsUnregistered(r.Error) {
				stale = append(stale, chunk[i])
			}
		}
	}

	if len(stale) > 0 {
		if err := s.tokens.RemoveTokens(ctx, stale); err != nil {
			s.log.Warn("failed to prune stale push tokens", "error", err, "count", len(stale))
		}
	}

	return res, nil
}

func buildMessage(tokens []string, p Payload) *messaging.MulticastMessage {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: p.Title,
			Body:  p.Message,
		},
		Data: map[string]string{
			"type": p.Type,
			"url":  p.URL,
		},
	}
	if p.URL != "" {
		msg.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: p.URL},
		}
	}
	return msg
}
