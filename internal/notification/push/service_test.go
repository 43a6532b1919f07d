package push

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"property_portal_backend/platform/logger"

	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryTokens struct {
	devices []Device
	removed []string
}

func (m *memoryTokens) TokensForUsers(_ context.Context, userIDs []uuid.UUID) ([]Device, error) {
	wanted := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []Device
	for _, d := range m.devices {
		if wanted[d.UserID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryTokens) RemoveTokens(_ context.Context, tokens []string) error {
	m.removed = append(m.removed, tokens...)
	return nil
}

type stubMessaging struct {
	calls   []*messaging.MulticastMessage
	failFor map[string]error
	err     error
}

func (s *stubMessaging) SendEachForMulticast(_ context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	s.calls = append(s.calls, msg)
	if s.err != nil {
		return nil, s.err
	}
	resp := &messaging.BatchResponse{}
	for _, tok := range msg.Tokens {
		if err, ok := s.failFor[tok]; ok {
			resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: false, Error: err})
			resp.FailureCount++
			continue
		}
		resp.Responses = append(resp.Responses, &messaging.SendResponse{Success: true, MessageID: "m-" + tok})
		resp.SuccessCount++
	}
	return resp, nil
}

func TestSendToUsersCountsPerDevice(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	tokens := &memoryTokens{devices: []Device{
		{UserID: alice, Token: "alice-phone"},
		{UserID: alice, Token: "alice-laptop"},
		{UserID: bob, Token: "bob-phone"},
		{UserID: uuid.New(), Token: "someone-else"},
	}}
	client := &stubMessaging{failFor: map[string]error{"alice-laptop": errors.New("quota exceeded")}}
	svc := NewService(tokens, client, logger.Discard())

	res, err := svc.SendToUsers(context.Background(), []uuid.UUID{alice, bob}, Payload{
		Title:   "Intervention planifiée",
		Message: "Le prestataire passera mardi.",
		URL:     "https://app.example.com/interventions/1",
		Type:    "intervention",
	})
	require.NoError(t, err)
	require.Equal(t, Result{Success: 2, Failed: 1}, res)

	require.Len(t, client.calls, 1)
	msg := client.calls[0]
	require.ElementsMatch(t, []string{"alice-phone", "alice-laptop", "bob-phone"}, msg.Tokens)
	require.Equal(t, "Intervention planifiée", msg.Notification.Title)
	require.Equal(t, "https://app.example.com/interventions/1", msg.Webpush.FCMOptions.Link)
	require.Empty(t, tokens.removed, "only unregistered tokens are pruned")
}

func TestSendToUsersChunksLargeAudiences(t *testing.T) {
	user := uuid.New()
	tokens := &memoryTokens{}
	for i := 0; i < multicastLimit+20; i++ {
		tokens.devices = append(tokens.devices, Device{UserID: user, Token: fmt.Sprintf("tok-%d", i)})
	}
	client := &stubMessaging{}
	svc := NewService(tokens, client, logger.Discard())

	res, err := svc.SendToUsers(context.Background(), []uuid.UUID{user}, Payload{Title: "t"})
	require.NoError(t, err)
	require.Equal(t, multicastLimit+20, res.Success)
	require.Len(t, client.calls, 2)
	require.Len(t, client.calls[0].Tokens, multicastLimit)
}

func TestSendToUsersWholeRequestFailure(t *testing.T) {
	user := uuid.New()
	tokens := &memoryTokens{devices: []Device{{UserID: user, Token: "a"}, {UserID: user, Token: "b"}}}
	svc := NewService(tokens, &stubMessaging{err: errors.New("fcm unavailable")}, logger.Discard())

	res, err := svc.SendToUsers(context.Background(), []uuid.UUID{user}, Payload{Title: "t"})
	require.NoError(t, err)
	require.Equal(t, Result{Failed: 2}, res)
}

func TestSendToUsersWithoutClientIsNoop(t *testing.T) {
	svc := NewService(&memoryTokens{}, nil, logger.Discard())
	require.False(t, svc.Enabled())

	res, err := svc.SendToUsers(context.Background(), []uuid.UUID{uuid.New()}, Payload{Title: "t"})
	require.NoError(t, err)
	require.Equal(t, Result{}, res)
}
