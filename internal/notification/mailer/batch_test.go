package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/email"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu         sync.Mutex
	configured bool
	failFor    map[string]bool
	sentAt     []time.Time
	messages   []email.Message
}

func (s *recordingSender) IsConfigured() bool { return s.configured }

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentAt = append(s.sentAt, time.Now())
	if s.failFor[msg.ToEmail] {
		return errors.New("mailbox unavailable")
	}
	s.messages = append(s.messages, msg)
	return nil
}

func recipients(emails ...string) []Recipient {
	out := make([]Recipient, 0, len(emails))
	for _, e := range emails {
		out = append(out, Recipient{UserID: uuid.New(), Email: e, Name: e, RoleLabel: "gestionnaire"})
	}
	return out
}

func TestBatcherSkipsFailuresAndCountsSuccesses(t *testing.T) {
	sender := &recordingSender{configured: true, failFor: map[string]bool{"b@example.com": true}}
	b := NewBatcher(sender, 10*time.Millisecond, logger.Discard())

	sent, err := b.Send(context.Background(), Batch{
		Title:      "Nouveau message",
		Message:    "Bonjour",
		Recipients: recipients("a@example.com", "b@example.com", "c@example.com"),
	})

	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Len(t, sender.sentAt, 3, "a failure does not abort the batch")
	require.Equal(t, "a@example.com", sender.messages[0].ToEmail)
	require.Equal(t, "c@example.com", sender.messages[1].ToEmail)
	require.Contains(t, sender.messages[0].Subject, "Nouveau message")
}

func TestBatcherPacesSends(t *testing.T) {
	sender := &recordingSender{configured: true}
	interval := 40 * time.Millisecond
	b := NewBatcher(sender, interval, logger.Discard())

	sent, err := b.Send(context.Background(), Batch{Title: "t", Message: "m", Recipients: recipients("a@x.io", "b@x.io", "c@x.io")})
	require.NoError(t, err)
	require.Equal(t, 3, sent)

	for i := 1; i < len(sender.sentAt); i++ {
		gap := sender.sentAt[i].Sub(sender.sentAt[i-1])
		require.GreaterOrEqual(t, gap, interval-5*time.Millisecond)
	}
}

func TestBatcherUnconfiguredSenderSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	b := NewBatcher(sender, time.Millisecond, logger.Discard())

	sent, err := b.Send(context.Background(), Batch{Recipients: recipients("a@x.io")})
	require.NoError(t, err)
	require.Zero(t, sent)
	require.Empty(t, sender.sentAt)
}

func TestBatcherReportsInterruption(t *testing.T) {
	sender := &recordingSender{configured: true}
	b := NewBatcher(sender, time.Hour, logger.Discard())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sent, err := b.Send(ctx, Batch{Title: "t", Message: "m", Recipients: recipients("a@x.io", "b@x.io")})
	require.Error(t, err)
	require.Equal(t, 1, sent)
}

func TestInlineDeliveryOutlivesEffectTimeout(t *testing.T) {
	sender := &recordingSender{configured: true}
	interval := 30 * time.Millisecond
	d := NewInline(NewBatcher(sender, interval, logger.Discard()))
	runner := effects.NewRunner(logger.Discard(), 50*time.Millisecond)

	addresses := []string{"a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io"}
	var sent int
	report := runner.Run(context.Background(), effects.New("email", func(ctx context.Context) error {
		var err error
		sent, err = d.Deliver(ctx, Batch{Title: "t", Message: "m", Recipients: recipients(addresses...)})
		return err
	}))

	require.Empty(t, report.Failed())
	require.Equal(t, len(addresses), sent)
	require.Len(t, sender.messages, len(addresses))
}

func TestInlineDeliveryIgnoresCallerCancellation(t *testing.T) {
	sender := &recordingSender{configured: true}
	d := NewInline(NewBatcher(sender, time.Millisecond, logger.Discard()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := d.Deliver(ctx, Batch{Title: "t", Message: "m", Recipients: recipients("a@x.io", "b@x.io")})
	require.NoError(t, err)
	require.Equal(t, 2, sent)
}

type fakeQueue struct {
	batches []Batch
	err     error
}

func (q *fakeQueue) EnqueueEmailBatch(_ context.Context, batch Batch) error {
	if q.err != nil {
		return q.err
	}
	q.batches = append(q.batches, batch)
	return nil
}

func TestQueuedDeliveryEnqueues(t *testing.T) {
	q := &fakeQueue{}
	d := NewQueued(q)

	n, err := d.Deliver(context.Background(), Batch{Title: "t", Recipients: recipients("a@x.io")})
	require.NoError(t, err)
	require.Zero(t, n)
	require.Len(t, q.batches, 1)

	q.err = errors.New("redis down")
	_, err = d.Deliver(context.Background(), Batch{})
	require.Error(t, err)
}
