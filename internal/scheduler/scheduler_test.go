package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"property_portal_backend/internal/email"
	"property_portal_backend/internal/notification/mailer"
	"property_portal_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type countingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *countingSender) IsConfigured() bool { return true }

func (s *countingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg.ToEmail)
	return nil
}

func testBatch() mailer.Batch {
	return mailer.Batch{
		Title:   "Intervention planifiée",
		Message: "L'intervention a été planifiée.",
		URL:     "https://app.example.com/interventions/1",
		Recipients: []mailer.Recipient{
			{UserID: uuid.New(), Email: "a@example.com", Name: "A", RoleLabel: "gestionnaire"},
			{UserID: uuid.New(), Email: "b@example.com", Name: "B", RoleLabel: "prestataire"},
		},
	}
}

func TestEnqueueEmailBatchWithoutRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	opt := asynq.RedisClientOpt{Addr: mr.Addr()}

	c := newClient(opt, "notifications")
	defer func() { _ = c.Close() }()

	require.NoError(t, c.EnqueueEmailBatch(context.Background(), testBatch()))

	inspector := asynq.NewInspector(opt)
	defer func() { _ = inspector.Close() }()

	tasks, err := inspector.ListPendingTasks("notifications")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, TaskEmailBatch, tasks[0].Type)
	require.Equal(t, 0, tasks[0].MaxRetry)

	batch, err := ParseEmailBatchPayload(asynq.NewTask(tasks[0].Type, tasks[0].Payload))
	require.NoError(t, err)
	require.Equal(t, "Intervention planifiée", batch.Title)
	require.Len(t, batch.Recipients, 2)
}

func TestHandleEmailBatchSendsEveryRecipient(t *testing.T) {
	sender := &countingSender{}
	w := &Worker{batcher: mailer.NewBatcher(sender, time.Millisecond, logger.Discard()), log: logger.Discard()}

	task, err := NewEmailBatchTask(testBatch())
	require.NoError(t, err)

	require.NoError(t, w.handleEmailBatch(context.Background(), task))
	require.Equal(t, []string{"a@example.com", "b@example.com"}, sender.sent)
}

func TestHandleEmailBatchRejectsBadPayload(t *testing.T) {
	w := &Worker{batcher: mailer.NewBatcher(&countingSender{}, time.Millisecond, logger.Discard()), log: logger.Discard()}

	err := w.handleEmailBatch(context.Background(), asynq.NewTask(TaskEmailBatch, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleEmailBatchReportsInterruptedBatch(t *testing.T) {
	sender := &countingSender{}
	w := &Worker{batcher: mailer.NewBatcher(sender, time.Millisecond, logger.Discard()), log: logger.Discard()}

	task, err := NewEmailBatchTask(testBatch())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = w.handleEmailBatch(ctx, task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Empty(t, sender.sent)
}
