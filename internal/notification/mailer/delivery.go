package mailer

import (
	"context"
	"fmt"
)

// Delivery modes accepted in EMAIL_DELIVERY_MODE.
const (
	ModeInline = "inline"
	ModeQueued = "queued"
)

// Delivery hands a batch to the batcher, now or later.
// The returned count is the number of emails sent synchronously.
type Delivery interface {
	Deliver(ctx context.Context, batch Batch) (int, error)
}

// Inline sends the batch in the calling goroutine.
type Inline struct {
	batcher *Batcher
}

// NewInline creates an inline delivery around batcher.
func NewInline(batcher *Batcher) *Inline {
	return &Inline{batcher: batcher}
}

// Deliver sends the batch before returning. The batch ignores the caller's
// deadline and cancellation; it is bounded by the batcher's budget instead.
func (d *Inline) Deliver(ctx context.Context, batch Batch) (int, error) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.batcher.Budget(len(batch.Recipients)))
	defer cancel()
	return d.batcher.Send(sendCtx, batch)
}

// Enqueuer puts a batch on the background queue.
type Enqueuer interface {
	EnqueueEmailBatch(ctx context.Context, batch Batch) error
}

// Queued defers the batch to the worker process.
type Queued struct {
	queue Enqueuer
}

// NewQueued creates a delivery that enqueues onto queue.
func NewQueued(queue Enqueuer) *Queued {
	return &Queued{queue: queue}
}

// Deliver enqueues the batch. Nothing is sent synchronously, so the count is always zero.
func (d *Queued) Deliver(ctx context.Context, batch Batch) (int, error) {
	if err := d.queue.EnqueueEmailBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("enqueue email batch: %w", err)
	}
	return 0, nil
}
