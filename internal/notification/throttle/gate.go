// Package throttle caps conversation email notifications to one batch per
// thread per cooldown window.
package throttle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opTryClaim = "notification.throttle.try_claim"

	DefaultCooldown = 5 * time.Minute
)

// Gate decides whether a thread may send another email batch.
type Gate interface {
	TryClaim(ctx context.Context, threadID uuid.UUID) (bool, error)
}

// PostgresGate stores the window on conversation_threads.last_email_notification_at.
// Claiming is a single conditional UPDATE, so two concurrent messages cannot
// both pass the check.
type PostgresGate struct {
	pool     *pgxpool.Pool
	cooldown time.Duration
	now      func() time.Time
}

// NewPostgresGate creates a gate with the given cooldown (DefaultCooldown when zero).
func NewPostgresGate(pool *pgxpool.Pool, cooldown time.Duration) *PostgresGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &PostgresGate{pool: pool, cooldown: cooldown, now: time.Now}
}

// TryClaim moves the thread's timestamp to now when the previous one is null
// or at least one cooldown old. It reports whether the caller won the window.
func (g *PostgresGate) TryClaim(ctx context.Context, threadID uuid.UUID) (bool, error) {
	now := g.now().UTC()
	tag, err := g.pool.Exec(ctx, `
		UPDATE conversation_threads
		SET last_email_notification_at = $2
		WHERE id = $1
		  AND (last_email_notification_at IS NULL OR last_email_notification_at <= $3)`,
		threadID, now, now.Add(-g.cooldown))
	if err != nil {
		return false, apperr.Internal(fmt.Sprintf("claim email window: %v", err)).WithOp(opTryClaim)
	}
	return tag.RowsAffected() == 1, nil
}

// MemoryGate keeps windows in process. Used by tests and single-instance tools.
type MemoryGate struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	last     map[uuid.UUID]time.Time
}

// NewMemoryGate creates an in-process gate.
func NewMemoryGate(cooldown time.Duration, now func() time.Time) *MemoryGate {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryGate{cooldown: cooldown, now: now, last: make(map[uuid.UUID]time.Time)}
}

// Seed sets the last dispatch time of a thread.
func (g *MemoryGate) Seed(threadID uuid.UUID, at time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[threadID] = at
}

// Last returns the last dispatch time of a thread.
func (g *MemoryGate) Last(threadID uuid.UUID) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.last[threadID]
	return t, ok
}

func (g *MemoryGate) TryClaim(_ context.Context, threadID uuid.UUID) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if last, ok := g.last[threadID]; ok && now.Sub(last) < g.cooldown {
		return false, nil
	}
	g.last[threadID] = now
	return true, nil
}
