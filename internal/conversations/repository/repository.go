package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreateThread     = "conversations.repository.create_thread"
	opGetThread        = "conversations.repository.get_thread"
	opListThreads      = "conversations.repository.list_threads"
	opAddParticipant   = "conversations.repository.add_participant"
	opListParticipants = "conversations.repository.list_participants"
	opCreateMessage    = "conversations.repository.create_message"
	opListMessages     = "conversations.repository.list_messages"

	threadColumns  = `id, intervention_id, team_id, title, last_email_notification_at, created_by, created_at`
	messageColumns = `id, thread_id, author_id, content, created_at`
)

// Thread is a conversation attached to an intervention.
type Thread struct {
	ID                      uuid.UUID  `json:"id"`
	InterventionID          uuid.UUID  `json:"interventionId"`
	TeamID                  uuid.UUID  `json:"teamId"`
	Title                   string     `json:"title"`
	LastEmailNotificationAt *time.Time `json:"lastEmailNotificationAt,omitempty"`
	CreatedBy               uuid.UUID  `json:"createdBy"`
	CreatedAt               time.Time  `json:"createdAt"`
}

// Message is one post in a thread.
type Message struct {
	ID        uuid.UUID `json:"id"`
	ThreadID  uuid.UUID `json:"threadId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository persists threads, participants and messages.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a conversations repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanThread(row rowScanner) (Thread, error) {
	var t Thread
	err := row.Scan(&t.ID, &t.InterventionID, &t.TeamID, &t.Title, &t.LastEmailNotificationAt, &t.CreatedBy, &t.CreatedAt)
	return t, err
}

func scanMessage(row rowScanner) (Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ThreadID, &m.AuthorID, &m.Content, &m.CreatedAt)
	return m, err
}

// CreateThread inserts a thread and its initial participants atomically.
func (r *Repository) CreateThread(ctx context.Context, t Thread, participants []uuid.UUID) (Thread, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Thread{}, apperr.Internal(fmt.Sprintf("begin tx: %v", err)).WithOp(opCreateThread)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := scanThread(tx.QueryRow(ctx, `
		INSERT INTO conversation_threads (intervention_id, team_id, title, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+threadColumns,
		t.InterventionID, t.TeamID, t.Title, t.CreatedBy,
	))
	if err != nil {
		return Thread{}, apperr.Internal(fmt.Sprintf("insert thread: %v", err)).WithOp(opCreateThread)
	}

	for _, userID := range participants {
		if _, err := tx.Exec(ctx, `
			INSERT INTO conversation_participants (thread_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, created.ID, userID); err != nil {
			return Thread{}, participantError(err, opCreateThread)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Thread{}, apperr.Internal(fmt.Sprintf("commit thread: %v", err)).WithOp(opCreateThread)
	}
	return created, nil
}

// GetThread returns one thread.
func (r *Repository) GetThread(ctx context.Context, id uuid.UUID) (Thread, error) {
	t, err := scanThread(r.pool.QueryRow(ctx, `SELECT `+threadColumns+` FROM conversation_threads WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Thread{}, apperr.NotFound("thread not found").WithOp(opGetThread)
		}
		return Thread{}, apperr.Internal(fmt.Sprintf("get thread: %v", err)).WithOp(opGetThread)
	}
	return t, nil
}

// ListThreads returns the threads of an intervention, newest first.
func (r *Repository) ListThreads(ctx context.Context, interventionID uuid.UUID) ([]Thread, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+threadColumns+`
		FROM conversation_threads
		WHERE intervention_id = $1
		ORDER BY created_at DESC`, interventionID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list threads: %v", err)).WithOp(opListThreads)
	}
	defer rows.Close()

	out := make([]Thread, 0)
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan thread: %v", err)).WithOp(opListThreads)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate threads: %v", err)).WithOp(opListThreads)
	}
	return out, nil
}

// AddParticipant adds a user to a thread. Adding an existing participant is a no-op.
func (r *Repository) AddParticipant(ctx context.Context, threadID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO conversation_participants (thread_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, threadID, userID)
	if err != nil {
		return participantError(err, opAddParticipant)
	}
	return nil
}

// ListParticipants returns the user ids taking part in a thread.
func (r *Repository) ListParticipants(ctx context.Context, threadID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM conversation_participants
		WHERE thread_id = $1
		ORDER BY joined_at`, threadID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list participants: %v", err)).WithOp(opListParticipants)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("scan participants: %v", err)).WithOp(opListParticipants)
	}
	return ids, nil
}

// CreateMessage stores a message.
func (r *Repository) CreateMessage(ctx context.Context, threadID, authorID uuid.UUID, content string) (Message, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx, `
		INSERT INTO conversation_messages (thread_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING `+messageColumns,
		threadID, authorID, content,
	))
	if err != nil {
		return Message{}, apperr.Internal(fmt.Sprintf("insert message: %v", err)).WithOp(opCreateMessage)
	}
	return m, nil
}

// ListMessages returns a page of messages, oldest first.
func (r *Repository) ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+`
		FROM conversation_messages
		WHERE thread_id = $1
		ORDER BY created_at, id
		LIMIT $2 OFFSET $3`, threadID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list messages: %v", err)).WithOp(opListMessages)
	}
	defer rows.Close()

	out := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan message: %v", err)).WithOp(opListMessages)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate messages: %v", err)).WithOp(opListMessages)
	}
	return out, nil
}

func participantError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return apperr.Validation("participant does not exist").WithOp(op)
	}
	return apperr.Internal(fmt.Sprintf("add participant: %v", err)).WithOp(op)
}
