package inapp

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
	opCreateBatch = "notification.inapp.repository.create_batch"
	opList        = "notification.inapp.repository.list"
	opCountUnread = "notification.inapp.repository.count_unread"
	opMarkRead    = "notification.inapp.repository.mark_read"
	opMarkAllRead = "notification.inapp.repository.mark_all_read"
	opArchive     = "notification.inapp.repository.archive"

	errUserIDRequired = "userId is required"

	notificationColumns = `id, user_id, team_id, created_by, type, priority, title, message, is_personal, metadata, read_at, archived_at, created_at`
)

// Priorities of a notification.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Notification struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	TeamID     uuid.UUID      `json:"teamId"`
	CreatedBy  *uuid.UUID     `json:"createdBy,omitempty"`
	Type       string         `json:"type"`
	Priority   string         `json:"priority"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	IsPersonal bool           `json:"isPersonal"`
	Metadata   map[string]any `json:"metadata"`
	ReadAt     *time.Time     `json:"readAt,omitempty"`
	ArchivedAt *time.Time     `json:"archivedAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type CreateParams struct {
	UserID     uuid.UUID
	TeamID     uuid.UUID
	CreatedBy  *uuid.UUID
	Type       string
	Priority   string
	Title      string
	Message    string
	IsPersonal bool
	Metadata   map[string]any
}

// ListFilter narrows the inbox.
type ListFilter struct {
	UnreadOnly      bool
	IncludeArchived bool
	Limit           int
	Offset          int
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.TeamID, &n.CreatedBy, &n.Type, &n.Priority, &n.Title, &n.Message,
		&n.IsPersonal, &n.Metadata, &n.ReadAt, &n.ArchivedAt, &n.CreatedAt)
	return n, err
}

// CreateBatch inserts all rows in one transaction: either every recipient
// gets a row or none does.
func (r *Repository) CreateBatch(ctx context.Context, params []CreateParams) ([]Notification, error) {
	if len(params) == 0 {
		return []Notification{}, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("begin tx: %v", err)).WithOp(opCreateBatch)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, p := range params {
		metadata := p.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		priority := p.Priority
		if priority == "" {
			priority = PriorityNormal
		}
		batch.Queue(`
			INSERT INTO notifications (user_id, team_id, created_by, type, priority, title, message, is_personal, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+notificationColumns,
			p.UserID, p.TeamID, p.CreatedBy, p.Type, priority, p.Title, p.Message, p.IsPersonal, metadata)
	}

	results := tx.SendBatch(ctx, batch)
	created := make([]Notification, 0, len(params))
	for range params {
		n, err := scanNotification(results.QueryRow())
		if err != nil {
			_ = results.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return nil, apperr.Validation("unknown recipient or team").WithOp(opCreateBatch)
			}
			return nil, apperr.Internal(fmt.Sprintf("insert notification: %v", err)).WithOp(opCreateBatch)
		}
		created = append(created, n)
	}
	if err := results.Close(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("close batch: %v", err)).WithOp(opCreateBatch)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("commit notifications: %v", err)).WithOp(opCreateBatch)
	}
	return created, nil
}

func (r *Repository) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Notification, int, error) {
	if userID == uuid.Nil {
		return nil, 0, apperr.Validation(errUserIDRequired).WithOp(opList)
	}

	where := `user_id = $1`
	if !f.IncludeArchived {
		where += ` AND archived_at IS NULL`
	}
	if f.UnreadOnly {
		where += ` AND read_at IS NULL`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, userID).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count notifications failed: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE `+where+`
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list notifications query failed: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]Notification, 0, f.Limit)
	for rows.Next() {
		n, scanErr := scanNotification(rows)
		if scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan notifications failed: %v", scanErr)).WithOp(opList)
		}
		items = append(items, n)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate notifications failed: %v", rowsErr)).WithOp(opList)
	}

	return items, total, nil
}

func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation(errUserIDRequired).WithOp(opCountUnread)
	}

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id = $1 AND read_at IS NULL AND archived_at IS NULL
	`, userID).Scan(&count)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("count unread notifications failed: %v", err)).WithOp(opCountUnread)
	}

	return count, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET read_at = COALESCE(read_at, now())
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("mark notification read failed: %v", err)).WithOp(opMarkRead)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opMarkRead)
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET read_at = now()
		WHERE user_id = $1 AND read_at IS NULL
	`, userID)
	if err != nil {
		return 0, apperr.Internal(fmt.Sprintf("mark all notifications read failed: %v", err)).WithOp(opMarkAllRead)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Archive(ctx context.Context, userID, notificationID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET archived_at = COALESCE(archived_at, now())
		WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("archive notification failed: %v", err)).WithOp(opArchive)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("notification not found").WithOp(opArchive)
	}
	return nil
}
