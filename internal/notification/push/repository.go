package push

import (
	"context"
	"fmt"

	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opRegister      = "notification.push.repository.register"
	opUnregister    = "notification.push.repository.unregister"
	opTokensByUsers = "notification.push.repository.tokens_for_users"
	opRemoveTokens  = "notification.push.repository.remove_tokens"
)

// Device is a registered FCM token.
type Device struct {
	UserID uuid.UUID
	Token  string
}

// Repository persists device tokens in push_device_tokens.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Register binds a token to a user. A token moving to another user is reassigned.
func (r *Repository) Register(ctx context.Context, userID uuid.UUID, token, platform string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO push_device_tokens (token, user_id, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform, updated_at = now()`,
		token, userID, platform)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("register device token: %v", err)).WithOp(opRegister)
	}
	return nil
}

func (r *Repository) Unregister(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_device_tokens WHERE token = $1 AND user_id = $2`, token, userID)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("unregister device token: %v", err)).WithOp(opUnregister)
	}
	return nil
}

func (r *Repository) TokensForUsers(ctx context.Context, userIDs []uuid.UUID) ([]Device, error) {
	if len(userIDs) == 0 {
		return []Device{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT user_id, token FROM push_device_tokens WHERE user_id = ANY($1)`, userIDs)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("query device tokens: %v", err)).WithOp(opTokensByUsers)
	}
	devices, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Device, error) {
		var d Device
		err := row.Scan(&d.UserID, &d.Token)
		return d, err
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("scan device tokens: %v", err)).WithOp(opTokensByUsers)
	}
	return devices, nil
}

func (r *Repository) RemoveTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM push_device_tokens WHERE token = ANY($1)`, tokens)
	if err != nil {
		return apperr.Internal(fmt.Sprintf("remove device tokens: %v", err)).WithOp(opRemoveTokens)
	}
	return nil
}
