// Package directory resolves users to contact details for notifications.
package directory

import (
	"context"
	"fmt"
	"strings"

	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opContactsByIDs = "directory.contacts_by_ids"
	opTeamStaff     = "directory.team_staff"

	contactColumns = `id, team_id, role, email, first_name, last_name, auth_user_id IS NOT NULL`
)

// Contact is what the notification channels need to know about a user.
type Contact struct {
	UserID         uuid.UUID   `json:"userId"`
	TeamID         uuid.UUID   `json:"teamId"`
	Role           domain.Role `json:"role"`
	Email          string      `json:"email"`
	FirstName      string      `json:"firstName"`
	LastName       string      `json:"lastName"`
	HasAuthAccount bool        `json:"hasAuthAccount"`
}

// DisplayName returns the best human name available.
func (c Contact) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Email
	}
	return name
}

// Repository reads the user directory.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a directory repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ContactsByIDs returns the contacts of the given users. Unknown ids are skipped.
func (r *Repository) ContactsByIDs(ctx context.Context, ids []uuid.UUID) ([]Contact, error) {
	if len(ids) == 0 {
		return []Contact{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+contactColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("query contacts: %v", err)).WithOp(opContactsByIDs)
	}
	return collect(rows, opContactsByIDs)
}

// TeamStaff returns the managers and admins of a team that have a linked
// authentication account.
func (r *Repository) TeamStaff(ctx context.Context, teamID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contactColumns+`
		FROM users
		WHERE team_id = $1 AND role IN ('manager', 'admin') AND auth_user_id IS NOT NULL
		ORDER BY last_name, first_name`, teamID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("query team staff: %v", err)).WithOp(opTeamStaff)
	}
	return collect(rows, opTeamStaff)
}

func collect(rows pgx.Rows, op string) ([]Contact, error) {
	defer rows.Close()
	out := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.UserID, &c.TeamID, &c.Role, &c.Email, &c.FirstName, &c.LastName, &c.HasAuthAccount); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan contact: %v", err)).WithOp(op)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate contacts: %v", err)).WithOp(op)
	}
	return out, nil
}
