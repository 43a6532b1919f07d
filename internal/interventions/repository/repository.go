package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate          = "interventions.repository.create"
	opGetByID         = "interventions.repository.get_by_id"
	opList            = "interventions.repository.list"
	opUpdateStatus    = "interventions.repository.update_status"
	opListAssignments = "interventions.repository.list_assignments"
	opIsAssigned      = "interventions.repository.is_assigned"
	opAssign          = "interventions.repository.assign"
	opCreateReport    = "interventions.repository.create_report"
	opListReports     = "interventions.repository.list_reports"

	interventionNotFoundMsg = "intervention not found"
	interventionColumns     = `id, team_id, lot_id, tenant_id, created_by, title, description, category, urgency,
		status, rejection_reason, final_cost_cents, is_contested, scheduled_date, completed_date, created_at, updated_at`
)

// Report is an audit record written when completion, validation or contestation happens.
type Report struct {
	ID             uuid.UUID         `json:"id"`
	InterventionID uuid.UUID         `json:"interventionId"`
	Kind           domain.ReportKind `json:"kind"`
	AuthorID       uuid.UUID         `json:"authorId"`
	Content        string            `json:"content"`
	CreatedAt      time.Time         `json:"createdAt"`
}

// CreateParams describes a new intervention and its initial assignments.
type CreateParams struct {
	TeamID      uuid.UUID
	LotID       *uuid.UUID
	TenantID    *uuid.UUID
	CreatedBy   uuid.UUID
	Title       string
	Description string
	Category    string
	Urgency     string
	Assignments []domain.Assignment
}

// ListParams filters a team's interventions. A non-nil AssignedTo restricts
// the result to interventions the user is assigned to or is the tenant of.
type ListParams struct {
	TeamID     uuid.UUID
	Status     *domain.Status
	AssignedTo *uuid.UUID
	Limit      int
	Offset     int
}

// Repository persists interventions, their assignments and reports.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new interventions repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntervention(row rowScanner) (domain.Intervention, error) {
	var iv domain.Intervention
	var status string
	err := row.Scan(
		&iv.ID, &iv.TeamID, &iv.LotID, &iv.TenantID, &iv.CreatedBy, &iv.Title, &iv.Description, &iv.Category, &iv.Urgency,
		&status, &iv.RejectionReason, &iv.FinalCostCents, &iv.IsContested, &iv.ScheduledDate, &iv.CompletedDate, &iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return domain.Intervention{}, err
	}
	parsed, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Intervention{}, err
	}
	iv.Status = parsed
	return iv, nil
}

// Create inserts the intervention in its initial status together with its assignments.
func (r *Repository) Create(ctx context.Context, p CreateParams) (domain.Intervention, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Intervention{}, apperr.Internal(fmt.Sprintf("begin transaction: %v", err)).WithOp(opCreate)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	iv, err := scanIntervention(tx.QueryRow(ctx, `
		INSERT INTO interventions (team_id, lot_id, tenant_id, created_by, title, description, category, urgency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+interventionColumns,
		p.TeamID, p.LotID, p.TenantID, p.CreatedBy, p.Title, p.Description, p.Category, p.Urgency, domain.StatusRequested,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.Intervention{}, apperr.Validation("invalid team, tenant or creator").WithOp(opCreate)
		}
		return domain.Intervention{}, apperr.Internal(fmt.Sprintf("insert intervention: %v", err)).WithOp(opCreate)
	}

	for _, a := range p.Assignments {
		if err := upsertAssignment(ctx, tx, iv.ID, a); err != nil {
			return domain.Intervention{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Intervention{}, apperr.Internal(fmt.Sprintf("commit intervention: %v", err)).WithOp(opCreate)
	}
	return iv, nil
}

// GetByID loads one intervention.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Intervention, error) {
	iv, err := scanIntervention(r.pool.QueryRow(ctx, `SELECT `+interventionColumns+` FROM interventions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Intervention{}, apperr.NotFound(interventionNotFoundMsg).WithOp(opGetByID)
		}
		return domain.Intervention{}, apperr.Internal(fmt.Sprintf("get intervention: %v", err)).WithOp(opGetByID)
	}
	return iv, nil
}

// List returns one page of a team's interventions, newest first, and the total count.
func (r *Repository) List(ctx context.Context, p ListParams) ([]domain.Intervention, int, error) {
	var status *string
	if p.Status != nil {
		s := string(*p.Status)
		status = &s
	}

	const filter = `
		FROM interventions i
		WHERE i.team_id = $1
		  AND ($2::text IS NULL OR i.status = $2)
		  AND ($3::uuid IS NULL OR i.tenant_id = $3 OR EXISTS (
				SELECT 1 FROM intervention_assignments a WHERE a.intervention_id = i.id AND a.user_id = $3))`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) `+filter, p.TeamID, status, p.AssignedTo).Scan(&total); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("count interventions: %v", err)).WithOp(opList)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.team_id, i.lot_id, i.tenant_id, i.created_by, i.title, i.description, i.category, i.urgency,
			i.status, i.rejection_reason, i.final_cost_cents, i.is_contested, i.scheduled_date, i.completed_date, i.created_at, i.updated_at
		`+filter+`
		ORDER BY i.created_at DESC
		LIMIT $4 OFFSET $5`, p.TeamID, status, p.AssignedTo, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("list interventions: %v", err)).WithOp(opList)
	}
	defer rows.Close()

	items := make([]domain.Intervention, 0, p.Limit)
	for rows.Next() {
		iv, scanErr := scanIntervention(rows)
		if scanErr != nil {
			return nil, 0, apperr.Internal(fmt.Sprintf("scan intervention: %v", scanErr)).WithOp(opList)
		}
		items = append(items, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Internal(fmt.Sprintf("iterate interventions: %v", err)).WithOp(opList)
	}
	return items, total, nil
}

// UpdateStatus persists next only if the stored status is still from.
// A concurrent transition that got there first makes this report an illegal transition.
func (r *Repository) UpdateStatus(ctx context.Context, from domain.Status, next domain.Intervention) (domain.Intervention, error) {
	updated, err := scanIntervention(r.pool.QueryRow(ctx, `
		UPDATE interventions
		SET status = $3,
			rejection_reason = $4,
			final_cost_cents = $5,
			is_contested = $6,
			scheduled_date = $7,
			completed_date = $8,
			updated_at = $9
		WHERE id = $1 AND status = $2
		RETURNING `+interventionColumns,
		next.ID, from, next.Status, next.RejectionReason, next.FinalCostCents, next.IsContested,
		next.ScheduledDate, next.CompletedDate, next.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Intervention{}, apperr.IllegalTransition("intervention status changed before the update was applied").WithOp(opUpdateStatus)
		}
		return domain.Intervention{}, apperr.Internal(fmt.Sprintf("update intervention status: %v", err)).WithOp(opUpdateStatus)
	}
	return updated, nil
}

// ListAssignments returns every assignment of an intervention.
func (r *Repository) ListAssignments(ctx context.Context, interventionID uuid.UUID) ([]domain.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT intervention_id, user_id, role, is_primary
		FROM intervention_assignments
		WHERE intervention_id = $1
		ORDER BY created_at`, interventionID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list assignments: %v", err)).WithOp(opListAssignments)
	}
	defer rows.Close()

	out := make([]domain.Assignment, 0)
	for rows.Next() {
		var a domain.Assignment
		var role string
		if err := rows.Scan(&a.InterventionID, &a.UserID, &role, &a.IsPrimary); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan assignment: %v", err)).WithOp(opListAssignments)
		}
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, apperr.Internal(err.Error()).WithOp(opListAssignments)
		}
		a.Role = parsed
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate assignments: %v", err)).WithOp(opListAssignments)
	}
	return out, nil
}

// IsAssigned reports whether the user is assigned to, or is the tenant of, the intervention.
func (r *Repository) IsAssigned(ctx context.Context, interventionID, userID uuid.UUID) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM intervention_assignments WHERE intervention_id = $1 AND user_id = $2
		) OR EXISTS (
			SELECT 1 FROM interventions WHERE id = $1 AND tenant_id = $2
		)`, interventionID, userID).Scan(&assigned)
	if err != nil {
		return false, apperr.Internal(fmt.Sprintf("check assignment: %v", err)).WithOp(opIsAssigned)
	}
	return assigned, nil
}

// Assign adds or updates an assignment.
func (r *Repository) Assign(ctx context.Context, a domain.Assignment) error {
	return upsertAssignment(ctx, r.pool, a.InterventionID, a)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertAssignment(ctx context.Context, db execer, interventionID uuid.UUID, a domain.Assignment) error {
	_, err := db.Exec(ctx, `
		INSERT INTO intervention_assignments (intervention_id, user_id, role, is_primary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (intervention_id, user_id, role) DO UPDATE SET is_primary = EXCLUDED.is_primary`,
		interventionID, a.UserID, a.Role, a.IsPrimary)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return apperr.Validation("invalid intervention or user for assignment").WithOp(opAssign)
		}
		return apperr.Internal(fmt.Sprintf("assign user: %v", err)).WithOp(opAssign)
	}
	return nil
}

// CreateReport stores an audit report.
func (r *Repository) CreateReport(ctx context.Context, interventionID, authorID uuid.UUID, kind domain.ReportKind, content string) (Report, error) {
	var rep Report
	var storedKind string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO intervention_reports (intervention_id, kind, author_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, intervention_id, kind, author_id, content, created_at`,
		interventionID, kind, authorID, content,
	).Scan(&rep.ID, &rep.InterventionID, &storedKind, &rep.AuthorID, &rep.Content, &rep.CreatedAt)
	if err != nil {
		return Report{}, apperr.Internal(fmt.Sprintf("insert report: %v", err)).WithOp(opCreateReport)
	}
	rep.Kind = domain.ReportKind(storedKind)
	return rep, nil
}

// ListReports returns the reports of an intervention, oldest first.
func (r *Repository) ListReports(ctx context.Context, interventionID uuid.UUID) ([]Report, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, intervention_id, kind, author_id, content, created_at
		FROM intervention_reports
		WHERE intervention_id = $1
		ORDER BY created_at`, interventionID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list reports: %v", err)).WithOp(opListReports)
	}
	defer rows.Close()

	out := make([]Report, 0)
	for rows.Next() {
		var rep Report
		var kind string
		if err := rows.Scan(&rep.ID, &rep.InterventionID, &kind, &rep.AuthorID, &rep.Content, &rep.CreatedAt); err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan report: %v", err)).WithOp(opListReports)
		}
		rep.Kind = domain.ReportKind(kind)
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate reports: %v", err)).WithOp(opListReports)
	}
	return out, nil
}
