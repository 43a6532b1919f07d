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
	opCreate             = "quotes.repository.create"
	opGetByID            = "quotes.repository.get_by_id"
	opListByIntervention = "quotes.repository.list_by_intervention"
	opAcceptCompetition  = "quotes.repository.accept_competition"
	opReject             = "quotes.repository.reject"

	quoteNotFoundMsg = "quote not found"
	quoteColumns     = `id, intervention_id, provider_id, team_id, amount_cents, description, status,
		validated_at, validated_by, rejection_reason, created_at`
)

// Status is the lifecycle state of a quote. Accepted and rejected are final.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Quote is a provider's price proposal for an intervention.
type Quote struct {
	ID              uuid.UUID  `json:"id"`
	InterventionID  uuid.UUID  `json:"interventionId"`
	ProviderID      uuid.UUID  `json:"providerId"`
	TeamID          uuid.UUID  `json:"teamId"`
	AmountCents     int64      `json:"amountCents"`
	Description     string     `json:"description"`
	Status          Status     `json:"status"`
	ValidatedAt     *time.Time `json:"validatedAt,omitempty"`
	ValidatedBy     *uuid.UUID `json:"validatedBy,omitempty"`
	RejectionReason *string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Decision is the outcome of settling a quote competition.
type Decision struct {
	Accepted Quote
	Rejected []Quote
}

// Repository persists quotes.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuote(row rowScanner) (Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.InterventionID, &q.ProviderID, &q.TeamID, &q.AmountCents, &q.Description, &q.Status,
		&q.ValidatedAt, &q.ValidatedBy, &q.RejectionReason, &q.CreatedAt,
	)
	return q, err
}

func collectQuotes(rows pgx.Rows, op string) ([]Quote, error) {
	defer rows.Close()
	out := make([]Quote, 0)
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, apperr.Internal(fmt.Sprintf("scan quote: %v", err)).WithOp(op)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(fmt.Sprintf("iterate quotes: %v", err)).WithOp(op)
	}
	return out, nil
}

// Create inserts a pending quote.
func (r *Repository) Create(ctx context.Context, q Quote) (Quote, error) {
	created, err := scanQuote(r.pool.QueryRow(ctx, `
		INSERT INTO intervention_quotes (intervention_id, provider_id, team_id, amount_cents, description, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING `+quoteColumns,
		q.InterventionID, q.ProviderID, q.TeamID, q.AmountCents, q.Description,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Quote{}, apperr.Validation("intervention or provider does not exist").WithOp(opCreate)
		}
		return Quote{}, apperr.Internal(fmt.Sprintf("insert quote: %v", err)).WithOp(opCreate)
	}
	return created, nil
}

// GetByID returns one quote.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM intervention_quotes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Quote{}, apperr.NotFound(quoteNotFoundMsg).WithOp(opGetByID)
		}
		return Quote{}, apperr.Internal(fmt.Sprintf("get quote: %v", err)).WithOp(opGetByID)
	}
	return q, nil
}

// ListByIntervention returns the quotes of an intervention, oldest first.
// A non-nil providerID restricts the list to that provider's quotes.
func (r *Repository) ListByIntervention(ctx context.Context, interventionID uuid.UUID, providerID *uuid.UUID) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM intervention_quotes
		WHERE intervention_id = $1 AND ($2::uuid IS NULL OR provider_id = $2)
		ORDER BY created_at, id`,
		interventionID, providerID,
	)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list quotes: %v", err)).WithOp(opListByIntervention)
	}
	return collectQuotes(rows, opListByIntervention)
}

// AcceptCompetition accepts quoteID and rejects every other pending quote of
// the intervention in one transaction. The intervention's quotes are locked
// first so concurrent acceptances serialize and the loser sees the target
// already decided.
func (r *Repository) AcceptCompetition(ctx context.Context, interventionID, quoteID, validatorID uuid.UUID, reason string, now time.Time) (Decision, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Decision{}, apperr.Internal(fmt.Sprintf("begin tx: %v", err)).WithOp(opAcceptCompetition)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT `+quoteColumns+`
		FROM intervention_quotes
		WHERE intervention_id = $1
		ORDER BY created_at, id
		FOR UPDATE`, interventionID)
	if err != nil {
		return Decision{}, apperr.Internal(fmt.Sprintf("lock quotes: %v", err)).WithOp(opAcceptCompetition)
	}
	locked, err := collectQuotes(rows, opAcceptCompetition)
	if err != nil {
		return Decision{}, err
	}

	var target *Quote
	for i := range locked {
		if locked[i].ID == quoteID {
			target = &locked[i]
		}
	}
	if target == nil {
		return Decision{}, apperr.NotFound(quoteNotFoundMsg).WithOp(opAcceptCompetition)
	}
	if target.Status != StatusPending {
		return Decision{}, apperr.AlreadyProcessed("quote was already processed").WithOp(opAcceptCompetition)
	}
	for _, q := range locked {
		if q.Status == StatusAccepted {
			return Decision{}, apperr.AlreadyProcessed("another quote was already accepted").WithOp(opAcceptCompetition)
		}
	}

	accepted, err := scanQuote(tx.QueryRow(ctx, `
		UPDATE intervention_quotes
		SET status = 'accepted', validated_at = $2, validated_by = $3
		WHERE id = $1
		RETURNING `+quoteColumns,
		quoteID, now, validatorID,
	))
	if err != nil {
		return Decision{}, apperr.Internal(fmt.Sprintf("accept quote: %v", err)).WithOp(opAcceptCompetition)
	}

	rows, err = tx.Query(ctx, `
		UPDATE intervention_quotes
		SET status = 'rejected', validated_at = $3, validated_by = $4, rejection_reason = $5
		WHERE intervention_id = $1 AND id <> $2 AND status = 'pending'
		RETURNING `+quoteColumns,
		interventionID, quoteID, now, validatorID, reason,
	)
	if err != nil {
		return Decision{}, apperr.Internal(fmt.Sprintf("reject competing quotes: %v", err)).WithOp(opAcceptCompetition)
	}
	rejected, err := collectQuotes(rows, opAcceptCompetition)
	if err != nil {
		return Decision{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Decision{}, apperr.Internal(fmt.Sprintf("commit quote decision: %v", err)).WithOp(opAcceptCompetition)
	}
	return Decision{Accepted: accepted, Rejected: rejected}, nil
}

// Reject marks a single pending quote as rejected.
func (r *Repository) Reject(ctx context.Context, quoteID, validatorID uuid.UUID, reason string, now time.Time) (Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `
		UPDATE intervention_quotes
		SET status = 'rejected', validated_at = $2, validated_by = $3, rejection_reason = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING `+quoteColumns,
		quoteID, now, validatorID, reason,
	))
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.Internal(fmt.Sprintf("reject quote: %v", err)).WithOp(opReject)
	}
	if _, getErr := r.GetByID(ctx, quoteID); getErr != nil {
		return Quote{}, getErr
	}
	return Quote{}, apperr.AlreadyProcessed("quote was already processed").WithOp(opReject)
}
