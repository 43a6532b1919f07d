package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	opCreate = "documents.repository.create"
	opGet    = "documents.repository.get"
	opList   = "documents.repository.list"

	documentColumns = `id, intervention_id, uploaded_by, file_name, content_type, size_bytes, object_key, created_at`
)

// Document is a file attached to an intervention. The bytes live in
// object storage under ObjectKey.
type Document struct {
	ID             uuid.UUID `json:"id"`
	InterventionID uuid.UUID `json:"interventionId"`
	UploadedBy     uuid.UUID `json:"uploadedBy"`
	FileName       string    `json:"fileName"`
	ContentType    string    `json:"contentType"`
	SizeBytes      int64     `json:"sizeBytes"`
	ObjectKey      string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Repository persists document metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a documents repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanDocument(row pgx.Row) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.InterventionID, &d.UploadedBy, &d.FileName, &d.ContentType, &d.SizeBytes, &d.ObjectKey, &d.CreatedAt)
	return d, err
}

// Create inserts a document row.
func (r *Repository) Create(ctx context.Context, d Document) (Document, error) {
	created, err := scanDocument(r.pool.QueryRow(ctx, `
		INSERT INTO intervention_documents (intervention_id, uploaded_by, file_name, content_type, size_bytes, object_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+documentColumns,
		d.InterventionID, d.UploadedBy, d.FileName, d.ContentType, d.SizeBytes, d.ObjectKey,
	))
	if err != nil {
		return Document{}, apperr.Internal(fmt.Sprintf("insert document: %v", err)).WithOp(opCreate)
	}
	return created, nil
}

// GetByID returns one document.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Document, error) {
	d, err := scanDocument(r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM intervention_documents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, apperr.NotFound("document not found").WithOp(opGet)
		}
		return Document{}, apperr.Internal(fmt.Sprintf("get document: %v", err)).WithOp(opGet)
	}
	return d, nil
}

// ListByIntervention returns an intervention's documents, newest first.
func (r *Repository) ListByIntervention(ctx context.Context, interventionID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+documentColumns+`
		FROM intervention_documents
		WHERE intervention_id = $1
		ORDER BY created_at DESC, id`, interventionID)
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("list documents: %v", err)).WithOp(opList)
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) {
		return scanDocument(row)
	})
	if err != nil {
		return nil, apperr.Internal(fmt.Sprintf("scan documents: %v", err)).WithOp(opList)
	}
	return docs, nil
}
