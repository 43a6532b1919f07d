// Package service implements intervention document uploads.
package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"property_portal_backend/internal/documents/repository"
	"property_portal_backend/internal/documents/storage"
	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	opUpload = "documents.upload"
	opAccess = "documents.access"

	effectDocumentUploaded = "documents.publish_uploaded"
)

// Repository is the metadata persistence the service needs.
type Repository interface {
	Create(ctx context.Context, d repository.Document) (repository.Document, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Document, error)
	ListByIntervention(ctx context.Context, interventionID uuid.UUID) ([]repository.Document, error)
}

// ObjectStore holds the file bytes.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key, contentType string, r io.Reader, size int64) error
	PresignGet(ctx context.Context, bucket, key, fileName string) (storage.PresignedURL, error)
	Remove(ctx context.Context, bucket, key string) error
}

// InterventionReader looks up interventions and their participants.
type InterventionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Intervention, error)
	IsAssigned(ctx context.Context, interventionID, userID uuid.UUID) (bool, error)
}

// EffectRunner attempts the effects of a committed operation.
type EffectRunner interface {
	Go(ctx context.Context, effects ...effects.Effect)
}

// Upload is a file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Download is a document with a time-limited link to its content.
type Download struct {
	Document repository.Document  `json:"document"`
	Link     storage.PresignedURL `json:"link"`
}

// Service manages intervention documents.
type Service struct {
	repo          Repository
	store         ObjectStore
	bucket        string
	maxSize       int64
	interventions InterventionReader
	bus           events.Bus
	runner        EffectRunner
	log           *logger.Logger
}

// Options configures the storage side of the service.
type Options struct {
	Bucket  string
	MaxSize int64
}

// New creates the documents service.
func New(repo Repository, store ObjectStore, opts Options, interventions InterventionReader, bus events.Bus, runner EffectRunner, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		store:         store,
		bucket:        opts.Bucket,
		maxSize:       opts.MaxSize,
		interventions: interventions,
		bus:           bus,
		runner:        runner,
		log:           log,
	}
}

// Upload stores the file, records it and announces it.
// If the row cannot be written the stored object is removed again.
func (s *Service) Upload(ctx context.Context, actor domain.Actor, interventionID uuid.UUID, in Upload) (repository.Document, error) {
	if s.store == nil {
		return repository.Document{}, apperr.Internal("document storage is not configured").WithOp(opUpload)
	}
	contentType := storage.NormalizeContentType(in.ContentType)
	if err := storage.Validate(contentType, in.Size, s.maxSize); err != nil {
		return repository.Document{}, err
	}

	iv, err := s.accessibleIntervention(ctx, actor, interventionID)
	if err != nil {
		return repository.Document{}, err
	}

	fileName := storage.CleanFileName(in.FileName)
	key := objectKey(iv, fileName)
	if err := s.store.Put(ctx, s.bucket, key, contentType, in.Body, in.Size); err != nil {
		return repository.Document{}, apperr.Wrap(apperr.KindInternal, "store document", err).WithOp(opUpload)
	}

	doc, err := s.repo.Create(ctx, repository.Document{
		InterventionID: iv.ID,
		UploadedBy:     actor.ID,
		FileName:       fileName,
		ContentType:    contentType,
		SizeBytes:      in.Size,
		ObjectKey:      key,
	})
	if err != nil {
		if rmErr := s.store.Remove(context.WithoutCancel(ctx), s.bucket, key); rmErr != nil {
			s.log.Warn("failed to remove orphaned document object", "key", key, "error", rmErr)
		}
		return repository.Document{}, err
	}

	event := events.DocumentUploaded{
		BaseEvent:      events.NewBaseEvent(),
		DocumentID:     doc.ID,
		InterventionID: iv.ID,
		TeamID:         iv.TeamID,
		FileName:       doc.FileName,
		Actor:          actor,
	}
	s.runner.Go(ctx, effects.New(effectDocumentUploaded, func(ctx context.Context) error {
		if s.bus == nil {
			return nil
		}
		return s.bus.PublishSync(ctx, event)
	}))
	return doc, nil
}

// List returns the documents of an intervention the actor can see.
func (s *Service) List(ctx context.Context, actor domain.Actor, interventionID uuid.UUID) ([]repository.Document, error) {
	if _, err := s.accessibleIntervention(ctx, actor, interventionID); err != nil {
		return nil, err
	}
	return s.repo.ListByIntervention(ctx, interventionID)
}

// Download returns a presigned link to a document's content.
func (s *Service) Download(ctx context.Context, actor domain.Actor, documentID uuid.UUID) (Download, error) {
	if s.store == nil {
		return Download{}, apperr.Internal("document storage is not configured").WithOp(opAccess)
	}
	doc, err := s.repo.GetByID(ctx, documentID)
	if err != nil {
		return Download{}, err
	}
	if _, err := s.accessibleIntervention(ctx, actor, doc.InterventionID); err != nil {
		return Download{}, err
	}

	link, err := s.store.PresignGet(ctx, s.bucket, doc.ObjectKey, doc.FileName)
	if err != nil {
		return Download{}, apperr.Wrap(apperr.KindInternal, "presign document", err).WithOp(opAccess)
	}
	return Download{Document: doc, Link: link}, nil
}

// accessibleIntervention lets team staff and assigned users in. The
// intervention and the assignment are looked up concurrently.
func (s *Service) accessibleIntervention(ctx context.Context, actor domain.Actor, interventionID uuid.UUID) (domain.Intervention, error) {
	var (
		iv       domain.Intervention
		assigned bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		iv, err = s.interventions.GetByID(gctx, interventionID)
		return err
	})
	g.Go(func() error {
		var err error
		assigned, err = s.interventions.IsAssigned(gctx, interventionID, actor.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Intervention{}, err
	}

	if actor.Role.IsStaff() && actor.TeamID == iv.TeamID {
		return iv, nil
	}
	if assigned || (iv.TenantID != nil && *iv.TenantID == actor.ID) {
		return iv, nil
	}
	return domain.Intervention{}, apperr.Forbidden("you are not part of this intervention").WithOp(opAccess)
}

func objectKey(iv domain.Intervention, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s/%s%s", iv.TeamID, iv.ID, uuid.New(), ext)
}
