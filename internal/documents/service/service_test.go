package service

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"property_portal_backend/internal/documents/repository"
	"property_portal_backend/internal/documents/storage"
	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeDocuments struct {
	mu        sync.Mutex
	docs      map[uuid.UUID]repository.Document
	createErr error
}

func (f *fakeDocuments) Create(_ context.Context, d repository.Document) (repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return repository.Document{}, f.createErr
	}
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	f.docs[d.ID] = d
	return d, nil
}

func (f *fakeDocuments) GetByID(_ context.Context, id uuid.UUID) (repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return repository.Document{}, apperr.NotFound("document not found")
	}
	return d, nil
}

func (f *fakeDocuments) ListByIntervention(_ context.Context, interventionID uuid.UUID) ([]repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Document
	for _, d := range f.docs {
		if d.InterventionID == interventionID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string]string
	removed []string
}

func (f *fakeStore) Put(_ context.Context, _, key, _ string, r io.Reader, _ int64) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = string(b)
	return nil
}

func (f *fakeStore) PresignGet(_ context.Context, bucket, key, _ string) (storage.PresignedURL, error) {
	return storage.PresignedURL{URL: "https://minio.local/" + bucket + "/" + key, ExpiresAt: time.Now().Add(storage.PresignedURLTTL)}, nil
}

func (f *fakeStore) Remove(_ context.Context, _, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

type fakeInterventions struct {
	iv       domain.Intervention
	assigned map[uuid.UUID]bool
}

func (f *fakeInterventions) GetByID(_ context.Context, id uuid.UUID) (domain.Intervention, error) {
	if id != f.iv.ID {
		return domain.Intervention{}, apperr.NotFound("intervention not found")
	}
	return f.iv, nil
}

func (f *fakeInterventions) IsAssigned(_ context.Context, _, userID uuid.UUID) (bool, error) {
	return f.assigned[userID], nil
}

type fixture struct {
	svc      *Service
	docs     *fakeDocuments
	store    *fakeStore
	iv       domain.Intervention
	manager  domain.Actor
	provider domain.Actor
	uploaded chan events.DocumentUploaded
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	team := uuid.New()
	f := &fixture{
		docs:     &fakeDocuments{docs: make(map[uuid.UUID]repository.Document)},
		store:    &fakeStore{objects: make(map[string]string)},
		iv:       domain.Intervention{ID: uuid.New(), TeamID: team, Title: "Chaudière"},
		manager:  domain.Actor{ID: uuid.New(), Role: domain.RoleManager, TeamID: team},
		provider: domain.Actor{ID: uuid.New(), Role: domain.RoleProvider, TeamID: uuid.New()},
		uploaded: make(chan events.DocumentUploaded, 1),
	}
	bus := events.NewInMemoryBus(logger.Discard())
	bus.Subscribe(events.DocumentUploaded{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		f.uploaded <- e.(events.DocumentUploaded)
		return nil
	}))
	ivs := &fakeInterventions{iv: f.iv, assigned: map[uuid.UUID]bool{f.provider.ID: true}}
	f.svc = New(f.docs, f.store, Options{Bucket: "docs", MaxSize: 1 << 20}, ivs, bus, effects.NewInlineRunner(logger.Discard()), logger.Discard())
	return f
}

func pdf(content string) Upload {
	return Upload{FileName: "rapport.PDF", ContentType: "application/pdf", Size: int64(len(content)), Body: strings.NewReader(content)}
}

func TestUploadStoresAndAnnounces(t *testing.T) {
	f := newFixture(t)

	doc, err := f.svc.Upload(context.Background(), f.provider, f.iv.ID, pdf("%PDF-1.7"))
	require.NoError(t, err)
	require.Equal(t, "rapport.PDF", doc.FileName)
	require.Equal(t, f.provider.ID, doc.UploadedBy)
	require.True(t, strings.HasPrefix(doc.ObjectKey, f.iv.TeamID.String()+"/"+f.iv.ID.String()+"/"))
	require.True(t, strings.HasSuffix(doc.ObjectKey, ".pdf"))
	require.Equal(t, "%PDF-1.7", f.store.objects[doc.ObjectKey])

	select {
	case e := <-f.uploaded:
		require.Equal(t, doc.ID, e.DocumentID)
		require.Equal(t, f.iv.TeamID, e.TeamID)
		require.Equal(t, f.provider, e.Actor)
	default:
		t.Fatal("expected a DocumentUploaded event")
	}
}

func TestUploadRejectsOutsiders(t *testing.T) {
	f := newFixture(t)
	stranger := domain.Actor{ID: uuid.New(), Role: domain.RoleManager, TeamID: uuid.New()}

	_, err := f.svc.Upload(context.Background(), stranger, f.iv.ID, pdf("x"))
	require.True(t, apperr.Is(err, apperr.KindForbidden))
	require.Empty(t, f.store.objects)
}

func TestUploadValidatesBeforeStoring(t *testing.T) {
	f := newFixture(t)
	exe := Upload{FileName: "setup.exe", ContentType: "application/x-msdownload", Size: 3, Body: strings.NewReader("MZ!")}

	_, err := f.svc.Upload(context.Background(), f.manager, f.iv.ID, exe)
	require.True(t, apperr.Is(err, apperr.KindValidation))
	require.Empty(t, f.store.objects)
}

func TestUploadRemovesObjectWhenRowFails(t *testing.T) {
	f := newFixture(t)
	f.docs.createErr = apperr.Internal("insert document")

	_, err := f.svc.Upload(context.Background(), f.manager, f.iv.ID, pdf("x"))
	require.Error(t, err)
	require.Empty(t, f.store.objects)
	require.Len(t, f.store.removed, 1)
	require.Empty(t, f.uploaded)
}

func TestDownloadChecksAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.Upload(ctx, f.manager, f.iv.ID, pdf("x"))
	require.NoError(t, err)

	dl, err := f.svc.Download(ctx, f.provider, doc.ID)
	require.NoError(t, err)
	require.Contains(t, dl.Link.URL, doc.ObjectKey)

	tenant := domain.Actor{ID: uuid.New(), Role: domain.RoleTenant, TeamID: f.iv.TeamID}
	_, err = f.svc.Download(ctx, tenant, doc.ID)
	require.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestMissingStoreFails(t *testing.T) {
	f := newFixture(t)
	f.svc.store = nil

	_, err := f.svc.Upload(context.Background(), f.manager, f.iv.ID, pdf("x"))
	require.True(t, apperr.Is(err, apperr.KindInternal))
}
