package service

import (
	"context"
	"sync"
	"time"

	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/interventions/repository"
	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu            sync.Mutex
	interventions map[uuid.UUID]domain.Intervention
	assignments   map[uuid.UUID][]domain.Assignment
	reports       []repository.Report
	updates       int
	reportErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		interventions: make(map[uuid.UUID]domain.Intervention),
		assignments:   make(map[uuid.UUID][]domain.Assignment),
	}
}

func (f *fakeStore) seed(iv domain.Intervention, assignments ...domain.Assignment) domain.Intervention {
	f.mu.Lock()
	defer f.mu.Unlock()
	if iv.ID == uuid.Nil {
		iv.ID = uuid.New()
	}
	f.interventions[iv.ID] = iv
	for _, a := range assignments {
		a.InterventionID = iv.ID
		f.assignments[iv.ID] = append(f.assignments[iv.ID], a)
	}
	return iv
}

func (f *fakeStore) status(id uuid.UUID) domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interventions[id].Status
}

func (f *fakeStore) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.Intervention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv, ok := f.interventions[id]
	if !ok {
		return domain.Intervention{}, apperr.NotFound("intervention not found")
	}
	return iv, nil
}

func (f *fakeStore) IsAssigned(_ context.Context, interventionID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	iv := f.interventions[interventionID]
	if iv.TenantID != nil && *iv.TenantID == userID {
		return true, nil
	}
	for _, a := range f.assignments[interventionID] {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, from domain.Status, next domain.Intervention) (domain.Intervention, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.interventions[next.ID]
	if !ok || current.Status != from {
		return domain.Intervention{}, apperr.IllegalTransition("intervention status changed before the update was applied")
	}
	f.interventions[next.ID] = next
	f.updates++
	return next, nil
}

func (f *fakeStore) CreateReport(_ context.Context, interventionID, authorID uuid.UUID, kind domain.ReportKind, content string) (repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reportErr != nil {
		return repository.Report{}, f.reportErr
	}
	r := repository.Report{
		ID:             uuid.New(),
		InterventionID: interventionID,
		Kind:           kind,
		AuthorID:       authorID,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	f.reports = append(f.reports, r)
	return r, nil
}

func (f *fakeStore) Create(_ context.Context, p repository.CreateParams) (domain.Intervention, error) {
	iv := domain.Intervention{
		ID:        uuid.New(),
		TeamID:    p.TeamID,
		LotID:     p.LotID,
		TenantID:  p.TenantID,
		CreatedBy: p.CreatedBy,
		Title:     p.Title,
		Urgency:   p.Urgency,
		Status:    domain.StatusRequested,
	}
	return f.seed(iv, p.Assignments...), nil
}

func (f *fakeStore) List(_ context.Context, p repository.ListParams) ([]domain.Intervention, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]domain.Intervention, 0)
	for _, iv := range f.interventions {
		if iv.TeamID == p.TeamID {
			items = append(items, iv)
		}
	}
	return items, len(items), nil
}

func (f *fakeStore) ListAssignments(_ context.Context, interventionID uuid.UUID) ([]domain.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Assignment(nil), f.assignments[interventionID]...), nil
}

func (f *fakeStore) Assign(_ context.Context, a domain.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments[a.InterventionID] = append(f.assignments[a.InterventionID], a)
	return nil
}

func (f *fakeStore) ListReports(_ context.Context, interventionID uuid.UUID) ([]repository.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Report, 0)
	for _, r := range f.reports {
		if r.InterventionID == interventionID {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ Store = (*fakeStore)(nil)
