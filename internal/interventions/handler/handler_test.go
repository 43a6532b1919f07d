package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/interventions/repository"
	"property_portal_backend/internal/interventions/service"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/httpkit"
	"property_portal_backend/platform/logger"
	"property_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu            sync.Mutex
	interventions map[uuid.UUID]domain.Intervention
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (domain.Intervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.interventions[id]
	if !ok {
		return domain.Intervention{}, apperr.NotFound("intervention not found")
	}
	return iv, nil
}

func (m *memoryStore) IsAssigned(_ context.Context, interventionID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv := m.interventions[interventionID]
	return iv.TenantID != nil && *iv.TenantID == userID, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, from domain.Status, next domain.Intervention) (domain.Intervention, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interventions[next.ID].Status != from {
		return domain.Intervention{}, apperr.IllegalTransition("intervention status changed")
	}
	m.interventions[next.ID] = next
	return next, nil
}

func (m *memoryStore) CreateReport(_ context.Context, interventionID, authorID uuid.UUID, kind domain.ReportKind, content string) (repository.Report, error) {
	return repository.Report{ID: uuid.New(), InterventionID: interventionID, AuthorID: authorID, Kind: kind, Content: content}, nil
}

func (m *memoryStore) Create(context.Context, repository.CreateParams) (domain.Intervention, error) {
	return domain.Intervention{}, apperr.Internal("not used")
}

func (m *memoryStore) List(context.Context, repository.ListParams) ([]domain.Intervention, int, error) {
	return nil, 0, nil
}

func (m *memoryStore) ListAssignments(context.Context, uuid.UUID) ([]domain.Assignment, error) {
	return nil, nil
}

func (m *memoryStore) Assign(context.Context, domain.Assignment) error { return nil }

func (m *memoryStore) ListReports(context.Context, uuid.UUID) ([]repository.Report, error) {
	return nil, nil
}

func (m *memoryStore) status(id uuid.UUID) domain.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interventions[id].Status
}

type fixture struct {
	store  *memoryStore
	engine *gin.Engine
	teamID uuid.UUID
	tenant uuid.UUID
}

// newFixture serves the handler behind a middleware that authenticates the
// request as the user named in the X-Test-* headers.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()
	f := &fixture{
		store:  &memoryStore{interventions: make(map[uuid.UUID]domain.Intervention)},
		teamID: uuid.New(),
		tenant: uuid.New(),
	}
	svc := service.New(f.store, events.NewInMemoryBus(log), effects.NewInlineRunner(log), log)

	f.engine = gin.New()
	api := f.engine.Group("/interventions", func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(httpkit.ContextUserIDKey, uuid.MustParse(c.GetHeader("X-Test-User")))
			c.Set(httpkit.ContextRoleKey, role)
			c.Set(httpkit.ContextTeamIDKey, f.teamID)
		}
		c.Next()
	})
	New(svc, validator.New()).RegisterRoutes(api)
	return f
}

func (f *fixture) seed(status domain.Status) uuid.UUID {
	tenant := f.tenant
	iv := domain.Intervention{ID: uuid.New(), TeamID: f.teamID, TenantID: &tenant, Title: "Fuite", Status: status}
	f.store.interventions[iv.ID] = iv
	return iv.ID
}

func (f *fixture) transition(t *testing.T, id string, userID uuid.UUID, role string, body map[string]any) (int, httpkit.Result) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/interventions/"+id+"/transitions", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-User", userID.String())
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var res httpkit.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return w.Code, res
}

func TestManagerApproveReturnsUpdatedIntervention(t *testing.T) {
	f := newFixture(t)
	id := f.seed(domain.StatusRequested)

	code, res := f.transition(t, id.String(), uuid.New(), "manager", map[string]any{"action": "approve"})

	require.Equal(t, http.StatusOK, code)
	require.True(t, res.Success)
	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "approuvee", data["status"])
	require.Equal(t, domain.StatusApproved, f.store.status(id))
}

func TestTenantCannotApprove(t *testing.T) {
	f := newFixture(t)
	id := f.seed(domain.StatusRequested)

	code, res := f.transition(t, id.String(), f.tenant, "tenant", map[string]any{"action": "approve"})

	require.Equal(t, http.StatusForbidden, code)
	require.False(t, res.Success)
	require.Equal(t, "forbidden", res.Code)
	require.Equal(t, domain.StatusRequested, f.store.status(id))
}

func TestContestWithoutCommentIsRejected(t *testing.T) {
	f := newFixture(t)
	id := f.seed(domain.StatusClosedByProvider)

	code, res := f.transition(t, id.String(), f.tenant, "tenant", map[string]any{"action": "contest", "comment": ""})

	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation_error", res.Code)
	require.Equal(t, domain.StatusClosedByProvider, f.store.status(id))
}

func TestIllegalTransitionIsConflict(t *testing.T) {
	f := newFixture(t)
	id := f.seed(domain.StatusScheduled)

	code, res := f.transition(t, id.String(), uuid.New(), "manager", map[string]any{"action": "approve"})

	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "illegal_transition", res.Code)
	require.Equal(t, domain.StatusScheduled, f.store.status(id))
}

func TestTransitionRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	id := f.seed(domain.StatusRequested)

	code, _ := f.transition(t, id.String(), uuid.New(), "manager", map[string]any{"action": "teleport"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = f.transition(t, "not-a-uuid", uuid.New(), "manager", map[string]any{"action": "approve"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = f.transition(t, id.String(), uuid.New(), "", map[string]any{"action": "approve"})
	require.Equal(t, http.StatusUnauthorized, code)

	require.Equal(t, domain.StatusRequested, f.store.status(id))
}

func TestWorkflowListsRules(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/interventions/workflow", nil)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var res httpkit.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	rules, ok := res.Data.([]any)
	require.True(t, ok)
	require.Len(t, rules, len(domain.DefaultRegistry.Rules()))
}
