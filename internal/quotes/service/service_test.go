package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/quotes/repository"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]repository.Quote
	order  []uuid.UUID
	calls  int
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: make(map[uuid.UUID]repository.Quote)}
}

func (f *fakeQuotes) add(interventionID, teamID uuid.UUID, amount int64) repository.Quote {
	q := repository.Quote{
		ID:             uuid.New(),
		InterventionID: interventionID,
		ProviderID:     uuid.New(),
		TeamID:         teamID,
		AmountCents:    amount,
		Status:         repository.StatusPending,
	}
	f.quotes[q.ID] = q
	f.order = append(f.order, q.ID)
	return q
}

func (f *fakeQuotes) statuses() map[int64]repository.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int64]repository.Status)
	for _, q := range f.quotes {
		out[q.AmountCents] = q.Status
	}
	return out
}

func (f *fakeQuotes) Create(_ context.Context, q repository.Quote) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = uuid.New()
	q.Status = repository.StatusPending
	f.quotes[q.ID] = q
	f.order = append(f.order, q.ID)
	return q, nil
}

func (f *fakeQuotes) GetByID(_ context.Context, id uuid.UUID) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	return q, nil
}

func (f *fakeQuotes) ListByIntervention(_ context.Context, interventionID uuid.UUID, providerID *uuid.UUID) ([]repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Quote, 0)
	for _, id := range f.order {
		q := f.quotes[id]
		if q.InterventionID == interventionID && (providerID == nil || q.ProviderID == *providerID) {
			out = append(out, q)
		}
	}
	return out, nil
}

func (f *fakeQuotes) AcceptCompetition(_ context.Context, interventionID, quoteID, validatorID uuid.UUID, reason string, now time.Time) (repository.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	target, ok := f.quotes[quoteID]
	if !ok {
		return repository.Decision{}, apperr.NotFound("quote not found")
	}
	if target.Status != repository.StatusPending {
		return repository.Decision{}, apperr.AlreadyProcessed("quote was already processed")
	}

	target.Status = repository.StatusAccepted
	target.ValidatedAt = &now
	target.ValidatedBy = &validatorID
	f.quotes[quoteID] = target

	d := repository.Decision{Accepted: target}
	for _, id := range f.order {
		q := f.quotes[id]
		if q.InterventionID != interventionID || q.ID == quoteID || q.Status != repository.StatusPending {
			continue
		}
		q.Status = repository.StatusRejected
		q.ValidatedAt = &now
		q.ValidatedBy = &validatorID
		r := reason
		q.RejectionReason = &r
		f.quotes[id] = q
		d.Rejected = append(d.Rejected, q)
	}
	return d, nil
}

func (f *fakeQuotes) Reject(_ context.Context, quoteID, validatorID uuid.UUID, reason string, now time.Time) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quotes[quoteID]
	if q.Status != repository.StatusPending {
		return repository.Quote{}, apperr.AlreadyProcessed("quote was already processed")
	}
	q.Status = repository.StatusRejected
	q.ValidatedAt = &now
	q.ValidatedBy = &validatorID
	q.RejectionReason = &reason
	f.quotes[quoteID] = q
	return q, nil
}

type fakeWorkflow struct {
	iv           domain.Intervention
	authorizeErr error
	executeErr   error
	executed     int
	providers    map[uuid.UUID]bool
}

func (w *fakeWorkflow) Authorize(context.Context, uuid.UUID, domain.Action, domain.Actor, domain.Payload) error {
	return w.authorizeErr
}

func (w *fakeWorkflow) Execute(_ context.Context, _ uuid.UUID, action domain.Action, _ domain.Actor, _ domain.Payload) (domain.Intervention, error) {
	if w.executeErr != nil {
		return domain.Intervention{}, w.executeErr
	}
	target, _ := domain.DefaultRegistry.Target(w.iv.Status, action)
	w.iv.Status = target
	w.executed++
	return w.iv, nil
}

func (w *fakeWorkflow) GetByID(context.Context, uuid.UUID) (domain.Intervention, error) {
	return w.iv, nil
}

func (w *fakeWorkflow) IsAssigned(_ context.Context, _ uuid.UUID, userID uuid.UUID) (bool, error) {
	return w.providers[userID], nil
}

type quoteFixture struct {
	quotes   *fakeQuotes
	workflow *fakeWorkflow
	bus      *events.InMemoryBus
	svc      *Service
	manager  domain.Actor
	decided  []events.QuoteDecided
}

func newQuoteFixture(t *testing.T) *quoteFixture {
	t.Helper()
	team := uuid.New()
	f := &quoteFixture{
		quotes: newFakeQuotes(),
		workflow: &fakeWorkflow{
			iv:        domain.Intervention{ID: uuid.New(), TeamID: team, Title: "Remplacement chaudière", Status: domain.StatusQuoteRequested},
			providers: make(map[uuid.UUID]bool),
		},
		bus:     events.NewInMemoryBus(logger.Discard()),
		manager: domain.Actor{ID: uuid.New(), Role: domain.RoleManager, TeamID: team},
	}
	f.bus.Subscribe(events.QuoteDecided{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		f.decided = append(f.decided, e.(events.QuoteDecided))
		return nil
	}))
	runner := effects.NewInlineRunner(logger.Discard())
	f.svc = New(f.quotes, f.workflow, f.workflow, f.bus, runner, logger.Discard())
	return f
}

func TestResolveAcceptsOneAndRejectsCompetitors(t *testing.T) {
	f := newQuoteFixture(t)
	ivID, team := f.workflow.iv.ID, f.workflow.iv.TeamID
	q100 := f.quotes.add(ivID, team, 100)
	q150 := f.quotes.add(ivID, team, 150)
	q200 := f.quotes.add(ivID, team, 200)

	res, err := f.svc.Resolve(context.Background(), ivID, q150.ID, f.manager)

	require.NoError(t, err)
	require.Equal(t, q150.ID, res.Accepted.ID)
	require.Equal(t, repository.StatusAccepted, res.Accepted.Status)
	rejected := []uuid.UUID{res.Rejected[0].ID, res.Rejected[1].ID}
	require.ElementsMatch(t, []uuid.UUID{q100.ID, q200.ID}, rejected)
	for _, q := range res.Rejected {
		require.Equal(t, CompetitionRejectionReason, *q.RejectionReason)
		require.Equal(t, f.manager.ID, *q.ValidatedBy)
	}
	require.Equal(t, domain.StatusScheduled, res.Intervention.Status)
	require.Equal(t, map[int64]repository.Status{
		100: repository.StatusRejected,
		150: repository.StatusAccepted,
		200: repository.StatusRejected,
	}, f.quotes.statuses())

	require.Len(t, f.decided, 3)
	decisions := make([]string, 0, 3)
	for _, d := range f.decided {
		decisions = append(decisions, d.Decision)
	}
	sort.Strings(decisions)
	require.Equal(t, []string{"accepted", "rejected", "rejected"}, decisions)
}

func TestResolveRejectsAlreadyProcessedQuote(t *testing.T) {
	f := newQuoteFixture(t)
	ivID, team := f.workflow.iv.ID, f.workflow.iv.TeamID
	q := f.quotes.add(ivID, team, 100)
	_, err := f.svc.Resolve(context.Background(), ivID, q.ID, f.manager)
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), ivID, q.ID, f.manager)

	require.Equal(t, apperr.KindAlreadyProcessed, apperr.GetKind(err))
	require.Equal(t, 1, f.quotes.calls)
}

func TestResolveChecksQuoteBelongsToIntervention(t *testing.T) {
	f := newQuoteFixture(t)
	q := f.quotes.add(uuid.New(), f.workflow.iv.TeamID, 100)

	_, err := f.svc.Resolve(context.Background(), f.workflow.iv.ID, q.ID, f.manager)

	require.Equal(t, apperr.KindNotFound, apperr.GetKind(err))
}

func TestResolveTouchesNoQuoteWhenTransitionIsRefused(t *testing.T) {
	f := newQuoteFixture(t)
	ivID, team := f.workflow.iv.ID, f.workflow.iv.TeamID
	q := f.quotes.add(ivID, team, 100)
	f.quotes.add(ivID, team, 200)
	f.workflow.authorizeErr = apperr.Forbidden("role tenant may not accept_quote an intervention")

	_, err := f.svc.Resolve(context.Background(), ivID, q.ID, f.manager)

	require.Equal(t, apperr.KindForbidden, apperr.GetKind(err))
	require.Zero(t, f.quotes.calls)
	require.Equal(t, map[int64]repository.Status{100: repository.StatusPending, 200: repository.StatusPending}, f.quotes.statuses())
	require.Empty(t, f.decided)
}

func TestResolveKeepsDecisionWhenTransitionFailsAfterwards(t *testing.T) {
	f := newQuoteFixture(t)
	ivID, team := f.workflow.iv.ID, f.workflow.iv.TeamID
	q := f.quotes.add(ivID, team, 100)
	f.workflow.executeErr = apperr.IllegalTransition("intervention status changed before the update was applied")

	_, err := f.svc.Resolve(context.Background(), ivID, q.ID, f.manager)

	require.Equal(t, apperr.KindIllegalTransition, apperr.GetKind(err))
	require.Equal(t, repository.StatusAccepted, f.quotes.statuses()[100])
	require.Empty(t, f.decided)
}

func TestResolveSucceedsWhenNotificationFails(t *testing.T) {
	f := newQuoteFixture(t)
	f.bus.Subscribe(events.QuoteDecided{}.EventName(), events.HandlerFunc(func(context.Context, events.Event) error {
		return errors.New("push gateway down")
	}))
	q := f.quotes.add(f.workflow.iv.ID, f.workflow.iv.TeamID, 100)

	res, err := f.svc.Resolve(context.Background(), f.workflow.iv.ID, q.ID, f.manager)

	require.NoError(t, err)
	require.Equal(t, domain.StatusScheduled, res.Intervention.Status)
}

func TestSubmitRequiresInvitedProviderAndOpenCompetition(t *testing.T) {
	f := newQuoteFixture(t)
	provider := domain.Actor{ID: uuid.New(), Role: domain.RoleProvider, TeamID: uuid.New()}

	_, err := f.svc.Submit(context.Background(), f.workflow.iv.ID, provider, SubmitInput{AmountCents: 12000})
	require.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	f.workflow.providers[provider.ID] = true
	q, err := f.svc.Submit(context.Background(), f.workflow.iv.ID, provider, SubmitInput{AmountCents: 12000, Description: " Pièces et main d'oeuvre "})
	require.NoError(t, err)
	require.Equal(t, f.workflow.iv.TeamID, q.TeamID)
	require.Equal(t, "Pièces et main d'oeuvre", q.Description)

	f.workflow.iv.Status = domain.StatusScheduled
	_, err = f.svc.Submit(context.Background(), f.workflow.iv.ID, provider, SubmitInput{AmountCents: 12000})
	require.Equal(t, apperr.KindIllegalTransition, apperr.GetKind(err))
}

func TestListShowsProvidersOnlyTheirQuotes(t *testing.T) {
	f := newQuoteFixture(t)
	ivID, team := f.workflow.iv.ID, f.workflow.iv.TeamID
	mine := f.quotes.add(ivID, team, 100)
	f.quotes.add(ivID, team, 200)
	provider := domain.Actor{ID: mine.ProviderID, Role: domain.RoleProvider}

	all, err := f.svc.List(context.Background(), ivID, f.manager)
	require.NoError(t, err)
	require.Len(t, all, 2)

	own, err := f.svc.List(context.Background(), ivID, provider)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Equal(t, mine.ID, own[0].ID)

	_, err = f.svc.List(context.Background(), ivID, domain.Actor{ID: uuid.New(), Role: domain.RoleTenant})
	require.Equal(t, apperr.KindForbidden, apperr.GetKind(err))
}

func TestRejectSingleQuote(t *testing.T) {
	f := newQuoteFixture(t)
	q := f.quotes.add(f.workflow.iv.ID, f.workflow.iv.TeamID, 100)

	_, err := f.svc.Reject(context.Background(), q.ID, f.manager, "  ")
	require.Equal(t, apperr.KindValidation, apperr.GetKind(err))

	rejected, err := f.svc.Reject(context.Background(), q.ID, f.manager, "trop cher")
	require.NoError(t, err)
	require.Equal(t, repository.StatusRejected, rejected.Status)
	require.Len(t, f.decided, 1)
	require.Equal(t, "trop cher", f.decided[0].Reason)

	_, err = f.svc.Reject(context.Background(), q.ID, f.manager, "trop cher")
	require.Equal(t, apperr.KindAlreadyProcessed, apperr.GetKind(err))
}
