package service

import (
	"context"

	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/interventions/repository"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/logger"
	"property_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opCreate      = "interventions.create"
	opAssign      = "interventions.assign"
	opTransition  = "interventions.transition"
	opGet         = "interventions.get"
	defaultLimit  = 20
	maxLimit      = 100
	effectCreated = "interventions.publish_created"
	effectAssign  = "interventions.publish_assigned"
)

// Store is the full persistence surface of the service.
type Store interface {
	Repository
	Create(ctx context.Context, p repository.CreateParams) (domain.Intervention, error)
	List(ctx context.Context, p repository.ListParams) ([]domain.Intervention, int, error)
	ListAssignments(ctx context.Context, interventionID uuid.UUID) ([]domain.Assignment, error)
	Assign(ctx context.Context, a domain.Assignment) error
	ListReports(ctx context.Context, interventionID uuid.UUID) ([]repository.Report, error)
}

// EffectRunner attempts the effects of a committed operation.
type EffectRunner interface {
	Go(ctx context.Context, effects ...effects.Effect)
}

// QuoteResolver settles the quote competition of an intervention. Accepting a
// quote always goes through it so that competing quotes are rejected together.
type QuoteResolver interface {
	AcceptQuote(ctx context.Context, interventionID, quoteID uuid.UUID, actor domain.Actor) (domain.Intervention, error)
}

// Detail is an intervention with its assignments and the actions the
// requesting actor can take next.
type Detail struct {
	Intervention     domain.Intervention `json:"intervention"`
	Assignments      []domain.Assignment `json:"assignments"`
	AvailableActions []domain.Action     `json:"availableActions"`
}

// ListResult is one page of interventions.
type ListResult struct {
	Items  []domain.Intervention `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// CreateInput describes a new intervention.
type CreateInput struct {
	LotID       *uuid.UUID
	TenantID    *uuid.UUID
	Title       string
	Description string
	Category    string
	Urgency     string
	Assignments []domain.Assignment
}

// Service exposes the intervention workflow.
type Service struct {
	store    Store
	executor *Executor
	runner   EffectRunner
	bus      events.Bus
	resolver QuoteResolver
	log      *logger.Logger
}

// New creates the intervention service.
func New(store Store, bus events.Bus, runner EffectRunner, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		executor: NewExecutor(store, bus, log),
		runner:   runner,
		bus:      bus,
		log:      log,
	}
}

// SetQuoteResolver injects the quote resolver after construction to break the
// dependency cycle between interventions and quotes.
func (s *Service) SetQuoteResolver(r QuoteResolver) {
	s.resolver = r
}

// Executor exposes the raw transition executor to other modules.
func (s *Service) Executor() *Executor {
	return s.executor
}

// Execute performs a transition and hands its effects to the runner. It is
// the path used by the quote resolver and never delegates.
func (s *Service) Execute(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) (domain.Intervention, error) {
	result, err := s.executor.Execute(ctx, id, action, actor, payload)
	if err != nil {
		return domain.Intervention{}, err
	}
	s.runner.Go(ctx, result.Effects...)
	return result.Intervention, nil
}

// Authorize checks whether the transition would be accepted without performing it.
func (s *Service) Authorize(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) error {
	_, _, err := s.executor.Authorize(ctx, id, action, actor, payload)
	return err
}

// Transition is the caller-facing entry point for status changes.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) (domain.Intervention, error) {
	if action == domain.ActionAcceptQuote {
		if s.resolver == nil {
			return domain.Intervention{}, apperr.Internal("quote resolver not configured").WithOp(opTransition)
		}
		if _, _, err := s.executor.Authorize(ctx, id, action, actor, payload); err != nil {
			return domain.Intervention{}, err
		}
		return s.resolver.AcceptQuote(ctx, id, *payload.QuoteID, actor)
	}
	payload.Reason = sanitize.Text(payload.Reason)
	payload.Comment = sanitize.Text(payload.Comment)
	return s.Execute(ctx, id, action, actor, payload)
}

// Create opens a new intervention in status demande.
func (s *Service) Create(ctx context.Context, actor domain.Actor, in CreateInput) (domain.Intervention, error) {
	if !actor.Role.IsStaff() {
		return domain.Intervention{}, apperr.Forbidden("only managers can create interventions").WithOp(opCreate)
	}
	for _, a := range in.Assignments {
		if !a.Role.Assignable() {
			return domain.Intervention{}, apperr.Validation("invalid assignment role: " + string(a.Role)).WithOp(opCreate)
		}
	}

	title := sanitize.Line(in.Title)
	if title == "" {
		return domain.Intervention{}, apperr.Validation("a title is required").WithOp(opCreate)
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = domain.UrgencyNormal
	}

	iv, err := s.store.Create(ctx, repository.CreateParams{
		TeamID:      actor.TeamID,
		LotID:       in.LotID,
		TenantID:    in.TenantID,
		CreatedBy:   actor.ID,
		Title:       title,
		Description: sanitize.Text(in.Description),
		Category:    in.Category,
		Urgency:     urgency,
		Assignments: in.Assignments,
	})
	if err != nil {
		return domain.Intervention{}, err
	}

	list := []effects.Effect{s.publish(effectCreated, events.InterventionCreated{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		TeamID:         iv.TeamID,
		Title:          iv.Title,
		Urgency:        iv.Urgency,
		Actor:          actor,
	})}
	for _, a := range in.Assignments {
		list = append(list, s.publish(effectAssign, assignedEvent(iv, a, actor)))
	}
	s.runner.Go(ctx, list...)

	return iv, nil
}

// Get returns an intervention the actor is allowed to see.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor domain.Actor) (Detail, error) {
	iv, err := s.visible(ctx, id, actor)
	if err != nil {
		return Detail{}, err
	}
	assignments, err := s.store.ListAssignments(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Intervention:     iv,
		Assignments:      assignments,
		AvailableActions: s.executor.registry.AvailableActions(iv.Status, actor.Role),
	}, nil
}

// List returns a page of interventions. Staff see their team; providers and
// tenants see what they are bound to.
func (s *Service) List(ctx context.Context, actor domain.Actor, status *domain.Status, limit, offset int) (ListResult, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	params := repository.ListParams{TeamID: actor.TeamID, Status: status, Limit: limit, Offset: offset}
	if !actor.Role.IsStaff() {
		id := actor.ID
		params.AssignedTo = &id
	}

	items, total, err := s.store.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Assign binds a user to an intervention.
func (s *Service) Assign(ctx context.Context, actor domain.Actor, a domain.Assignment) error {
	if !actor.Role.IsStaff() {
		return apperr.Forbidden("only managers can assign users").WithOp(opAssign)
	}
	if !a.Role.Assignable() {
		return apperr.Validation("invalid assignment role: " + string(a.Role)).WithOp(opAssign)
	}

	iv, err := s.store.GetByID(ctx, a.InterventionID)
	if err != nil {
		return err
	}
	if iv.TeamID != actor.TeamID {
		return apperr.Forbidden("intervention belongs to another team").WithOp(opAssign)
	}
	if domain.IsTerminal(iv.Status) {
		return apperr.Conflict("intervention is closed").WithOp(opAssign)
	}

	if err := s.store.Assign(ctx, a); err != nil {
		return err
	}
	s.runner.Go(ctx, s.publish(effectAssign, assignedEvent(iv, a, actor)))
	return nil
}

// ListReports returns the completion, validation and contestation history.
func (s *Service) ListReports(ctx context.Context, id uuid.UUID, actor domain.Actor) ([]repository.Report, error) {
	if _, err := s.visible(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.store.ListReports(ctx, id)
}

func (s *Service) visible(ctx context.Context, id uuid.UUID, actor domain.Actor) (domain.Intervention, error) {
	iv, err := s.store.GetByID(ctx, id)
	if err != nil {
		return domain.Intervention{}, err
	}
	if err := s.executor.checkScope(ctx, iv, actor); err != nil {
		return domain.Intervention{}, apperr.NotFound("intervention not found").WithOp(opGet)
	}
	return iv, nil
}

func (s *Service) publish(name string, event events.Event) effects.Effect {
	return effects.New(name, func(ctx context.Context) error {
		if s.bus == nil {
			return nil
		}
		return s.bus.PublishSync(ctx, event)
	})
}

func assignedEvent(iv domain.Intervention, a domain.Assignment, actor domain.Actor) events.InterventionAssigned {
	return events.InterventionAssigned{
		BaseEvent:      events.NewBaseEvent(),
		InterventionID: iv.ID,
		TeamID:         iv.TeamID,
		Title:          iv.Title,
		UserID:         a.UserID,
		Role:           a.Role,
		IsPrimary:      a.IsPrimary,
		Actor:          actor,
	}
}
