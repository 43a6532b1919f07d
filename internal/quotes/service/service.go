// Package service implements quote submission and the quote competition
// resolver: accepting one quote rejects every competing pending quote and
// moves the intervention to planning.
package service

import (
	"context"
	"time"

	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/quotes/repository"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/logger"
	"property_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opSubmit  = "quotes.submit"
	opResolve = "quotes.resolve"
	opReject  = "quotes.reject"
	opList    = "quotes.list"

	// CompetitionRejectionReason is recorded on quotes that lost the competition.
	CompetitionRejectionReason = "another quote was selected"

	effectDecided   = "quotes.publish_decided"
	effectSubmitted = "quotes.publish_submitted"
)

// Repository is the quote persistence the service needs.
type Repository interface {
	Create(ctx context.Context, q repository.Quote) (repository.Quote, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Quote, error)
	ListByIntervention(ctx context.Context, interventionID uuid.UUID, providerID *uuid.UUID) ([]repository.Quote, error)
	AcceptCompetition(ctx context.Context, interventionID, quoteID, validatorID uuid.UUID, reason string, now time.Time) (repository.Decision, error)
	Reject(ctx context.Context, quoteID, validatorID uuid.UUID, reason string, now time.Time) (repository.Quote, error)
}

// Transitioner is the intervention workflow as seen from quotes.
type Transitioner interface {
	Authorize(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) error
	Execute(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) (domain.Intervention, error)
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

// Resolution is the result of accepting a quote.
type Resolution struct {
	Accepted     repository.Quote    `json:"accepted"`
	Rejected     []repository.Quote  `json:"rejected"`
	Intervention domain.Intervention `json:"intervention"`
}

// SubmitInput is a provider's quote.
type SubmitInput struct {
	AmountCents int64
	Description string
}

// Service manages quotes.
type Service struct {
	repo          Repository
	transitioner  Transitioner
	interventions InterventionReader
	runner        EffectRunner
	bus           events.Bus
	log           *logger.Logger
	now           func() time.Time
}

// New creates the quotes service.
func New(repo Repository, transitioner Transitioner, interventions InterventionReader, bus events.Bus, runner EffectRunner, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		transitioner:  transitioner,
		interventions: interventions,
		runner:        runner,
		bus:           bus,
		log:           log,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Resolve accepts quoteID for interventionID, rejects all competing pending
// quotes and moves the intervention to planning.
//
// The transition is checked before any quote is touched. If it fails after
// the quotes were decided, the error is returned and the decision stands.
func (s *Service) Resolve(ctx context.Context, interventionID, quoteID uuid.UUID, actor domain.Actor) (*Resolution, error) {
	quote, err := s.repo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.InterventionID != interventionID {
		return nil, apperr.NotFound("quote not found for this intervention").WithOp(opResolve)
	}
	if quote.Status != repository.StatusPending {
		return nil, apperr.AlreadyProcessed("quote was already processed").WithOp(opResolve)
	}

	payload := domain.Payload{QuoteID: &quoteID}
	if err := s.transitioner.Authorize(ctx, interventionID, domain.ActionAcceptQuote, actor, payload); err != nil {
		return nil, err
	}

	decision, err := s.repo.AcceptCompetition(ctx, interventionID, quoteID, actor.ID, CompetitionRejectionReason, s.now())
	if err != nil {
		return nil, err
	}

	iv, err := s.transitioner.Execute(ctx, interventionID, domain.ActionAcceptQuote, actor, payload)
	if err != nil {
		if s.log != nil {
			s.log.Error("quote accepted but intervention transition failed",
				"interventionId", interventionID, "quoteId", quoteID, "error", err)
		}
		return nil, err
	}

	s.runner.Go(ctx, s.decidedEffects(iv, decision, actor)...)

	return &Resolution{Accepted: decision.Accepted, Rejected: decision.Rejected, Intervention: iv}, nil
}

// AcceptQuote lets the intervention workflow route accept_quote here.
func (s *Service) AcceptQuote(ctx context.Context, interventionID, quoteID uuid.UUID, actor domain.Actor) (domain.Intervention, error) {
	res, err := s.Resolve(ctx, interventionID, quoteID, actor)
	if err != nil {
		return domain.Intervention{}, err
	}
	return res.Intervention, nil
}

// Submit records a provider's quote on an intervention awaiting quotes.
func (s *Service) Submit(ctx context.Context, interventionID uuid.UUID, actor domain.Actor, in SubmitInput) (repository.Quote, error) {
	if actor.Role != domain.RoleProvider {
		return repository.Quote{}, apperr.Forbidden("only providers can submit quotes").WithOp(opSubmit)
	}
	if in.AmountCents <= 0 {
		return repository.Quote{}, apperr.Validation("amount must be positive").WithOp(opSubmit)
	}

	iv, err := s.interventions.GetByID(ctx, interventionID)
	if err != nil {
		return repository.Quote{}, err
	}
	assigned, err := s.interventions.IsAssigned(ctx, interventionID, actor.ID)
	if err != nil {
		return repository.Quote{}, err
	}
	if !assigned {
		return repository.Quote{}, apperr.Forbidden("you are not invited to quote on this intervention").WithOp(opSubmit)
	}
	if iv.Status != domain.StatusQuoteRequested {
		return repository.Quote{}, apperr.IllegalTransition("intervention is not awaiting quotes").WithOp(opSubmit)
	}

	quote, err := s.repo.Create(ctx, repository.Quote{
		InterventionID: interventionID,
		ProviderID:     actor.ID,
		TeamID:         iv.TeamID,
		AmountCents:    in.AmountCents,
		Description:    sanitize.Text(in.Description),
	})
	if err != nil {
		return repository.Quote{}, err
	}

	s.runner.Go(ctx, s.publish(effectSubmitted, events.QuoteSubmitted{
		BaseEvent:      events.NewBaseEvent(),
		QuoteID:        quote.ID,
		InterventionID: interventionID,
		TeamID:         iv.TeamID,
		AmountCents:    quote.AmountCents,
		Actor:          actor,
	}))
	return quote, nil
}

// List returns the quotes of an intervention. Providers only see their own.
func (s *Service) List(ctx context.Context, interventionID uuid.UUID, actor domain.Actor) ([]repository.Quote, error) {
	iv, err := s.interventions.GetByID(ctx, interventionID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.Role.IsStaff() && actor.TeamID == iv.TeamID:
		return s.repo.ListByIntervention(ctx, interventionID, nil)
	case actor.Role == domain.RoleProvider:
		id := actor.ID
		return s.repo.ListByIntervention(ctx, interventionID, &id)
	default:
		return nil, apperr.Forbidden("you cannot see the quotes of this intervention").WithOp(opList)
	}
}

// Reject declines a single pending quote without settling the competition.
func (s *Service) Reject(ctx context.Context, quoteID uuid.UUID, actor domain.Actor, reason string) (repository.Quote, error) {
	if !actor.Role.IsStaff() {
		return repository.Quote{}, apperr.Forbidden("only managers can reject quotes").WithOp(opReject)
	}
	reason = sanitize.Text(reason)
	if reason == "" {
		return repository.Quote{}, apperr.Validation("a rejection reason is required").WithOp(opReject)
	}

	quote, err := s.repo.GetByID(ctx, quoteID)
	if err != nil {
		return repository.Quote{}, err
	}
	if quote.TeamID != actor.TeamID {
		return repository.Quote{}, apperr.Forbidden("quote belongs to another team").WithOp(opReject)
	}
	if quote.Status != repository.StatusPending {
		return repository.Quote{}, apperr.AlreadyProcessed("quote was already processed").WithOp(opReject)
	}

	rejected, err := s.repo.Reject(ctx, quoteID, actor.ID, reason, s.now())
	if err != nil {
		return repository.Quote{}, err
	}

	title := ""
	if iv, err := s.interventions.GetByID(ctx, rejected.InterventionID); err == nil {
		title = iv.Title
	}
	s.runner.Go(ctx, s.publish(effectDecided, decidedEvent(rejected, title, events.QuoteDecisionRejected, actor)))
	return rejected, nil
}

func (s *Service) decidedEffects(iv domain.Intervention, d repository.Decision, actor domain.Actor) []effects.Effect {
	out := make([]effects.Effect, 0, len(d.Rejected)+1)
	out = append(out, s.publish(effectDecided, decidedEvent(d.Accepted, iv.Title, events.QuoteDecisionAccepted, actor)))
	for _, q := range d.Rejected {
		out = append(out, s.publish(effectDecided, decidedEvent(q, iv.Title, events.QuoteDecisionRejected, actor)))
	}
	return out
}

func (s *Service) publish(name string, event events.Event) effects.Effect {
	return effects.New(name, func(ctx context.Context) error {
		if s.bus == nil {
			return nil
		}
		return s.bus.PublishSync(ctx, event)
	})
}

func decidedEvent(q repository.Quote, title, decision string, actor domain.Actor) events.QuoteDecided {
	reason := ""
	if q.RejectionReason != nil {
		reason = *q.RejectionReason
	}
	return events.QuoteDecided{
		BaseEvent:         events.NewBaseEvent(),
		QuoteID:           q.ID,
		InterventionID:    q.InterventionID,
		InterventionTitle: title,
		TeamID:            q.TeamID,
		ProviderID:        q.ProviderID,
		Decision:          decision,
		Reason:            reason,
		AmountCents:       q.AmountCents,
		Actor:             actor,
	}
}
