// Package service implements the intervention workflow: the transition
// executor and the operations built around it.
package service

import (
	"context"
	"fmt"
	"time"

	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/internal/interventions/repository"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	opAuthorize = "interventions.authorize"

	// EffectReport and EffectPublishStatus name the effects a transition returns.
	EffectReport        = "interventions.create_report"
	EffectPublishStatus = "interventions.publish_status_changed"
)

// Repository is the persistence the executor needs.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Intervention, error)
	IsAssigned(ctx context.Context, interventionID, userID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, from domain.Status, next domain.Intervention) (domain.Intervention, error)
	CreateReport(ctx context.Context, interventionID, authorID uuid.UUID, kind domain.ReportKind, content string) (repository.Report, error)
}

// TransitionResult is a persisted transition plus the side effects still to attempt.
type TransitionResult struct {
	Intervention domain.Intervention
	From         domain.Status
	Effects      []effects.Effect
}

// Executor is the only code path that changes an intervention's status.
type Executor struct {
	repo     Repository
	registry *domain.Registry
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// NewExecutor creates an executor over the default registry.
func NewExecutor(repo Repository, bus events.Bus, log *logger.Logger) *Executor {
	return &Executor{
		repo:     repo,
		registry: domain.DefaultRegistry,
		bus:      bus,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authorize runs every precondition of Execute without writing anything and
// returns the current intervention and the status the action would reach.
func (e *Executor) Authorize(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) (domain.Intervention, domain.Status, error) {
	iv, err := e.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Intervention{}, "", err
	}

	if !e.registry.ActionAllowedFor(action, actor.Role) {
		return domain.Intervention{}, "", apperr.Forbidden(fmt.Sprintf("role %s may not %s an intervention", actor.Role, action)).WithOp(opAuthorize)
	}

	if err := e.checkScope(ctx, iv, actor); err != nil {
		return domain.Intervention{}, "", err
	}

	target, ok := e.registry.Target(iv.Status, action)
	if !ok || !e.registry.CanTransition(iv.Status, action, actor.Role) {
		return domain.Intervention{}, "", apperr.IllegalTransition(fmt.Sprintf("cannot %s an intervention in status %s", action, iv.Status)).WithOp(opAuthorize)
	}

	if reason := domain.ValidatePayload(action, payload); reason != "" {
		return domain.Intervention{}, "", apperr.Validation(reason).WithOp(opAuthorize)
	}

	return iv, target, nil
}

// checkScope enforces that staff act within their own team and that
// providers and tenants act only on interventions they are bound to.
func (e *Executor) checkScope(ctx context.Context, iv domain.Intervention, actor domain.Actor) error {
	if actor.Role.IsStaff() && actor.TeamID == iv.TeamID {
		return nil
	}
	assigned, err := e.repo.IsAssigned(ctx, iv.ID, actor.ID)
	if err != nil {
		return err
	}
	if !assigned {
		return apperr.Forbidden("you are not part of this intervention").WithOp(opAuthorize)
	}
	return nil
}

// Execute validates and persists a transition. The returned effects have not
// run yet; the caller hands them to an effect runner.
func (e *Executor) Execute(ctx context.Context, id uuid.UUID, action domain.Action, actor domain.Actor, payload domain.Payload) (*TransitionResult, error) {
	current, target, err := e.Authorize(ctx, id, action, actor, payload)
	if err != nil {
		return nil, err
	}

	next := domain.Apply(current, action, target, payload, e.now())
	updated, err := e.repo.UpdateStatus(ctx, current.Status, next)
	if err != nil {
		return nil, err
	}

	if e.log != nil {
		e.log.Transition(updated.ID.String(), string(action), string(current.Status), string(updated.Status), actor.ID.String())
	}

	return &TransitionResult{
		Intervention: updated,
		From:         current.Status,
		Effects:      e.effectsFor(updated, current.Status, action, actor, payload),
	}, nil
}

func (e *Executor) effectsFor(iv domain.Intervention, from domain.Status, action domain.Action, actor domain.Actor, payload domain.Payload) []effects.Effect {
	out := make([]effects.Effect, 0, 2)

	if kind, ok := domain.ReportFor(action); ok {
		content := domain.ReportContent(action, payload)
		out = append(out, effects.New(EffectReport, func(ctx context.Context) error {
			_, err := e.repo.CreateReport(ctx, iv.ID, actor.ID, kind, content)
			return err
		}))
	}

	if e.bus != nil {
		event := events.InterventionStatusChanged{
			BaseEvent:      events.NewBaseEvent(),
			InterventionID: iv.ID,
			TeamID:         iv.TeamID,
			Title:          iv.Title,
			Action:         action,
			From:           from,
			To:             iv.Status,
			Reason:         firstNonEmpty(payload.Reason, payload.Comment),
			IsContested:    iv.IsContested,
			Actor:          actor,
		}
		out = append(out, effects.New(EffectPublishStatus, func(ctx context.Context) error {
			return e.bus.PublishSync(ctx, event)
		}))
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
