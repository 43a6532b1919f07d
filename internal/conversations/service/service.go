// Package service implements intervention conversations.
package service

import (
	"context"
	"unicode/utf8"

	"property_portal_backend/internal/conversations/repository"
	"property_portal_backend/internal/effects"
	"property_portal_backend/internal/events"
	"property_portal_backend/internal/interventions/domain"
	"property_portal_backend/platform/apperr"
	"property_portal_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	opPost   = "conversations.post_message"
	opAccess = "conversations.access"

	maxMessageLength = 10000
	previewLength    = 140
	defaultPageSize  = 50
	maxPageSize      = 200

	effectMessagePosted = "conversations.publish_message_posted"
)

// Repository is the persistence the service needs.
type Repository interface {
	CreateThread(ctx context.Context, t repository.Thread, participants []uuid.UUID) (repository.Thread, error)
	GetThread(ctx context.Context, id uuid.UUID) (repository.Thread, error)
	ListThreads(ctx context.Context, interventionID uuid.UUID) ([]repository.Thread, error)
	AddParticipant(ctx context.Context, threadID, userID uuid.UUID) error
	ListParticipants(ctx context.Context, threadID uuid.UUID) ([]uuid.UUID, error)
	CreateMessage(ctx context.Context, threadID, authorID uuid.UUID, content string) (repository.Message, error)
	ListMessages(ctx context.Context, threadID uuid.UUID, limit, offset int) ([]repository.Message, error)
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

// Service manages conversation threads.
type Service struct {
	repo          Repository
	interventions InterventionReader
	bus           events.Bus
	runner        EffectRunner
}

// New creates the conversations service.
func New(repo Repository, interventions InterventionReader, bus events.Bus, runner EffectRunner) *Service {
	return &Service{repo: repo, interventions: interventions, bus: bus, runner: runner}
}

// CreateThread opens a thread on an intervention. The creator always participates.
func (s *Service) CreateThread(ctx context.Context, actor domain.Actor, interventionID uuid.UUID, title string, participants []uuid.UUID) (repository.Thread, error) {
	iv, err := s.interventions.GetByID(ctx, interventionID)
	if err != nil {
		return repository.Thread{}, err
	}
	if err := s.checkIntervention(ctx, iv, actor); err != nil {
		return repository.Thread{}, err
	}

	title = sanitize.Line(title)
	if title == "" {
		title = iv.Title
	}

	members := []uuid.UUID{actor.ID}
	for _, id := range participants {
		if id != actor.ID && id != uuid.Nil {
			members = append(members, id)
		}
	}

	thread, err := s.repo.CreateThread(ctx, repository.Thread{
		InterventionID: iv.ID,
		TeamID:         iv.TeamID,
		Title:          title,
		CreatedBy:      actor.ID,
	}, members)
	if err != nil {
		return repository.Thread{}, err
	}
	return thread, nil
}

// ListThreads returns the threads of an intervention the actor can see.
func (s *Service) ListThreads(ctx context.Context, actor domain.Actor, interventionID uuid.UUID) ([]repository.Thread, error) {
	iv, err := s.interventions.GetByID(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	if err := s.checkIntervention(ctx, iv, actor); err != nil {
		return nil, err
	}
	return s.repo.ListThreads(ctx, interventionID)
}

// AddParticipant adds a user to a thread. Only team staff can invite.
func (s *Service) AddParticipant(ctx context.Context, actor domain.Actor, threadID, userID uuid.UUID) error {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return err
	}
	if !actor.Role.IsStaff() || actor.TeamID != thread.TeamID {
		return apperr.Forbidden("only team managers can add participants").WithOp(opAccess)
	}
	return s.repo.AddParticipant(ctx, threadID, userID)
}

// PostMessage stores a message and announces it for notification.
func (s *Service) PostMessage(ctx context.Context, actor domain.Actor, threadID uuid.UUID, content string) (repository.Message, error) {
	content = sanitize.Text(content)
	if content == "" {
		return repository.Message{}, apperr.Validation("message cannot be empty").WithOp(opPost)
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return repository.Message{}, apperr.Validation("message is too long").WithOp(opPost)
	}

	thread, err := s.accessibleThread(ctx, actor, threadID)
	if err != nil {
		return repository.Message{}, err
	}

	msg, err := s.repo.CreateMessage(ctx, threadID, actor.ID, content)
	if err != nil {
		return repository.Message{}, err
	}

	event := events.ConversationMessagePosted{
		BaseEvent:      events.NewBaseEvent(),
		MessageID:      msg.ID,
		ThreadID:       thread.ID,
		ThreadTitle:    thread.Title,
		InterventionID: thread.InterventionID,
		TeamID:         thread.TeamID,
		Preview:        preview(content),
		Actor:          actor,
	}
	s.runner.Go(ctx, effects.New(effectMessagePosted, func(ctx context.Context) error {
		if s.bus == nil {
			return nil
		}
		return s.bus.PublishSync(ctx, event)
	}))
	return msg, nil
}

// ListMessages returns a page of a thread's messages.
func (s *Service) ListMessages(ctx context.Context, actor domain.Actor, threadID uuid.UUID, limit, offset int) ([]repository.Message, error) {
	if _, err := s.accessibleThread(ctx, actor, threadID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMessages(ctx, threadID, limit, offset)
}

// accessibleThread lets team staff and thread participants in.
func (s *Service) accessibleThread(ctx context.Context, actor domain.Actor, threadID uuid.UUID) (repository.Thread, error) {
	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		return repository.Thread{}, err
	}
	if actor.Role.IsStaff() && actor.TeamID == thread.TeamID {
		return thread, nil
	}
	participants, err := s.repo.ListParticipants(ctx, threadID)
	if err != nil {
		return repository.Thread{}, err
	}
	for _, id := range participants {
		if id == actor.ID {
			return thread, nil
		}
	}
	return repository.Thread{}, apperr.Forbidden("you are not part of this conversation").WithOp(opAccess)
}

func (s *Service) checkIntervention(ctx context.Context, iv domain.Intervention, actor domain.Actor) error {
	if actor.Role.IsStaff() && actor.TeamID == iv.TeamID {
		return nil
	}
	assigned, err := s.interventions.IsAssigned(ctx, iv.ID, actor.ID)
	if err != nil {
		return err
	}
	if !assigned {
		return apperr.Forbidden("you are not part of this intervention").WithOp(opAccess)
	}
	return nil
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:previewLength]) + "…"
}
