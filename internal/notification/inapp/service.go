// Package inapp stores notification rows and streams them to connected users.
package inapp

import (
	"context"

	"property_portal_backend/internal/notification/sse"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Store is the persistence the service needs.
type Store interface {
	CreateBatch(ctx context.Context, params []CreateParams) ([]Notification, error)
	List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]Notification, int, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, userID, notificationID uuid.UUID) error
}

// Publisher pushes live events to a connected user.
type Publisher interface {
	Publish(userID uuid.UUID, event sse.Event)
}

type Service struct {
	repo Store
	sse  Publisher
	log  *logger.Logger
}

func NewService(repo Store, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

// SetSSE injects the live stream publisher.
func (s *Service) SetSSE(p Publisher) {
	s.sse = p
}

// SendBatch persists one row per recipient and streams each to its owner
// if they are online.
func (s *Service) SendBatch(ctx context.Context, params []CreateParams) ([]Notification, error) {
	created, err := s.repo.CreateBatch(ctx, params)
	if err != nil {
		s.log.Error("failed to persist in-app notifications", "error", err, "recipients", len(params))
		return nil, err
	}

	if s.sse != nil {
		for _, n := range created {
			s.sse.Publish(n.UserID, sse.Event{
				Type: sse.EventNotification,
				Data: n,
			})
		}
	}
	return created, nil
}

// Page is one page of a user's inbox.
type Page struct {
	Items  []Notification `json:"items"`
	Total  int            `json:"total"`
	Unread int            `json:"unread"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f ListFilter) (Page, error) {
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	items, total, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return Page{}, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Unread: unread, Limit: f.Limit, Offset: f.Offset}, nil
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *Service) Archive(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Archive(ctx, userID, id)
}
