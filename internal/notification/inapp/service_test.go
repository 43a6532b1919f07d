package inapp

import (
	"context"
	"errors"
	"testing"

	"property_portal_backend/internal/notification/sse"
	"property_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	created    []CreateParams
	createErr  error
	lastFilter ListFilter
}

func (f *fakeStore) CreateBatch(_ context.Context, params []CreateParams) ([]Notification, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, params...)
	out := make([]Notification, 0, len(params))
	for _, p := range params {
		out = append(out, Notification{ID: uuid.New(), UserID: p.UserID, TeamID: p.TeamID, Title: p.Title, IsPersonal: p.IsPersonal})
	}
	return out, nil
}

func (f *fakeStore) List(_ context.Context, _ uuid.UUID, lf ListFilter) ([]Notification, int, error) {
	f.lastFilter = lf
	return []Notification{}, 0, nil
}

func (f *fakeStore) CountUnread(context.Context, uuid.UUID) (int, error)   { return 3, nil }
func (f *fakeStore) MarkRead(context.Context, uuid.UUID, uuid.UUID) error  { return nil }
func (f *fakeStore) MarkAllRead(context.Context, uuid.UUID) (int64, error) { return 0, nil }
func (f *fakeStore) Archive(context.Context, uuid.UUID, uuid.UUID) error   { return nil }

type recordingPublisher struct {
	events map[uuid.UUID][]sse.Event
}

func (p *recordingPublisher) Publish(userID uuid.UUID, e sse.Event) {
	p.events[userID] = append(p.events[userID], e)
}

func TestSendBatchStreamsEachRowToItsOwner(t *testing.T) {
	store := &fakeStore{}
	pub := &recordingPublisher{events: map[uuid.UUID][]sse.Event{}}
	svc := NewService(store, logger.Discard())
	svc.SetSSE(pub)

	a, b := uuid.New(), uuid.New()
	created, err := svc.SendBatch(context.Background(), []CreateParams{
		{UserID: a, Title: "Travaux terminés", IsPersonal: true},
		{UserID: b, Title: "Travaux terminés"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	require.Len(t, pub.events[a], 1)
	require.Len(t, pub.events[b], 1)
	require.Equal(t, sse.EventNotification, pub.events[a][0].Type)
	require.Equal(t, created[0], pub.events[a][0].Data)
}

func TestSendBatchFailurePublishesNothing(t *testing.T) {
	store := &fakeStore{createErr: errors.New("db down")}
	pub := &recordingPublisher{events: map[uuid.UUID][]sse.Event{}}
	svc := NewService(store, logger.Discard())
	svc.SetSSE(pub)

	_, err := svc.SendBatch(context.Background(), []CreateParams{{UserID: uuid.New()}})
	require.Error(t, err)
	require.Empty(t, pub.events)
}

func TestListClampsPaging(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, logger.Discard())

	page, err := svc.List(context.Background(), uuid.New(), ListFilter{Limit: 1000, Offset: -4})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, page.Limit)
	require.Equal(t, 0, page.Offset)
	require.Equal(t, 3, page.Unread)

	_, err = svc.List(context.Background(), uuid.New(), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize, store.lastFilter.Limit)
}
