package inapp

import (
	"context"
	"testing"

	"property_portal_backend/internal/testsupport"
	"property_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCreateBatchIsAllOrNothing(t *testing.T) {
	pool := testsupport.Postgres(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	team := testsupport.Team(t, pool)
	known := testsupport.User(t, pool, team, "manager")

	_, err := repo.CreateBatch(ctx, []CreateParams{
		{UserID: known, TeamID: team, Type: "conversation", Title: "Nouveau message", Message: "Bonjour"},
		{UserID: uuid.New(), TeamID: team, Type: "conversation", Title: "Nouveau message", Message: "Bonjour"},
	})
	require.True(t, apperr.Is(err, apperr.KindValidation))

	unread, err := repo.CountUnread(ctx, known)
	require.NoError(t, err)
	require.Zero(t, unread)
}

func TestInboxLifecycle(t *testing.T) {
	pool := testsupport.Postgres(t)
	ctx := context.Background()
	repo := NewRepository(pool)

	team := testsupport.Team(t, pool)
	user := testsupport.User(t, pool, team, "tenant")

	created, err := repo.CreateBatch(ctx, []CreateParams{
		{UserID: user, TeamID: team, Type: "intervention", Title: "Intervention planifiée", IsPersonal: true, Metadata: map[string]any{"url": "https://app.example.com/interventions/1"}},
		{UserID: user, TeamID: team, Type: "document", Title: "Nouveau document"},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, PriorityNormal, created[1].Priority)
	require.Equal(t, "https://app.example.com/interventions/1", created[0].Metadata["url"])

	unread, err := repo.CountUnread(ctx, user)
	require.NoError(t, err)
	require.Equal(t, 2, unread)

	require.NoError(t, repo.MarkRead(ctx, user, created[0].ID))
	require.True(t, apperr.Is(repo.MarkRead(ctx, uuid.New(), created[1].ID), apperr.KindNotFound))

	n, err := repo.MarkAllRead(ctx, user)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, repo.Archive(ctx, user, created[1].ID))
	items, total, err := repo.List(ctx, user, ListFilter{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, items, 1)
	require.Equal(t, created[0].ID, items[0].ID)
}
