// Package testsupport starts throwaway infrastructure for integration tests.
package testsupport

import (
	"context"
	"testing"
	"time"

	"property_portal_backend/migrations"
	"property_portal_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type databaseURL string

func (u databaseURL) GetDatabaseURL() string { return string(u) }

// Postgres starts a migrated PostgreSQL container and returns a pool on it.
// The test is skipped in short mode.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, db.RunMigrations(ctx, databaseURL(connString), migrations.FS))

	pool, err := db.NewPool(ctx, databaseURL(connString))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// Team inserts a team and returns its id.
func Team(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`INSERT INTO teams (name) VALUES ($1) RETURNING id`, "team-"+uuid.NewString()[:8]).Scan(&id)
	require.NoError(t, err)
	return id
}

// User inserts a user of role in team and returns its id.
func User(t *testing.T, pool *pgxpool.Pool, teamID uuid.UUID, role string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (team_id, role, email, first_name, last_name, auth_user_id)
		VALUES ($1, $2, $3, $4, $5, gen_random_uuid())
		RETURNING id`,
		teamID, role, role+"-"+uuid.NewString()[:8]+"@example.test", "Test", role,
	).Scan(&id)
	require.NoError(t, err)
	return id
}

// Intervention inserts an intervention in status and returns its id.
func Intervention(t *testing.T, pool *pgxpool.Pool, teamID, createdBy uuid.UUID, status string) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(), `
		INSERT INTO interventions (team_id, created_by, title, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		teamID, createdBy, "Intervention de test", status,
	).Scan(&id)
	require.NoError(t, err)
	return id
}
