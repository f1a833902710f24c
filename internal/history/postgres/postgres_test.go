package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/recipebook/internal/history"
)

func TestPostgresSink_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("recipebook"),
		postgres.WithUsername("cook"),
		postgres.WithPassword("cookpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sink, err := New(connStr)
	require.NoError(t, err, "create PostgreSQL sink")
	defer func() { _ = sink.Close() }()

	created := history.Event{
		Type:       history.EventRecipeCreated,
		OccurredAt: time.Now().UTC(),
		Subject:    "Roast Potatoes",
		Detail:     "Roast-Potatoes",
	}
	require.NoError(t, sink.Send(ctx, created))
	require.NoError(t, sink.Send(ctx, history.Event{
		Type:       history.EventEndTimeSet,
		OccurredAt: time.Now().UTC(),
		Subject:    "18:00",
	}))

	n, err := sink.Count(ctx, history.EventRecipeCreated, "Roast Potatoes")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = sink.Count(ctx, history.EventEndTimeSet, "18:00")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, sink.Send(ctx, history.Event{
		Type:       history.EventEndTimeSet,
		OccurredAt: time.Now().Add(-48 * time.Hour).UTC(),
		Subject:    "16:00",
	}))
	pruned, err := sink.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), pruned)
	n, err = sink.Count(ctx, history.EventEndTimeSet, "16:00")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	// schema creation is idempotent
	again, err := New(connStr)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestPostgresSink_EmptyDSN(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}
