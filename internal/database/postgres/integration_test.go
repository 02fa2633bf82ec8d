package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/yellowcircle-io/shortlink-service/internal/config"
	"github.com/yellowcircle-io/shortlink-service/internal/database"
	"github.com/yellowcircle-io/shortlink-service/internal/models"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func setupPostgresContainer(t testing.TB) config.Postgres {
	t.Helper()

	ctx := context.Background()

	pgUser := "test"
	pgPassword := "test"
	pgDB := "shortlink_service"

	pgCont, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "postgres:16-alpine",
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDB,
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForExposedPort(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgCont.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate postgres container: %v", err)
		}
	})

	pgHost, err := pgCont.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	pgPort, err := pgCont.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	return config.Postgres{
		User:     pgUser,
		Password: pgPassword,
		Host:     pgHost,
		Port:     pgPort.Int(),
		DB:       pgDB,
		SSLMode:  "disable",
	}
}

func runTestMigrations(t testing.TB, cfg config.Postgres) {
	t.Helper()

	migrationPath := "file://../../../migrations"

	m, err := migrate.New(migrationPath, cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to initialize migrations: %v", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			t.Fatalf("Failed to rollback migrations: %v", err)
		}
	})
}

func setupLiveRepository(t testing.TB) (*ShortlinkRepository, *sqlx.DB) {
	t.Helper()

	cfg := setupPostgresContainer(t)
	runTestMigrations(t, cfg)

	db, err := sqlx.Connect("pgx", cfg.DSN())
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Failed to close database: %v", err)
		}
	})

	return NewShortlinkRepository(db), db
}

func TestShortlinkRepository_Live(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	ctx := context.Background()
	repo, db := setupLiveRepository(t)

	t.Run("create and resolve round trip", func(t *testing.T) {
		created, err := repo.Create(ctx, &models.Shortlink{
			ShortCode:      "promo1",
			DestinationURL: "https://example.com/landing",
			Title:          "Landing",
			Campaign:       "summer",
		})

		assert.NoError(t, err)
		assert.True(t, created.IsActive)
		assert.Zero(t, created.Clicks)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := repo.GetByShortCode(ctx, "promo1")

		assert.NoError(t, err)
		assert.Equal(t, "https://example.com/landing", got.DestinationURL)
		assert.Equal(t, "summer", got.Campaign)
	})

	t.Run("duplicate short code", func(t *testing.T) {
		_, err := repo.Create(ctx, &models.Shortlink{
			ShortCode:      "promo1",
			DestinationURL: "https://example.com/other",
		})

		assert.Error(t, err)
		assert.ErrorIs(t, err, database.ErrShortCodeExists)
	})

	t.Run("counters increment atomically", func(t *testing.T) {
		assert.NoError(t, repo.IncrementCounter(ctx, "promo1", database.CounterClicks, 1))
		assert.NoError(t, repo.IncrementCounter(ctx, "promo1", database.CounterClicks, 1))
		assert.NoError(t, repo.IncrementCounter(ctx, "promo1", database.CounterUniqueClicks, 1))

		got, err := repo.GetByShortCode(ctx, "promo1")

		assert.NoError(t, err)
		assert.Equal(t, int64(2), got.Clicks)
		assert.Equal(t, int64(1), got.UniqueClicks)
	})

	t.Run("clicks append and list newest first", func(t *testing.T) {
		for _, referrer := range []string{"direct", "https://news.ycombinator.com/"} {
			_, err := repo.AppendClick(ctx, "promo1", &models.ClickEvent{
				Referrer:  referrer,
				UserAgent: "Mozilla/5.0",
			})
			assert.NoError(t, err)
		}

		events, err := repo.ListClicks(ctx, "promo1", 10)

		assert.NoError(t, err)
		assert.Len(t, events, 2)
		assert.Equal(t, "https://news.ycombinator.com/", events[0].Referrer)
	})

	t.Run("delete removes the link and its clicks", func(t *testing.T) {
		assert.NoError(t, repo.Delete(ctx, "promo1"))

		_, err := repo.GetByShortCode(ctx, "promo1")
		assert.ErrorIs(t, err, database.ErrLinkNotFound)

		var count int
		err = db.GetContext(ctx, &count, `SELECT COUNT(*) FROM clicks WHERE short_code = $1`, "promo1")
		assert.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("delete missing link", func(t *testing.T) {
		err := repo.Delete(ctx, "doesnotexist")

		assert.ErrorIs(t, err, database.ErrLinkNotFound)
	})
}
