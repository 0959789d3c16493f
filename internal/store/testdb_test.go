package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"lusterd/internal/database"
)

// newTestDB spins up a disposable Postgres container, applies every
// migration with goose, and returns a connected *database.DB. These tests
// exercise real FOR UPDATE SKIP LOCKED and constraint semantics that a mock
// can't reproduce, so they're opt-in: set LUSTERD_TEST_DB=true to run them.
func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("LUSTERD_TEST_DB") != "true" {
		t.Skip("Docker-backed store tests disabled (set LUSTERD_TEST_DB=true to enable)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "lusterd",
			"POSTGRES_PASSWORD": "lusterd",
			"POSTGRES_DB":       "lusterd_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://lusterd:lusterd@%s:%s/lusterd_test?sslmode=disable", host, port.Port())

	raw, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open migration connection: %v", err)
	}
	defer raw.Close()
	if err := raw.PingContext(ctx); err != nil {
		t.Fatalf("ping migration connection: %v", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("goose set dialect: %v", err)
	}
	if err := goose.Up(raw, "../../migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	db, err := database.New(dsn)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}
