//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/database"
)

const testDim = 4

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.DatabaseConfig{
		URL:          fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port()),
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(ctx, cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}
	return pool, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	if err := pool.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	versions, err := pool.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_identities.sql" {
		t.Errorf("unexpected applied migrations: %v", versions)
	}
}

func TestIdentityRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewIdentityRepository(pool, testDim)

	ana := &database.Identity{
		Name:        "Ana",
		Lastname:    "García",
		DNI:         "12.345.678-a",
		Description: "Ingeniera",
		Embedding:   []float32{0.1, 0.2, 0.3, 0.4},
	}
	bruno := &database.Identity{Name: "Bruno", Lastname: "Díaz"}

	t.Run("Create", func(t *testing.T) {
		if err := repo.Create(ctx, ana); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if ana.ID == "" {
			t.Fatal("expected ID to be assigned")
		}
		if ana.DNI != "12345678A" {
			t.Errorf("expected normalized DNI, got %q", ana.DNI)
		}
		if ana.CreatedAt.IsZero() {
			t.Error("expected created_at to be set")
		}
		if err := repo.Create(ctx, bruno); err != nil {
			t.Fatalf("Create without embedding failed: %v", err)
		}
	})

	t.Run("CreateDuplicateDNI", func(t *testing.T) {
		err := repo.Create(ctx, &database.Identity{Name: "Otra", DNI: "12345678A"})
		if !errors.Is(err, database.ErrDuplicateDNI) {
			t.Errorf("expected ErrDuplicateDNI, got %v", err)
		}
	})

	t.Run("CreateWrongDimension", func(t *testing.T) {
		err := repo.Create(ctx, &database.Identity{Name: "X", Embedding: []float32{1, 2}})
		if !errors.Is(err, database.ErrDimensionMismatch) {
			t.Errorf("expected ErrDimensionMismatch, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		got, err := repo.Get(ctx, ana.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Name != "Ana" || got.Lastname != "García" || got.Description != "Ingeniera" {
			t.Errorf("unexpected identity: %+v", got)
		}
		if len(got.Embedding) != testDim || got.Embedding[3] != 0.4 {
			t.Errorf("unexpected embedding: %v", got.Embedding)
		}

		got, err = repo.Get(ctx, bruno.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Enrolled() {
			t.Error("expected identity without embedding")
		}
		if got.DNI != "" {
			t.Errorf("expected empty DNI, got %q", got.DNI)
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		for _, id := range []string{"00000000-0000-0000-0000-000000000000", "not-a-uuid"} {
			if _, err := repo.Get(ctx, id); !errors.Is(err, database.ErrNotFound) {
				t.Errorf("Get(%q): expected ErrNotFound, got %v", id, err)
			}
		}
	})

	t.Run("GetByDNI", func(t *testing.T) {
		got, err := repo.GetByDNI(ctx, "12345678-A")
		if err != nil {
			t.Fatalf("GetByDNI failed: %v", err)
		}
		if got.ID != ana.ID {
			t.Errorf("expected %s, got %s", ana.ID, got.ID)
		}
	})

	t.Run("ListScanOrder", func(t *testing.T) {
		identities, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(identities) != 2 {
			t.Fatalf("expected 2 identities, got %d", len(identities))
		}
		if identities[0].ID != ana.ID || identities[1].ID != bruno.ID {
			t.Error("expected creation order")
		}
	})

	t.Run("Counts", func(t *testing.T) {
		total, err := repo.Count(ctx)
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		enrolled, err := repo.CountEnrolled(ctx)
		if err != nil {
			t.Fatalf("CountEnrolled failed: %v", err)
		}
		if total != 2 || enrolled != 1 {
			t.Errorf("expected 2 total / 1 enrolled, got %d / %d", total, enrolled)
		}
	})

	t.Run("UpdateEmbedding", func(t *testing.T) {
		if err := repo.UpdateEmbedding(ctx, bruno.ID, []float32{1, 1, 1, 1}); err != nil {
			t.Fatalf("UpdateEmbedding failed: %v", err)
		}
		got, err := repo.Get(ctx, bruno.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !got.Enrolled() {
			t.Error("expected identity to be enrolled")
		}

		err = repo.UpdateEmbedding(ctx, "00000000-0000-0000-0000-000000000000", []float32{1, 1, 1, 1})
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateProfile", func(t *testing.T) {
		bruno.Description = "Periodista"
		bruno.DNI = "87654321b"
		if err := repo.UpdateProfile(ctx, bruno); err != nil {
			t.Fatalf("UpdateProfile failed: %v", err)
		}
		got, err := repo.GetByDNI(ctx, "87654321B")
		if err != nil {
			t.Fatalf("GetByDNI failed: %v", err)
		}
		if got.Description != "Periodista" {
			t.Errorf("expected updated description, got %q", got.Description)
		}
		if !got.Enrolled() {
			t.Error("profile update must not touch the embedding")
		}
	})
}
