package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/faceid/internal/database"
)

const uniqueViolation = "23505"

const identityColumns = `id, name, lastname, dni, description, embedding, created_at, updated_at`

// IdentityRepository provides PostgreSQL-backed identity storage.
type IdentityRepository struct {
	pool *Pool
	dim  int
}

// NewIdentityRepository creates a repository that only accepts embeddings of length dim.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{pool: pool, dim: dim}
}

// Close closes the underlying pool.
func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}

// List returns all identities in scan order.
func (r *IdentityRepository) List(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, *identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// Get retrieves an identity by ID.
func (r *IdentityRepository) Get(ctx context.Context, id string) (*database.Identity, error) {
	if uuid.Validate(id) != nil {
		return nil, database.ErrNotFound
	}
	row := r.pool.queryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	return scanIdentity(row)
}

// GetByDNI retrieves an identity by DNI, normalizing the input first.
func (r *IdentityRepository) GetByDNI(ctx context.Context, dni string) (*database.Identity, error) {
	dni = database.NormalizeDNI(dni)
	if dni == "" {
		return nil, database.ErrNotFound
	}
	row := r.pool.queryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE dni = $1`, dni)
	return scanIdentity(row)
}

// Count returns the total number of identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.queryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// CountEnrolled returns the number of identities with an embedding.
func (r *IdentityRepository) CountEnrolled(ctx context.Context) (int, error) {
	var count int
	err := r.pool.queryRow(ctx, "SELECT COUNT(*) FROM identities WHERE embedding IS NOT NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrolled identities: %w", err)
	}
	return count, nil
}

// Create inserts a new identity. ID and timestamps are assigned here.
func (r *IdentityRepository) Create(ctx context.Context, identity *database.Identity) error {
	if err := database.ValidateEmbedding(identity.Embedding, r.dim); err != nil {
		return err
	}

	identity.ID = uuid.NewString()
	identity.DNI = database.NormalizeDNI(identity.DNI)

	err := r.pool.queryRow(ctx, `
		INSERT INTO identities (id, name, lastname, dni, description, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, identity.ID, identity.Name, identity.Lastname, nullString(identity.DNI), identity.Description,
		vectorArg(identity.Embedding),
	).Scan(&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		identity.ID = ""
		return mapWriteError("insert identity", err)
	}
	return nil
}

// UpdateProfile replaces name, lastname, DNI and description.
func (r *IdentityRepository) UpdateProfile(ctx context.Context, identity *database.Identity) error {
	if uuid.Validate(identity.ID) != nil {
		return database.ErrNotFound
	}
	identity.DNI = database.NormalizeDNI(identity.DNI)

	err := r.pool.queryRow(ctx, `
		UPDATE identities
		SET name = $2, lastname = $3, dni = $4, description = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, identity.ID, identity.Name, identity.Lastname, nullString(identity.DNI), identity.Description,
	).Scan(&identity.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return database.ErrNotFound
	}
	if err != nil {
		return mapWriteError("update identity profile", err)
	}
	return nil
}

// UpdateEmbedding replaces the face embedding. An empty embedding clears it.
func (r *IdentityRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if err := database.ValidateEmbedding(embedding, r.dim); err != nil {
		return err
	}
	if uuid.Validate(id) != nil {
		return database.ErrNotFound
	}

	result, err := r.pool.exec(ctx,
		"UPDATE identities SET embedding = $2, updated_at = NOW() WHERE id = $1",
		id, vectorArg(embedding),
	)
	if err != nil {
		return fmt.Errorf("update identity embedding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update identity embedding: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*database.Identity, error) {
	var (
		identity  database.Identity
		dni       sql.NullString
		embedding *pgvector.Vector
	)
	err := row.Scan(&identity.ID, &identity.Name, &identity.Lastname, &dni, &identity.Description,
		&embedding, &identity.CreatedAt, &identity.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	identity.DNI = dni.String
	if embedding != nil {
		identity.Embedding = embedding.Slice()
	}
	return &identity, nil
}

func vectorArg(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func mapWriteError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return database.ErrDuplicateDNI
	}
	return fmt.Errorf("%s: %w", op, err)
}
