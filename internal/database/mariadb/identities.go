package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/kozaktomas/faceid/internal/database"
)

const errDuplicateEntry = 1062

const identityColumns = `id, name, lastname, dni, description, embedding, created_at, updated_at`

// IdentityRepository stores identities in MariaDB. Embeddings are kept as a
// JSON array of floats.
type IdentityRepository struct {
	pool *Pool
	dim  int
	now  func() time.Time
}

// NewIdentityRepository creates a repository that only accepts embeddings of length dim.
func NewIdentityRepository(pool *Pool, dim int) *IdentityRepository {
	return &IdentityRepository{
		pool: pool,
		dim:  dim,
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Close closes the underlying pool.
func (r *IdentityRepository) Close() error {
	return r.pool.Close()
}

// List returns all identities in scan order.
func (r *IdentityRepository) List(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.db.QueryContext(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at, id`)
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
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

// GetByDNI retrieves an identity by DNI, normalizing the input first.
func (r *IdentityRepository) GetByDNI(ctx context.Context, dni string) (*database.Identity, error) {
	dni = database.NormalizeDNI(dni)
	if dni == "" {
		return nil, database.ErrNotFound
	}
	row := r.pool.db.QueryRowContext(ctx, `SELECT `+identityColumns+` FROM identities WHERE dni = ?`, dni)
	return scanIdentity(row)
}

// Count returns the total number of identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// CountEnrolled returns the number of identities with an embedding.
func (r *IdentityRepository) CountEnrolled(ctx context.Context) (int, error) {
	var count int
	err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM identities WHERE embedding IS NOT NULL").Scan(&count)
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
	embedding, err := embeddingArg(identity.Embedding)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	now := r.now()
	dni := database.NormalizeDNI(identity.DNI)

	_, err = r.pool.db.ExecContext(ctx, `
		INSERT INTO identities (id, name, lastname, dni, description, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, identity.Name, identity.Lastname, nullString(dni), identity.Description, embedding, now, now)
	if err != nil {
		return mapWriteError("insert identity", err)
	}

	identity.ID = id
	identity.DNI = dni
	identity.CreatedAt = now
	identity.UpdatedAt = now
	return nil
}

// UpdateProfile replaces name, lastname, DNI and description.
func (r *IdentityRepository) UpdateProfile(ctx context.Context, identity *database.Identity) error {
	now := r.now()
	dni := database.NormalizeDNI(identity.DNI)

	result, err := r.pool.db.ExecContext(ctx, `
		UPDATE identities SET name = ?, lastname = ?, dni = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, identity.Name, identity.Lastname, nullString(dni), identity.Description, now, identity.ID)
	if err != nil {
		return mapWriteError("update identity profile", err)
	}
	if err := requireRow(result); err != nil {
		return err
	}

	identity.DNI = dni
	identity.UpdatedAt = now
	return nil
}

// UpdateEmbedding replaces the face embedding. An empty embedding clears it.
func (r *IdentityRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if err := database.ValidateEmbedding(embedding, r.dim); err != nil {
		return err
	}
	data, err := embeddingArg(embedding)
	if err != nil {
		return err
	}

	result, err := r.pool.db.ExecContext(ctx,
		"UPDATE identities SET embedding = ?, updated_at = ? WHERE id = ?", data, r.now(), id)
	if err != nil {
		return fmt.Errorf("update identity embedding: %w", err)
	}
	return requireRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (*database.Identity, error) {
	var (
		identity  database.Identity
		dni       sql.NullString
		embedding []byte
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
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &identity.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding of identity %s: %w", identity.ID, err)
		}
	}
	return &identity, nil
}

func embeddingArg(embedding []float32) (any, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding: %w", err)
	}
	return string(data), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// requireRow relies on ClientFoundRows so that unchanged rows still count.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return database.ErrNotFound
	}
	return nil
}

func mapWriteError(op string, err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return database.ErrDuplicateDNI
	}
	return fmt.Errorf("%s: %w", op, err)
}
