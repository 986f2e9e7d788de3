package database

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when an identity does not exist.
var ErrNotFound = errors.New("identity not found")

// ErrDuplicateDNI is returned when another identity already has the same DNI.
var ErrDuplicateDNI = errors.New("identity with this DNI already exists")

// ErrDimensionMismatch is returned when an embedding does not have the configured length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// IdentityReader provides read-only access to identities
type IdentityReader interface {
	// List returns all identities in scan order (creation order), including
	// identities without an embedding
	List(ctx context.Context) ([]Identity, error)
	// Get retrieves an identity by ID, returns ErrNotFound if missing
	Get(ctx context.Context, id string) (*Identity, error)
	// GetByDNI retrieves an identity by its normalized identifier number, returns ErrNotFound if missing
	GetByDNI(ctx context.Context, dni string) (*Identity, error)
	// Count returns the total number of identities
	Count(ctx context.Context) (int, error)
	// CountEnrolled returns the number of identities with an embedding
	CountEnrolled(ctx context.Context) (int, error)
}

// IdentityWriter provides write access to identities
type IdentityWriter interface {
	IdentityReader

	// Create stores a new identity and fills in ID and timestamps
	Create(ctx context.Context, identity *Identity) error
	// UpdateProfile replaces the profile fields (not the embedding) of an identity
	UpdateProfile(ctx context.Context, identity *Identity) error
	// UpdateEmbedding replaces the face embedding of an identity
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
}

// Store is an IdentityWriter backed by a connection that must be closed.
type Store interface {
	IdentityWriter
	Close() error
}

// ValidateEmbedding checks that a non-empty embedding has the expected length.
func ValidateEmbedding(embedding []float32, dim int) error {
	if len(embedding) == 0 || dim <= 0 {
		return nil
	}
	if len(embedding) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), dim)
	}
	return nil
}
