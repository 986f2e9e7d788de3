// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kozaktomas/faceid/internal/database"
)

// MockIdentityStore is an in-memory database.Store. Identities keep insertion
// order, which is also their scan order.
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities []*database.Identity
	nextID     int

	// Error injection
	ListError            error
	GetError             error
	CountError           error
	CreateError          error
	UpdateProfileError   error
	UpdateEmbeddingError error

	closed bool
}

// NewMockIdentityStore creates an empty mock store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{}
}

// AddIdentity appends an identity as-is, assigning an ID if it has none
func (m *MockIdentityStore) AddIdentity(identity database.Identity) *database.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity.ID == "" {
		m.nextID++
		identity.ID = fmt.Sprintf("id-%d", m.nextID)
	}
	stored := identity
	m.identities = append(m.identities, &stored)
	return &stored
}

// Closed reports whether Close was called
func (m *MockIdentityStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *MockIdentityStore) List(ctx context.Context) ([]database.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, *identity)
	}
	return result, nil
}

func (m *MockIdentityStore) Get(ctx context.Context, id string) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, identity := range m.identities {
		if identity.ID == id {
			cp := *identity
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockIdentityStore) GetByDNI(ctx context.Context, dni string) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	dni = database.NormalizeDNI(dni)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, identity := range m.identities {
		if dni != "" && identity.DNI == dni {
			cp := *identity
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

func (m *MockIdentityStore) CountEnrolled(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, identity := range m.identities {
		if identity.Enrolled() {
			n++
		}
	}
	return n, nil
}

func (m *MockIdentityStore) Create(ctx context.Context, identity *database.Identity) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	identity.DNI = database.NormalizeDNI(identity.DNI)
	if identity.DNI != "" {
		for _, existing := range m.identities {
			if existing.DNI == identity.DNI {
				return database.ErrDuplicateDNI
			}
		}
	}

	m.nextID++
	identity.ID = fmt.Sprintf("id-%d", m.nextID)
	identity.CreatedAt = time.Now()
	identity.UpdatedAt = identity.CreatedAt
	stored := *identity
	m.identities = append(m.identities, &stored)
	return nil
}

func (m *MockIdentityStore) UpdateProfile(ctx context.Context, identity *database.Identity) error {
	if m.UpdateProfileError != nil {
		return m.UpdateProfileError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if existing.ID == identity.ID {
			existing.Name = identity.Name
			existing.Lastname = identity.Lastname
			existing.DNI = database.NormalizeDNI(identity.DNI)
			existing.Description = identity.Description
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *MockIdentityStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	if m.UpdateEmbeddingError != nil {
		return m.UpdateEmbeddingError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.identities {
		if existing.ID == id {
			existing.Embedding = append([]float32(nil), embedding...)
			existing.UpdatedAt = time.Now()
			return nil
		}
	}
	return database.ErrNotFound
}

func (m *MockIdentityStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ database.Store = (*MockIdentityStore)(nil)
