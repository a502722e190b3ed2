package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

// InMemoryEntitlementRepository implements domain.Repository in memory.
// Used in local mode and tests.
type InMemoryEntitlementRepository struct {
	mu           sync.RWMutex
	entitlements map[uuid.UUID]*domain.Entitlement
	order        []uuid.UUID
}

// NewInMemoryEntitlementRepository creates an empty repository.
func NewInMemoryEntitlementRepository() *InMemoryEntitlementRepository {
	return &InMemoryEntitlementRepository{
		entitlements: make(map[uuid.UUID]*domain.Entitlement),
	}
}

// FindByID returns an entitlement by id.
func (r *InMemoryEntitlementRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.entitlements[id]
	if !ok {
		return nil, domain.ErrEntitlementNotFound
	}
	return ent, nil
}

// ListActiveByConsumer returns active entitlements in insertion order.
func (r *InMemoryEntitlementRepository) ListActiveByConsumer(_ context.Context, consumerID uuid.UUID) ([]*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Entitlement, 0)
	for _, id := range r.order {
		ent := r.entitlements[id]
		if ent.ConsumerID() == consumerID && ent.IsActive() {
			out = append(out, ent)
		}
	}
	return out, nil
}

// ListActiveByPool returns active entitlements derived from a pool.
func (r *InMemoryEntitlementRepository) ListActiveByPool(_ context.Context, poolID uuid.UUID) ([]*domain.Entitlement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Entitlement, 0)
	for _, id := range r.order {
		ent := r.entitlements[id]
		if ent.PoolID() == poolID && ent.IsActive() {
			out = append(out, ent)
		}
	}
	return out, nil
}

// ListActiveConsumerIDs returns distinct consumers with active entitlements
// under an owner.
func (r *InMemoryEntitlementRepository) ListActiveConsumerIDs(_ context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	out := make([]uuid.UUID, 0)
	for _, id := range r.order {
		ent := r.entitlements[id]
		if ent.OwnerID() != ownerID || !ent.IsActive() {
			continue
		}
		if _, ok := seen[ent.ConsumerID()]; ok {
			continue
		}
		seen[ent.ConsumerID()] = struct{}{}
		out = append(out, ent.ConsumerID())
	}
	return out, nil
}

// Save stores an entitlement.
func (r *InMemoryEntitlementRepository) Save(_ context.Context, ent *domain.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entitlements[ent.ID()]; !ok {
		r.order = append(r.order, ent.ID())
	}
	r.entitlements[ent.ID()] = ent
	return nil
}

// Delete removes an entitlement.
func (r *InMemoryEntitlementRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entitlements[id]; !ok {
		return domain.ErrEntitlementNotFound
	}
	delete(r.entitlements, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
