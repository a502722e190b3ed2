package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

// InMemoryPoolRepository implements domain.PoolRepository in memory.
type InMemoryPoolRepository struct {
	mu    sync.RWMutex
	pools map[uuid.UUID]*domain.Pool
	order []uuid.UUID
}

// NewInMemoryPoolRepository creates an empty repository.
func NewInMemoryPoolRepository() *InMemoryPoolRepository {
	return &InMemoryPoolRepository{pools: make(map[uuid.UUID]*domain.Pool)}
}

// FindByID returns a pool by id.
func (r *InMemoryPoolRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pool, ok := r.pools[id]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	return pool, nil
}

// ListByOwner returns an owner's pools in insertion order.
func (r *InMemoryPoolRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Pool, 0)
	for _, id := range r.order {
		if pool := r.pools[id]; pool != nil && pool.OwnerID() == ownerID {
			out = append(out, pool)
		}
	}
	return out, nil
}

// Save stores a pool.
func (r *InMemoryPoolRepository) Save(_ context.Context, pool *domain.Pool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[pool.ID()]; !ok {
		r.order = append(r.order, pool.ID())
	}
	r.pools[pool.ID()] = pool
	return nil
}

// Delete removes a pool.
func (r *InMemoryPoolRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[id]; !ok {
		return domain.ErrPoolNotFound
	}
	delete(r.pools, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// InMemoryConsumerRepository implements domain.ConsumerRepository in memory.
type InMemoryConsumerRepository struct {
	mu        sync.RWMutex
	consumers map[uuid.UUID]*domain.Consumer
}

// NewInMemoryConsumerRepository creates an empty repository.
func NewInMemoryConsumerRepository() *InMemoryConsumerRepository {
	return &InMemoryConsumerRepository{consumers: make(map[uuid.UUID]*domain.Consumer)}
}

// FindByID returns a consumer by id.
func (r *InMemoryConsumerRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Consumer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	consumer, ok := r.consumers[id]
	if !ok {
		return nil, domain.ErrConsumerNotFound
	}
	return consumer, nil
}

// Save stores a consumer.
func (r *InMemoryConsumerRepository) Save(_ context.Context, consumer *domain.Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers[consumer.ID()] = consumer
	return nil
}
