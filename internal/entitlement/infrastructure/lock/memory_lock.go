package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

// InMemoryConsumerLock serializes per-consumer work within one process.
// Acquire fails fast with ErrConcurrentModification instead of blocking, so
// callers keep control over retry policy.
type InMemoryConsumerLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewInMemoryConsumerLock creates an empty lock registry.
func NewInMemoryConsumerLock() *InMemoryConsumerLock {
	return &InMemoryConsumerLock{held: make(map[uuid.UUID]struct{})}
}

// Acquire takes the consumer's lock. The returned release function is safe to
// call once; callers defer it.
func (l *InMemoryConsumerLock) Acquire(_ context.Context, consumerID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[consumerID]; taken {
		return nil, domain.ErrConcurrentModification
	}
	l.held[consumerID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, consumerID)
		})
	}
	return release, nil
}
