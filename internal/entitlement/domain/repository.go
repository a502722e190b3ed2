package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	catalog "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	shareddomain "github.com/felixgeelhaar/sigil/internal/shared/domain"
)

// The aggregate repositories extend the shared base contract with the
// listing operations the regeneration engine needs.
var (
	_ shareddomain.Repository[*Entitlement] = (Repository)(nil)
	_ shareddomain.Repository[*Pool]        = (PoolRepository)(nil)
)

// Repository persists entitlements.
type Repository interface {
	// FindByID returns an entitlement or ErrEntitlementNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*Entitlement, error)
	// ListActiveByConsumer returns the consumer's active entitlements.
	ListActiveByConsumer(ctx context.Context, consumerID uuid.UUID) ([]*Entitlement, error)
	// ListActiveByPool returns every active entitlement derived from a pool,
	// across consumers.
	ListActiveByPool(ctx context.Context, poolID uuid.UUID) ([]*Entitlement, error)
	// ListActiveConsumerIDs returns the distinct consumers holding active
	// entitlements under an owner.
	ListActiveConsumerIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
	Save(ctx context.Context, entitlement *Entitlement) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PoolRepository persists pools.
type PoolRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Pool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Pool, error)
	Save(ctx context.Context, pool *Pool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConsumerRepository persists consumers.
type ConsumerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Consumer, error)
	Save(ctx context.Context, consumer *Consumer) error
}

// SerialSequence hands out monotonically increasing certificate serials.
type SerialSequence interface {
	Next(ctx context.Context) (int64, error)
}

// EncodeRequest carries everything the encoder needs to produce a
// certificate payload.
type EncodeRequest struct {
	EntitlementID uuid.UUID
	ConsumerID    uuid.UUID
	Product       *catalog.Product
	Content       []catalog.ProductContent
	Digest        string
}

// CertificateEncoder produces signed certificate payloads. Implementations
// are opaque to the engine; a failure aborts the surrounding unit of work.
type CertificateEncoder interface {
	Encode(ctx context.Context, req EncodeRequest) (serial int64, payload []byte, err error)
}

// ConsumerLock serializes closure-changing work per consumer. Acquire returns
// ErrConcurrentModification when the consumer is already locked; callers
// retry the whole pass.
type ConsumerLock interface {
	Acquire(ctx context.Context, consumerID uuid.UUID) (release func(), err error)
}

// RevocationRecorder keeps an audit trail of revoked serials.
type RevocationRecorder interface {
	Record(ctx context.Context, serial int64, entitlementID uuid.UUID, reason string, revokedAt time.Time) error
}
