package domain

import (
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/shared/domain"
)

// Pool is an entitleable unit over one master product. The provided product
// ids are snapshotted when the pool is created; later catalog edits to the
// product's provided set do not change existing pools.
type Pool struct {
	domain.BaseAggregateRoot
	ownerID            uuid.UUID
	productID          string
	providedProductIDs []string
}

// NewPool creates a pool over a master product, snapshotting its provided
// products.
func NewPool(ownerID uuid.UUID, productID string, providedProductIDs []string) (*Pool, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, ErrPoolEmptyProduct
	}
	p := &Pool{
		BaseAggregateRoot: domain.NewBaseAggregateRoot(),
		ownerID:           ownerID,
		productID:         productID,
	}
	p.providedProductIDs = dedupeIDs(providedProductIDs)
	return p, nil
}

func (p *Pool) OwnerID() uuid.UUID { return p.ownerID }
func (p *Pool) ProductID() string  { return p.productID }

// ProvidedProductIDs returns the snapshot taken at pool creation.
func (p *Pool) ProvidedProductIDs() []string {
	ids := make([]string, len(p.providedProductIDs))
	copy(ids, p.providedProductIDs)
	return ids
}

// Covers reports whether the pool grants access to the given product id,
// either as master product or through the provided snapshot.
func (p *Pool) Covers(productID string) bool {
	if p.productID == productID {
		return true
	}
	for _, id := range p.providedProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// RehydratePool recreates a pool from persisted state.
func RehydratePool(base domain.BaseEntity, version int, ownerID uuid.UUID, productID string, providedProductIDs []string) *Pool {
	p := &Pool{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(base, version),
		ownerID:           ownerID,
		productID:         productID,
	}
	p.providedProductIDs = append(p.providedProductIDs, providedProductIDs...)
	return p
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
