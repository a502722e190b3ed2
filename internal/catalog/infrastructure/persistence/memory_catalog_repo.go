package persistence

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/catalog/domain"
)

type catalogKey struct {
	ownerID uuid.UUID
	id      string
}

// InMemoryCatalogRepository implements the catalog Repository in memory.
// Used in local mode and tests.
type InMemoryCatalogRepository struct {
	mu       sync.RWMutex
	products map[catalogKey]*domain.Product
	contents map[catalogKey]*domain.Content
}

// NewInMemoryCatalogRepository creates an empty in-memory catalog.
func NewInMemoryCatalogRepository() *InMemoryCatalogRepository {
	return &InMemoryCatalogRepository{
		products: make(map[catalogKey]*domain.Product),
		contents: make(map[catalogKey]*domain.Content),
	}
}

// GetProduct returns the product with the given id.
func (r *InMemoryCatalogRepository) GetProduct(_ context.Context, ownerID uuid.UUID, productID string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[catalogKey{ownerID: ownerID, id: productID}]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

// GetContent returns the content with the given id.
func (r *InMemoryCatalogRepository) GetContent(_ context.Context, ownerID uuid.UUID, contentID string) (*domain.Content, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	content, ok := r.contents[catalogKey{ownerID: ownerID, id: contentID}]
	if !ok {
		return nil, domain.ErrContentNotFound
	}
	return content, nil
}

// SaveProduct stores a product and its attached content sets.
func (r *InMemoryCatalogRepository) SaveProduct(_ context.Context, product *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[catalogKey{ownerID: product.OwnerID(), id: product.ID()}] = product
	for _, pc := range product.ProductContent() {
		r.contents[catalogKey{ownerID: product.OwnerID(), id: pc.Content().ID()}] = pc.Content()
	}
	return nil
}

// SaveContent stores a content set.
func (r *InMemoryCatalogRepository) SaveContent(_ context.Context, ownerID uuid.UUID, content *domain.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contents[catalogKey{ownerID: ownerID, id: content.ID()}] = content
	return nil
}

// DeleteProduct removes a product.
func (r *InMemoryCatalogRepository) DeleteProduct(_ context.Context, ownerID uuid.UUID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.products, catalogKey{ownerID: ownerID, id: productID})
	return nil
}
