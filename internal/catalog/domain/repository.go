package domain

import (
	"context"

	"github.com/google/uuid"
)

// Reader provides lookup access to the product catalog. The resolution
// pipeline only reads the catalog; mutation happens through Writer.
type Reader interface {
	// GetProduct returns the product with the given id under an owner.
	// Returns ErrProductNotFound when it does not exist.
	GetProduct(ctx context.Context, ownerID uuid.UUID, productID string) (*Product, error)

	// GetContent returns the content with the given id under an owner.
	// Returns ErrContentNotFound when it does not exist.
	GetContent(ctx context.Context, ownerID uuid.UUID, contentID string) (*Content, error)
}

// Writer persists catalog entities.
type Writer interface {
	SaveProduct(ctx context.Context, product *Product) error
	SaveContent(ctx context.Context, ownerID uuid.UUID, content *Content) error
	DeleteProduct(ctx context.Context, ownerID uuid.UUID, productID string) error
}

// Repository combines catalog reads and writes.
type Repository interface {
	Reader
	Writer
}
