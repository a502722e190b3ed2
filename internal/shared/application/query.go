package application

import "context"

// Query represents a read against system state. Queries never mutate
// entitlements or certificates.
type Query interface {
	QueryName() string
}

// QueryHandler handles a specific query type, returning a DTO or DTO slice.
type QueryHandler[Q Query, R any] interface {
	Handle(ctx context.Context, query Q) (R, error)
}
