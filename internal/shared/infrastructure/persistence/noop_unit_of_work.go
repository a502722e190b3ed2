package persistence

import "context"

// NoopUnitOfWork satisfies the unit-of-work contract without transactional
// semantics. Used with the in-memory repositories in local mode and in tests.
type NoopUnitOfWork struct{}

// NewNoopUnitOfWork creates a new NoopUnitOfWork.
func NewNoopUnitOfWork() *NoopUnitOfWork {
	return &NoopUnitOfWork{}
}

func (u *NoopUnitOfWork) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (u *NoopUnitOfWork) Commit(ctx context.Context) error                   { return nil }
func (u *NoopUnitOfWork) Rollback(ctx context.Context) error                 { return nil }
