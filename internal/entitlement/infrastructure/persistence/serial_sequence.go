package persistence

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"

	sharedpersistence "github.com/felixgeelhaar/sigil/internal/shared/infrastructure/persistence"
)

// PostgresSerialSequence hands out certificate serials from a database
// sequence, so serials stay unique across nodes.
type PostgresSerialSequence struct {
	pool *pgxpool.Pool
}

// NewPostgresSerialSequence creates a sequence backed by Postgres.
func NewPostgresSerialSequence(pool *pgxpool.Pool) *PostgresSerialSequence {
	return &PostgresSerialSequence{pool: pool}
}

// Next returns the next serial.
func (s *PostgresSerialSequence) Next(ctx context.Context) (int64, error) {
	exec := sharedpersistence.Executor(ctx, s.pool)
	var serial int64
	if err := exec.QueryRow(ctx, `SELECT nextval('certificate_serials')`).Scan(&serial); err != nil {
		return 0, err
	}
	return serial, nil
}

// InMemorySerialSequence hands out serials from an atomic counter. Serials
// are only unique within one process.
type InMemorySerialSequence struct {
	last atomic.Int64
}

// NewInMemorySerialSequence creates a sequence starting after the given serial.
func NewInMemorySerialSequence(start int64) *InMemorySerialSequence {
	s := &InMemorySerialSequence{}
	s.last.Store(start)
	return s
}

// Next returns the next serial.
func (s *InMemorySerialSequence) Next(_ context.Context) (int64, error) {
	return s.last.Add(1), nil
}
