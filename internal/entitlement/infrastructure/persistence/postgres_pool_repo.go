package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	shareddomain "github.com/felixgeelhaar/sigil/internal/shared/domain"
	sharedpersistence "github.com/felixgeelhaar/sigil/internal/shared/infrastructure/persistence"
)

// PostgresPoolRepository implements domain.PoolRepository with PostgreSQL.
type PostgresPoolRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPoolRepository creates a new repository.
func NewPostgresPoolRepository(pool *pgxpool.Pool) *PostgresPoolRepository {
	return &PostgresPoolRepository{pool: pool}
}

// FindByID returns a pool by id.
func (r *PostgresPoolRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Pool, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`SELECT id, owner_id, product_id, provided_product_ids, created_at, updated_at, version FROM pools WHERE id = $1`,
		id)
	pool, err := scanPool(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPoolNotFound
		}
		return nil, err
	}
	return pool, nil
}

// ListByOwner returns an owner's pools, oldest first.
func (r *PostgresPoolRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT id, owner_id, product_id, provided_product_ids, created_at, updated_at, version FROM pools WHERE owner_id = $1 ORDER BY created_at`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pools := make([]*domain.Pool, 0)
	for rows.Next() {
		pool, err := scanPool(rows)
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, rows.Err()
}

// Save upserts a pool. The provided snapshot is written once; updates only
// touch bookkeeping columns.
func (r *PostgresPoolRepository) Save(ctx context.Context, pool *domain.Pool) error {
	exec := sharedpersistence.Executor(ctx, r.pool)
	query := `
		INSERT INTO pools (id, owner_id, product_id, provided_product_ids, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			version = pools.version + 1
	`
	_, err := exec.Exec(ctx, query, pool.ID(), pool.OwnerID(), pool.ProductID(),
		pool.ProvidedProductIDs(), pool.CreatedAt(), pool.UpdatedAt(), pool.Version())
	return err
}

// Delete removes a pool.
func (r *PostgresPoolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sharedpersistence.Executor(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM pools WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPoolNotFound
	}
	return nil
}

func scanPool(row pgx.Row) (*domain.Pool, error) {
	var (
		id, ownerID          uuid.UUID
		productID            string
		providedProductIDs   []string
		createdAt, updatedAt time.Time
		version              int
	)
	if err := row.Scan(&id, &ownerID, &productID, &providedProductIDs, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}
	base := shareddomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return domain.RehydratePool(base, version, ownerID, productID, providedProductIDs), nil
}

// PostgresConsumerRepository implements domain.ConsumerRepository with PostgreSQL.
type PostgresConsumerRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresConsumerRepository creates a new repository.
func NewPostgresConsumerRepository(pool *pgxpool.Pool) *PostgresConsumerRepository {
	return &PostgresConsumerRepository{pool: pool}
}

// FindByID returns a consumer by id.
func (r *PostgresConsumerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Consumer, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	var (
		ownerID              uuid.UUID
		name                 string
		installedProductIDs  []string
		createdAt, updatedAt time.Time
		version              int
	)
	err := exec.QueryRow(ctx,
		`SELECT owner_id, name, installed_product_ids, created_at, updated_at, version FROM consumers WHERE id = $1`,
		id).Scan(&ownerID, &name, &installedProductIDs, &createdAt, &updatedAt, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConsumerNotFound
		}
		return nil, err
	}
	base := shareddomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return domain.RehydrateConsumer(base, version, ownerID, name, installedProductIDs), nil
}

// Save upserts a consumer.
func (r *PostgresConsumerRepository) Save(ctx context.Context, consumer *domain.Consumer) error {
	exec := sharedpersistence.Executor(ctx, r.pool)
	query := `
		INSERT INTO consumers (id, owner_id, name, installed_product_ids, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			installed_product_ids = EXCLUDED.installed_product_ids,
			updated_at = EXCLUDED.updated_at,
			version = consumers.version + 1
	`
	_, err := exec.Exec(ctx, query, consumer.ID(), consumer.OwnerID(), consumer.Name(),
		consumer.InstalledProductIDs(), consumer.CreatedAt(), consumer.UpdatedAt(), consumer.Version())
	return err
}
