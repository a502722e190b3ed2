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

// PostgresEntitlementRepository implements domain.Repository with PostgreSQL.
type PostgresEntitlementRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEntitlementRepository creates a new repository.
func NewPostgresEntitlementRepository(pool *pgxpool.Pool) *PostgresEntitlementRepository {
	return &PostgresEntitlementRepository{pool: pool}
}

const entitlementColumns = `
	id, consumer_id, pool_id, owner_id, product_id, provided_product_ids,
	status, serial, digest, payload, issued_at, created_at, updated_at, version
`

// FindByID returns an entitlement by id.
func (r *PostgresEntitlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Entitlement, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+entitlementColumns+` FROM entitlements WHERE id = $1`, id)
	ent, err := scanEntitlement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntitlementNotFound
		}
		return nil, err
	}
	return ent, nil
}

// ListActiveByConsumer returns the consumer's active entitlements, oldest first.
func (r *PostgresEntitlementRepository) ListActiveByConsumer(ctx context.Context, consumerID uuid.UUID) ([]*domain.Entitlement, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE consumer_id = $1 AND status = 'active' ORDER BY created_at`,
		consumerID)
	if err != nil {
		return nil, err
	}
	return scanEntitlements(rows)
}

// ListActiveByPool returns active entitlements derived from a pool.
func (r *PostgresEntitlementRepository) ListActiveByPool(ctx context.Context, poolID uuid.UUID) ([]*domain.Entitlement, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT `+entitlementColumns+` FROM entitlements WHERE pool_id = $1 AND status = 'active' ORDER BY created_at`,
		poolID)
	if err != nil {
		return nil, err
	}
	return scanEntitlements(rows)
}

// ListActiveConsumerIDs returns distinct consumers with active entitlements
// under an owner.
func (r *PostgresEntitlementRepository) ListActiveConsumerIDs(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT DISTINCT consumer_id FROM entitlements WHERE owner_id = $1 AND status = 'active'`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save upserts an entitlement with optimistic concurrency on version.
func (r *PostgresEntitlementRepository) Save(ctx context.Context, ent *domain.Entitlement) error {
	exec := sharedpersistence.Executor(ctx, r.pool)

	var (
		serial   *int64
		digest   *string
		payload  []byte
		issuedAt *time.Time
	)
	if cert := ent.Certificate(); cert != nil {
		s, d, at := cert.Serial(), cert.Digest(), cert.IssuedAt()
		serial, digest, payload, issuedAt = &s, &d, cert.Payload(), &at
	}

	query := `
		INSERT INTO entitlements (` + entitlementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			serial = EXCLUDED.serial,
			digest = EXCLUDED.digest,
			payload = EXCLUDED.payload,
			issued_at = EXCLUDED.issued_at,
			updated_at = EXCLUDED.updated_at,
			version = entitlements.version + 1
		WHERE entitlements.version = $14
	`
	tag, err := exec.Exec(ctx, query,
		ent.ID(), ent.ConsumerID(), ent.PoolID(), ent.OwnerID(), ent.ProductID(),
		ent.ProvidedProductIDs(), string(ent.Status()), serial, digest, payload,
		issuedAt, ent.CreatedAt(), ent.UpdatedAt(), ent.Version())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

// Delete removes an entitlement row.
func (r *PostgresEntitlementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := sharedpersistence.Executor(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM entitlements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntitlementNotFound
	}
	return nil
}

func scanEntitlement(row pgx.Row) (*domain.Entitlement, error) {
	var (
		id, consumerID, poolID, ownerID uuid.UUID
		productID, status               string
		providedProductIDs              []string
		serial                          *int64
		digest                          *string
		payload                         []byte
		issuedAt                        *time.Time
		createdAt, updatedAt            time.Time
		version                         int
	)
	if err := row.Scan(&id, &consumerID, &poolID, &ownerID, &productID, &providedProductIDs,
		&status, &serial, &digest, &payload, &issuedAt, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}

	var cert *domain.Certificate
	if serial != nil && digest != nil && issuedAt != nil {
		cert = domain.RehydrateCertificate(*serial, *digest, payload, *issuedAt)
	}

	base := shareddomain.RehydrateBaseEntity(id, createdAt, updatedAt)
	return domain.RehydrateEntitlement(base, version, consumerID, poolID, ownerID,
		productID, providedProductIDs, cert, domain.EntitlementStatus(status)), nil
}

func scanEntitlements(rows pgx.Rows) ([]*domain.Entitlement, error) {
	defer rows.Close()
	out := make([]*domain.Entitlement, 0)
	for rows.Next() {
		ent, err := scanEntitlement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ent)
	}
	return out, rows.Err()
}
