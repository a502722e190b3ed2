package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/sigil/internal/catalog/domain"
	sharedpersistence "github.com/felixgeelhaar/sigil/internal/shared/infrastructure/persistence"
)

// PostgresCatalogRepository implements the catalog Repository with PostgreSQL.
type PostgresCatalogRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalogRepository creates a new repository.
func NewPostgresCatalogRepository(pool *pgxpool.Pool) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{pool: pool}
}

// GetProduct loads a product with its provided products and attached content.
func (r *PostgresCatalogRepository) GetProduct(ctx context.Context, ownerID uuid.UUID, productID string) (*domain.Product, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)

	query := `
		SELECT name, provided_product_ids, attributes
		FROM products
		WHERE owner_id = $1 AND id = $2
	`
	var (
		name        string
		providedIDs []string
		attributes  map[string]string
	)
	if err := exec.QueryRow(ctx, query, ownerID, productID).Scan(&name, &providedIDs, &attributes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	contentQuery := `
		SELECT c.id, c.name, c.label, c.repo_type, c.vendor, c.content_url, c.modified_product_ids, pc.enabled
		FROM product_content pc
		JOIN contents c ON c.owner_id = pc.owner_id AND c.id = pc.content_id
		WHERE pc.owner_id = $1 AND pc.product_id = $2
		ORDER BY pc.position
	`
	rows, err := exec.Query(ctx, contentQuery, ownerID, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	productContent := make([]domain.ProductContent, 0)
	for rows.Next() {
		var (
			content contentRow
			enabled bool
		)
		if err := rows.Scan(&content.ID, &content.Name, &content.Label, &content.RepoType,
			&content.Vendor, &content.ContentURL, &content.ModifiedProductIDs, &enabled); err != nil {
			return nil, err
		}
		productContent = append(productContent, domain.NewProductContent(content.toDomain(), enabled))
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return domain.RehydrateProduct(ownerID, productID, name, providedIDs, productContent, attributes), nil
}

// GetContent loads a single content set.
func (r *PostgresCatalogRepository) GetContent(ctx context.Context, ownerID uuid.UUID, contentID string) (*domain.Content, error) {
	exec := sharedpersistence.Executor(ctx, r.pool)

	query := `
		SELECT id, name, label, repo_type, vendor, content_url, modified_product_ids
		FROM contents
		WHERE owner_id = $1 AND id = $2
	`
	var row contentRow
	if err := exec.QueryRow(ctx, query, ownerID, contentID).Scan(&row.ID, &row.Name, &row.Label,
		&row.RepoType, &row.Vendor, &row.ContentURL, &row.ModifiedProductIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// SaveProduct upserts a product and replaces its content attachments.
func (r *PostgresCatalogRepository) SaveProduct(ctx context.Context, product *domain.Product) error {
	exec := sharedpersistence.Executor(ctx, r.pool)

	query := `
		INSERT INTO products (owner_id, id, name, provided_product_ids, attributes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (owner_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			provided_product_ids = EXCLUDED.provided_product_ids,
			attributes = EXCLUDED.attributes,
			updated_at = NOW()
	`
	if _, err := exec.Exec(ctx, query, product.OwnerID(), product.ID(), product.Name(),
		product.ProvidedProductIDs(), product.Attributes()); err != nil {
		return err
	}

	if _, err := exec.Exec(ctx,
		`DELETE FROM product_content WHERE owner_id = $1 AND product_id = $2`,
		product.OwnerID(), product.ID()); err != nil {
		return err
	}

	attachQuery := `
		INSERT INTO product_content (owner_id, product_id, content_id, enabled, position)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, pc := range product.ProductContent() {
		if err := r.saveContent(ctx, exec, product.OwnerID(), pc.Content()); err != nil {
			return err
		}
		if _, err := exec.Exec(ctx, attachQuery,
			product.OwnerID(), product.ID(), pc.Content().ID(), pc.Enabled(), i); err != nil {
			return err
		}
	}
	return nil
}

// SaveContent upserts a content set.
func (r *PostgresCatalogRepository) SaveContent(ctx context.Context, ownerID uuid.UUID, content *domain.Content) error {
	return r.saveContent(ctx, sharedpersistence.Executor(ctx, r.pool), ownerID, content)
}

func (r *PostgresCatalogRepository) saveContent(ctx context.Context, exec sharedpersistence.DBExecutor, ownerID uuid.UUID, content *domain.Content) error {
	query := `
		INSERT INTO contents (owner_id, id, name, label, repo_type, vendor, content_url, modified_product_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		ON CONFLICT (owner_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			label = EXCLUDED.label,
			repo_type = EXCLUDED.repo_type,
			vendor = EXCLUDED.vendor,
			content_url = EXCLUDED.content_url,
			modified_product_ids = EXCLUDED.modified_product_ids,
			updated_at = NOW()
	`
	_, err := exec.Exec(ctx, query, ownerID, content.ID(), content.Name(), content.Label(),
		string(content.RepoType()), content.Vendor(), content.ContentURL(), content.ModifiedProductIDs())
	return err
}

// DeleteProduct removes a product and its content attachments.
func (r *PostgresCatalogRepository) DeleteProduct(ctx context.Context, ownerID uuid.UUID, productID string) error {
	exec := sharedpersistence.Executor(ctx, r.pool)
	if _, err := exec.Exec(ctx,
		`DELETE FROM product_content WHERE owner_id = $1 AND product_id = $2`,
		ownerID, productID); err != nil {
		return err
	}
	_, err := exec.Exec(ctx, `DELETE FROM products WHERE owner_id = $1 AND id = $2`, ownerID, productID)
	return err
}

type contentRow struct {
	ID                 string
	Name               string
	Label              string
	RepoType           string
	Vendor             string
	ContentURL         string
	ModifiedProductIDs []string
}

func (c contentRow) toDomain() *domain.Content {
	return domain.RehydrateContent(c.ID, c.Name, c.Label, domain.RepoType(c.RepoType),
		c.Vendor, c.ContentURL, c.ModifiedProductIDs)
}
