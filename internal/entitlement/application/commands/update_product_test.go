package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
)

func TestUpdateProduct_RegeneratesAffectedConsumers(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1", content(t, "c1"))
	pool := f.addPool(t, "p1")
	affected := f.newConsumer(t)

	bound, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: affected.ID(), PoolID: pool.ID(),
	})
	require.NoError(t, err)

	// The catalog gains a content set on p1; issued certificates are stale.
	product, err := f.catalog.GetProduct(context.Background(), f.ownerID, "p1")
	require.NoError(t, err)
	require.NoError(t, product.AddContent(content(t, "c2"), true))
	require.NoError(t, f.catalog.SaveProduct(context.Background(), product))

	result, err := f.updateProds.Handle(context.Background(), UpdateProductCommand{
		OwnerID:           f.ownerID,
		ChangedProductIDs: []string{"p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ConsumersEvaluated)
	require.Len(t, result.Regenerated, 1)
	assert.Equal(t, bound.EntitlementID, result.Regenerated[0].EntitlementID)
	assert.True(t, f.revocations.IsRevoked(bound.Serial))

	// Running it again is a no-op.
	result, err = f.updateProds.Handle(context.Background(), UpdateProductCommand{
		OwnerID:           f.ownerID,
		ChangedProductIDs: []string{"p1"},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Regenerated)
}

func TestUpdateProduct_NoConsumers(t *testing.T) {
	f := newFixture(t)
	result, err := f.updateProds.Handle(context.Background(), UpdateProductCommand{
		OwnerID:           f.ownerID,
		ChangedProductIDs: []string{"p1"},
	})
	require.NoError(t, err)
	assert.Zero(t, result.ConsumersEvaluated)
}

func TestUpdateProduct_RelabeledContentChangesDigest(t *testing.T) {
	f := newFixture(t)
	relabeled, err := catalogdomain.NewContent("c1", "content c1", "old-label", catalogdomain.RepoTypeYum)
	require.NoError(t, err)
	product, err := catalogdomain.NewProduct(f.ownerID, "p1", "product p1")
	require.NoError(t, err)
	require.NoError(t, product.AddContent(relabeled, true))
	require.NoError(t, f.catalog.SaveProduct(context.Background(), product))

	pool := f.addPool(t, "p1")
	consumer := f.newConsumer(t)
	bound, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(), PoolID: pool.ID(),
	})
	require.NoError(t, err)

	// Replace the product with a relabeled copy of the same content id.
	fresh, err := catalogdomain.NewContent("c1", "content c1", "new-label", catalogdomain.RepoTypeYum)
	require.NoError(t, err)
	replacement, err := catalogdomain.NewProduct(f.ownerID, "p1", "product p1")
	require.NoError(t, err)
	require.NoError(t, replacement.AddContent(fresh, true))
	require.NoError(t, f.catalog.SaveProduct(context.Background(), replacement))

	result, err := f.updateProds.Handle(context.Background(), UpdateProductCommand{
		OwnerID:           f.ownerID,
		ChangedProductIDs: []string{"p1"},
	})
	require.NoError(t, err)
	require.Len(t, result.Regenerated, 1)
	assert.Greater(t, result.Regenerated[0].NewSerial, bound.Serial)
}
