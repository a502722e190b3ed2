package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

func TestDeletePool_RevokesDerivedEntitlements(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1")
	pool := f.addPool(t, "p1")
	first := f.newConsumer(t)
	second := f.newConsumer(t)

	boundFirst, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: first.ID(), PoolID: pool.ID(),
	})
	require.NoError(t, err)
	boundSecond, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: second.ID(), PoolID: pool.ID(),
	})
	require.NoError(t, err)

	result, err := f.deletePool.Handle(context.Background(), DeletePoolCommand{PoolID: pool.ID()})
	require.NoError(t, err)
	assert.Equal(t, 2, result.RevokedEntitlements)

	assert.True(t, f.revocations.IsRevoked(boundFirst.Serial))
	assert.True(t, f.revocations.IsRevoked(boundSecond.Serial))

	_, err = f.pools.FindByID(context.Background(), pool.ID())
	require.ErrorIs(t, err, domain.ErrPoolNotFound)

	activeFirst, err := f.entitlements.ListActiveByConsumer(context.Background(), first.ID())
	require.NoError(t, err)
	assert.Empty(t, activeFirst)
	activeSecond, err := f.entitlements.ListActiveByConsumer(context.Background(), second.ID())
	require.NoError(t, err)
	assert.Empty(t, activeSecond)
}

func TestDeletePool_CascadeMatchesUnbind(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1", content(t, "c1", "q1"))
	f.addProduct(t, "p2")
	modifierPool := f.addPool(t, "p1")
	providerPool := f.addPool(t, "p2", "q1")
	consumer := f.newConsumer(t)

	modifier, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(), PoolID: modifierPool.ID(),
	})
	require.NoError(t, err)
	provider, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(), PoolID: providerPool.ID(),
	})
	require.NoError(t, err)
	require.Len(t, provider.Regenerated, 1)

	// Deleting the provider pool behaves like unbinding its entitlement: the
	// modifier loses c1 and regenerates.
	result, err := f.deletePool.Handle(context.Background(), DeletePoolCommand{PoolID: providerPool.ID()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RevokedEntitlements)
	require.Len(t, result.Regenerated, 1)
	assert.Equal(t, modifier.EntitlementID, result.Regenerated[0].EntitlementID)
	assert.Empty(t, f.encoder.last.Content)

	active, err := f.entitlements.ListActiveByConsumer(context.Background(), consumer.ID())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, modifier.EntitlementID, active[0].ID())
}

func TestDeletePool_NoEntitlements(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1")
	pool := f.addPool(t, "p1")

	result, err := f.deletePool.Handle(context.Background(), DeletePoolCommand{PoolID: pool.ID()})
	require.NoError(t, err)
	assert.Zero(t, result.RevokedEntitlements)
	assert.Empty(t, result.Regenerated)
}
