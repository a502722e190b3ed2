package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
)

func TestUnbindEntitlement_RevokesCertificate(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1")
	pool := f.addPool(t, "p1")
	consumer := f.newConsumer(t)

	bound, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(),
		PoolID:     pool.ID(),
	})
	require.NoError(t, err)

	result, err := f.unbind.Handle(context.Background(), UnbindEntitlementCommand{
		EntitlementID: bound.EntitlementID,
	})
	require.NoError(t, err)
	assert.Equal(t, bound.Serial, result.RevokedSerial)
	assert.True(t, f.revocations.IsRevoked(bound.Serial))

	active, err := f.entitlements.ListActiveByConsumer(context.Background(), consumer.ID())
	require.NoError(t, err)
	assert.Empty(t, active)

	ent, err := f.entitlements.FindByID(context.Background(), bound.EntitlementID)
	require.NoError(t, err)
	assert.False(t, ent.IsActive())
}

func TestUnbindEntitlement_RegeneratesModifierSibling(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1", content(t, "c1", "q1"))
	f.addProduct(t, "p2")
	modifierPool := f.addPool(t, "p1")
	providerPool := f.addPool(t, "p2", "q1")
	consumer := f.newConsumer(t)

	modifier, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(),
		PoolID:     modifierPool.ID(),
	})
	require.NoError(t, err)
	provider, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(),
		PoolID:     providerPool.ID(),
	})
	require.NoError(t, err)
	require.Len(t, provider.Regenerated, 1)
	serialWithContent := provider.Regenerated[0].NewSerial

	result, err := f.unbind.Handle(context.Background(), UnbindEntitlementCommand{
		EntitlementID: provider.EntitlementID,
	})
	require.NoError(t, err)

	// Losing q1 locks c1 again, so the modifier regenerated once more.
	require.Len(t, result.Regenerated, 1)
	assert.Equal(t, modifier.EntitlementID, result.Regenerated[0].EntitlementID)
	assert.Equal(t, serialWithContent, result.Regenerated[0].OldSerial)
	assert.True(t, f.revocations.IsRevoked(serialWithContent))
	assert.Empty(t, f.encoder.last.Content)
}

func TestUnbindEntitlement_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.unbind.Handle(context.Background(), UnbindEntitlementCommand{})
	require.ErrorIs(t, err, domain.ErrEntitlementNotFound)
}

func TestUnbindEntitlement_AlreadyRevoked(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "p1")
	pool := f.addPool(t, "p1")
	consumer := f.newConsumer(t)

	bound, err := f.bind.Handle(context.Background(), BindEntitlementCommand{
		ConsumerID: consumer.ID(),
		PoolID:     pool.ID(),
	})
	require.NoError(t, err)

	_, err = f.unbind.Handle(context.Background(), UnbindEntitlementCommand{EntitlementID: bound.EntitlementID})
	require.NoError(t, err)
	_, err = f.unbind.Handle(context.Background(), UnbindEntitlementCommand{EntitlementID: bound.EntitlementID})
	require.ErrorIs(t, err, domain.ErrEntitlementRevoked)
}
