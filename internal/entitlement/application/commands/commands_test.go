package commands

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	catalogpersistence "github.com/felixgeelhaar/sigil/internal/catalog/infrastructure/persistence"
	"github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/audit"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/lock"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/persistence"
	sharedpersistence "github.com/felixgeelhaar/sigil/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
)

// countingEncoder issues serials from a counter.
type countingEncoder struct {
	serial int64
	last   domain.EncodeRequest
}

func (e *countingEncoder) Encode(_ context.Context, req domain.EncodeRequest) (int64, []byte, error) {
	e.serial++
	e.last = req
	return e.serial, []byte(fmt.Sprintf("cert-%d", e.serial)), nil
}

type fixture struct {
	ownerID      uuid.UUID
	catalog      *catalogpersistence.InMemoryCatalogRepository
	entitlements *persistence.InMemoryEntitlementRepository
	pools        *persistence.InMemoryPoolRepository
	consumers    *persistence.InMemoryConsumerRepository
	revocations  *audit.InMemoryRevocationLog
	outboxRepo   *outbox.InMemoryRepository
	encoder      *countingEncoder
	regenerator  *services.Regenerator

	bind        *BindEntitlementHandler
	unbind      *UnbindEntitlementHandler
	deletePool  *DeletePoolHandler
	autoBind    *AutoBindHandler
	updateProds *UpdateProductHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	uow := sharedpersistence.NewNoopUnitOfWork()
	locks := lock.NewInMemoryConsumerLock()

	f := &fixture{
		ownerID:      uuid.New(),
		catalog:      catalogpersistence.NewInMemoryCatalogRepository(),
		entitlements: persistence.NewInMemoryEntitlementRepository(),
		pools:        persistence.NewInMemoryPoolRepository(),
		consumers:    persistence.NewInMemoryConsumerRepository(),
		revocations:  audit.NewInMemoryRevocationLog(),
		outboxRepo:   outbox.NewInMemoryRepository(),
		encoder:      &countingEncoder{},
	}
	f.regenerator = services.NewRegenerator(f.entitlements, f.catalog, f.encoder,
		f.revocations, locks, f.outboxRepo, uow, logger)
	f.bind = NewBindEntitlementHandler(f.entitlements, f.pools, f.catalog, f.encoder,
		f.regenerator, f.outboxRepo, uow)
	f.unbind = NewUnbindEntitlementHandler(f.entitlements, f.revocations,
		f.regenerator, f.outboxRepo, uow)
	f.deletePool = NewDeletePoolHandler(f.entitlements, f.pools, f.revocations,
		f.regenerator, f.outboxRepo, uow, logger)
	f.autoBind = NewAutoBindHandler(f.consumers, f.entitlements, f.pools, f.bind, logger)
	f.updateProds = NewUpdateProductHandler(f.entitlements, f.regenerator, logger)
	return f
}

func (f *fixture) addProduct(t *testing.T, productID string, contents ...*catalogdomain.Content) {
	t.Helper()
	product, err := catalogdomain.NewProduct(f.ownerID, productID, "product "+productID)
	require.NoError(t, err)
	for _, content := range contents {
		require.NoError(t, product.AddContent(content, true))
	}
	require.NoError(t, f.catalog.SaveProduct(context.Background(), product))
}

func (f *fixture) addPool(t *testing.T, productID string, provided ...string) *domain.Pool {
	t.Helper()
	pool, err := domain.NewPool(f.ownerID, productID, provided)
	require.NoError(t, err)
	require.NoError(t, f.pools.Save(context.Background(), pool))
	return pool
}

func (f *fixture) newConsumer(t *testing.T, installed ...string) *domain.Consumer {
	t.Helper()
	consumer, err := domain.NewConsumer(f.ownerID, "host-"+uuid.NewString()[:8])
	require.NoError(t, err)
	consumer.SetInstalledProductIDs(installed)
	require.NoError(t, f.consumers.Save(context.Background(), consumer))
	return consumer
}

func content(t *testing.T, id string, required ...string) *catalogdomain.Content {
	t.Helper()
	c, err := catalogdomain.NewContent(id, "content "+id, "label-"+id, catalogdomain.RepoTypeYum)
	require.NoError(t, err)
	c.SetModifiedProductIDs(required)
	return c
}

func activeSerials(t *testing.T, f *fixture, consumerID uuid.UUID) map[int64]uuid.UUID {
	t.Helper()
	active, err := f.entitlements.ListActiveByConsumer(context.Background(), consumerID)
	require.NoError(t, err)
	serials := make(map[int64]uuid.UUID, len(active))
	for _, ent := range active {
		if cert := ent.Certificate(); cert != nil {
			serials[cert.Serial()] = ent.ID()
		}
	}
	return serials
}
